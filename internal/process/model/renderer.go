// Package model holds the 3-D model pipeline's transform: a multi-angle
// preview render.
package model

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"

	"github.com/jordigilh/assetvalidator/internal/mesh"
	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// view names a camera angle by elevation/azimuth, in degrees, matching
// the original service's four fixed preview angles.
type view struct {
	name               string
	elevation, azimuth float64
}

var views = []view{
	{"iso", 30, 45},
	{"front", 0, 0},
	{"side", 0, 90},
	{"top", 90, 0},
}

const (
	renderWidth  = 512
	renderHeight = 384
	maxFaces     = 500_000
)

// Renderer produces a white-background, flat-shaded multi-angle preview of
// a decoded mesh. The example pack carries no Go 3-D rendering library
// (pyrender has no ecosystem equivalent here), so this rasterizes
// triangles directly with the standard image package: a software
// scanline/z-buffer renderer, grounded the same way the STL decoder is —
// hand-rolled because the domain math is fully specified and narrow
// enough that pulling in a general-purpose 3-D engine would be overkill.
type Renderer struct {
	Quality float32
}

// NewRenderer builds a Renderer matching the original service's face
// budget and output quality.
func NewRenderer() *Renderer {
	return &Renderer{Quality: 85}
}

func (r *Renderer) Name() string { return "ModelRendererProcessor" }

func (r *Renderer) Process(ctx *pipeline.Context, extra map[string]any) pipeline.ProcessingResult {
	m, err := ctx.Mesh()
	if err != nil {
		return pipeline.ProcessingResult{ProcessorName: r.Name(), Success: false, ErrorMessage: err.Error()}
	}

	faceCount := len(m.Faces)
	if v, ok := extra["faces"].(int); ok && v > 0 {
		faceCount = v
	}
	if faceCount > maxFaces {
		return pipeline.ProcessingResult{
			ProcessorName: r.Name(), Success: false,
			ErrorMessage: fmt.Sprintf("mesh too complex (%d faces)", faceCount),
		}
	}

	center := m.Centroid()
	scale := m.Extent()
	if scale == 0 {
		scale = 1
	}

	base := filepath.Base(ctx.FilePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := filepath.Dir(ctx.FilePath)

	var generated []string
	failures := map[string]string{}

	for _, v := range views {
		outputPath := filepath.Join(dir, fmt.Sprintf("%s_%s.webp", stem, v.name))
		if err := r.renderView(m, center, scale, v, outputPath); err != nil {
			failures[v.name] = err.Error()
			continue
		}
		generated = append(generated, outputPath)
	}

	if len(generated) == 0 {
		msgs := make([]string, 0, len(failures))
		for name, msg := range failures {
			msgs = append(msgs, name+": "+msg)
		}
		return pipeline.ProcessingResult{ProcessorName: r.Name(), Success: false, ErrorMessage: "all renders failed; " + strings.Join(msgs, ",")}
	}

	var warning string
	if len(failures) > 0 {
		msgs := make([]string, 0, len(failures))
		for name, msg := range failures {
			msgs = append(msgs, fmt.Sprintf("%s: %s", name, msg))
		}
		warning = "some views failed to render: " + strings.Join(msgs, "; ")
	}

	return pipeline.ProcessingResult{
		ProcessorName:  r.Name(),
		Success:        true,
		GeneratedPaths: generated,
		ErrorMessage:   warning,
	}
}

func (r *Renderer) renderView(m *mesh.Mesh, center mesh.Vertex, scale float64, v view, outputPath string) error {
	cam := newCamera(center, scale, v.elevation, v.azimuth, renderWidth, renderHeight)
	img := rasterize(m, cam, renderWidth, renderHeight)

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := webp.Encode(out, img, &webp.Options{Quality: r.Quality}); err != nil {
		return fmt.Errorf("encode webp: %w", err)
	}
	return nil
}

// vec3 is a minimal 3-element vector used only for camera/projection math.
type vec3 [3]float64

func sub(a, b vec3) vec3  { return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func add(a, b vec3) vec3  { return vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func scale3(a vec3, s float64) vec3 {
	return vec3{a[0] * s, a[1] * s, a[2] * s}
}
func dot(a, b vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func cross(a, b vec3) vec3 {
	return vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}
func norm(a vec3) vec3 {
	l := math.Sqrt(dot(a, a))
	if l < 1e-9 {
		return a
	}
	return scale3(a, 1/l)
}

// camera is a look-at basis plus a simple perspective projection, enough
// to place the fixed elevation/azimuth preview angles.
type camera struct {
	eye, right, up, forward vec3
	fov                     float64
	width, height           int
}

func newCamera(center mesh.Vertex, scale float64, elevationDeg, azimuthDeg float64, width, height int) camera {
	theta := azimuthDeg * math.Pi / 180
	phi := elevationDeg * math.Pi / 180
	dist := scale * 1.8
	if dist == 0 {
		dist = 1.8
	}

	x := dist * math.Cos(phi) * math.Sin(theta)
	y := dist * math.Cos(phi) * math.Cos(theta)
	z := dist * math.Sin(phi)

	c := vec3{center[0], center[1], center[2]}
	eye := add(vec3{x, y, z}, c)

	forward := norm(sub(c, eye))
	worldUp := vec3{0, 0, 1}
	right := norm(cross(forward, worldUp))
	if math.IsNaN(right[0]) {
		right = vec3{1, 0, 0}
	}
	up := norm(cross(right, forward))

	return camera{eye: eye, right: right, up: up, forward: forward, fov: math.Pi / 4, width: width, height: height}
}

// project maps a world point to screen coordinates and a camera-space
// depth. ok is false for points behind the camera.
func (c camera) project(p vec3) (sx, sy float64, depth float64, ok bool) {
	rel := sub(p, c.eye)
	depth = dot(rel, c.forward)
	if depth <= 1e-6 {
		return 0, 0, depth, false
	}
	cx := dot(rel, c.right)
	cy := dot(rel, c.up)

	focal := float64(c.height) / (2 * math.Tan(c.fov/2))
	aspect := float64(c.width) / float64(c.height)

	sx = float64(c.width)/2 + (cx/depth)*focal
	sy = float64(c.height)/2 - (cy/depth)*focal*aspect*float64(c.height)/float64(c.width)
	return sx, sy, depth, true
}

// rasterize flat-shades every triangle against a single fixed key light
// and z-buffers the result onto a solid white background.
func rasterize(m *mesh.Mesh, cam camera, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	white := color.RGBA{255, 255, 255, 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, white)
		}
	}

	depthBuf := make([]float64, width*height)
	for i := range depthBuf {
		depthBuf[i] = math.Inf(1)
	}

	lightDir := norm(vec3{1, -1, 1})

	for _, f := range m.Faces {
		v0, v1, v2 := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		p0 := vec3{v0[0], v0[1], v0[2]}
		p1 := vec3{v1[0], v1[1], v1[2]}
		p2 := vec3{v2[0], v2[1], v2[2]}

		sx0, sy0, d0, ok0 := cam.project(p0)
		sx1, sy1, d1, ok1 := cam.project(p1)
		sx2, sy2, d2, ok2 := cam.project(p2)
		if !ok0 || !ok1 || !ok2 {
			continue
		}

		normal := norm(cross(sub(p1, p0), sub(p2, p0)))
		intensity := 0.3 + 0.7*math.Max(0, dot(normal, lightDir))
		shade := uint8(math.Min(255, intensity*255))
		c := color.RGBA{shade, shade, shade, 255}

		fillTriangle(img, depthBuf, width, height,
			sx0, sy0, d0, sx1, sy1, d1, sx2, sy2, d2, c)
	}

	return img
}

func fillTriangle(img *image.RGBA, depthBuf []float64, width, height int,
	x0, y0, z0, x1, y1, z1, x2, y2, z2 float64, c color.RGBA) {
	minX := int(math.Max(0, math.Floor(math.Min(x0, math.Min(x1, x2)))))
	maxX := int(math.Min(float64(width-1), math.Ceil(math.Max(x0, math.Max(x1, x2)))))
	minY := int(math.Max(0, math.Floor(math.Min(y0, math.Min(y1, y2)))))
	maxY := int(math.Min(float64(height-1), math.Ceil(math.Max(y0, math.Max(y1, y2)))))

	area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
	if area == 0 {
		return
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5

			w0 := ((x1-px)*(y2-py) - (x2-px)*(y1-py)) / area
			w1 := ((x2-px)*(y0-py) - (x0-px)*(y2-py)) / area
			w2 := 1 - w0 - w1

			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			depth := w0*z0 + w1*z1 + w2*z2
			idx := y*width + x
			if depth < depthBuf[idx] {
				depthBuf[idx] = depth
				img.Set(x, y, c)
			}
		}
	}
}
