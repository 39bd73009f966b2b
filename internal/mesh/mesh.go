// Package mesh decodes and inspects 3-D model files. It stands in for the
// Python service's trimesh dependency: a minimal, dependency-free mesh
// reader sufficient to validate complexity and structural soundness without
// needing a full geometry kernel.
package mesh

import "math"

// Vertex is a point in model space.
type Vertex [3]float64

// Triangle indexes three vertices.
type Triangle [3]int

// Mesh is the decoded, in-memory representation of a 3-D model shared
// read-only by every validator/processor that touches the same
// pipeline.Context once decoded.
type Mesh struct {
	Vertices []Vertex
	Faces    []Triangle

	// Precomputed on decode, mirroring trimesh's cached properties.
	IsWatertight        bool
	IsWindingConsistent bool
	EulerNumber         int
	BoundsMin           Vertex
	BoundsMax           Vertex
}

// IsEmpty reports whether the mesh carries no usable geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0 || len(m.Faces) == 0
}

// Centroid returns the arithmetic mean of all vertices.
func (m *Mesh) Centroid() Vertex {
	var c Vertex
	if len(m.Vertices) == 0 {
		return c
	}
	for _, v := range m.Vertices {
		c[0] += v[0]
		c[1] += v[1]
		c[2] += v[2]
	}
	n := float64(len(m.Vertices))
	return Vertex{c[0] / n, c[1] / n, c[2] / n}
}

// Extent returns the largest span of the bounding box across any axis,
// used by the renderer to frame the camera.
func (m *Mesh) Extent() float64 {
	max := 0.0
	for i := 0; i < 3; i++ {
		span := m.BoundsMax[i] - m.BoundsMin[i]
		if span > max {
			max = span
		}
	}
	return max
}

// analyze derives the cached topology metadata (watertightness, winding
// consistency, Euler characteristic, bounds) from raw triangle soup.
// Vertices are assumed already deduplicated by the caller.
func analyze(verts []Vertex, faces []Triangle) *Mesh {
	m := &Mesh{Vertices: verts, Faces: faces}
	if len(verts) == 0 {
		return m
	}

	m.BoundsMin = verts[0]
	m.BoundsMax = verts[0]
	for _, v := range verts {
		for i := 0; i < 3; i++ {
			m.BoundsMin[i] = math.Min(m.BoundsMin[i], v[i])
			m.BoundsMax[i] = math.Max(m.BoundsMax[i], v[i])
		}
	}

	type edgeKey struct{ a, b int }
	undirected := map[edgeKey]int{}
	directed := map[edgeKey]int{}
	for _, f := range faces {
		for i := 0; i < 3; i++ {
			a, b := f[i], f[(i+1)%3]
			directed[edgeKey{a, b}]++
			if a > b {
				a, b = b, a
			}
			undirected[edgeKey{a, b}]++
		}
	}

	watertight := true
	for _, count := range undirected {
		if count != 2 {
			watertight = false
			break
		}
	}
	m.IsWatertight = watertight

	// Winding is consistent iff no directed edge is traversed twice in the
	// same direction (that would mean two adjacent faces disagree on
	// which side is "outside").
	windingConsistent := true
	for k, count := range directed {
		if count > 1 {
			windingConsistent = false
			break
		}
		reverse := edgeKey{k.b, k.a}
		if directed[reverse] == 0 && undirected[edgeKey{min(k.a, k.b), max(k.a, k.b)}] == 2 {
			// a boundary-free edge with no matching reverse traversal
			// means the adjacent face winds the opposite way.
			windingConsistent = false
			break
		}
	}
	m.IsWindingConsistent = windingConsistent

	edgeCount := len(undirected)
	m.EulerNumber = len(verts) - edgeCount + len(faces)

	return m
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
