// Package image holds the image pipeline's transform: re-encoding to WebP.
package image

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// WebPNormalizer sanitizes an image by re-encoding it to WebP: EXIF
// orientation is baked into the pixels and the EXIF block itself is
// dropped, and every source color mode (CMYK, palette, grayscale, ...) is
// normalized to RGBA by imaging.Decode before re-encoding, so downstream
// consumers only ever see one color model.
type WebPNormalizer struct {
	Quality float32
}

// NewWebPNormalizer builds a normalizer at the original service's default
// quality setting.
func NewWebPNormalizer() *WebPNormalizer {
	return &WebPNormalizer{Quality: 85}
}

func (p *WebPNormalizer) Name() string { return "WebPNormalizationProcessor" }

func (p *WebPNormalizer) Process(ctx *pipeline.Context, extra map[string]any) pipeline.ProcessingResult {
	f, err := os.Open(ctx.FilePath)
	if err != nil {
		return pipeline.ProcessingResult{ProcessorName: p.Name(), Success: false, ErrorMessage: fmt.Sprintf("failed to convert to WebP: %v", err)}
	}
	defer f.Close()

	// imaging.Decode normalizes every source color model to NRGBA and, with
	// AutoOrientation, bakes the EXIF orientation tag into the pixel data —
	// matching ImageOps.exif_transpose plus the CMYK/P->RGB(A) conversion.
	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return pipeline.ProcessingResult{ProcessorName: p.Name(), Success: false, ErrorMessage: fmt.Sprintf("failed to convert to WebP: %v", err)}
	}

	base := filepath.Base(ctx.FilePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outputPath := filepath.Join(filepath.Dir(ctx.FilePath), stem+"_clean.webp")

	out, err := os.Create(outputPath)
	if err != nil {
		return pipeline.ProcessingResult{ProcessorName: p.Name(), Success: false, ErrorMessage: fmt.Sprintf("failed to convert to WebP: %v", err)}
	}
	defer out.Close()

	if err := webp.Encode(out, img, &webp.Options{Quality: p.Quality}); err != nil {
		return pipeline.ProcessingResult{ProcessorName: p.Name(), Success: false, ErrorMessage: fmt.Sprintf("failed to convert to WebP: %v", err)}
	}

	return pipeline.ProcessingResult{
		ProcessorName: p.Name(),
		Success:       true,
		OutputPath:    outputPath,
		Metadata:      map[string]any{"new_format": "WEBP"},
	}
}
