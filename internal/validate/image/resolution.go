package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "github.com/chai2010/webp" // registers the "webp" format with image.DecodeConfig

	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// ResolutionValidator checks image dimensions against the policy limit.
// It reads only the header via image.DecodeConfig, never decoding pixel
// data, so an oversized image is rejected without ever allocating its
// full frame buffer. It runs in the standard (parallel) phase: it's I/O
// bound but not worth serializing behind the critical phase.
type ResolutionValidator struct{}

func (ResolutionValidator) Name() string     { return "ResolutionValidator" }
func (ResolutionValidator) IsCritical() bool { return false }

func (v ResolutionValidator) Validate(ctx *pipeline.Context, policy pipeline.Policy) pipeline.Result {
	f, err := os.Open(ctx.FilePath)
	if err != nil {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileCorrupt,
			ErrorMessage:  "could not read image dimensions (file may be corrupt).",
		}
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileCorrupt,
			ErrorMessage:  "could not read image dimensions (file may be corrupt).",
		}
	}

	metadata := map[string]any{
		"width": cfg.Width, "height": cfg.Height,
		"max_allowed": [2]int{policy.MaxImageResolution.Width, policy.MaxImageResolution.Height},
	}

	if cfg.Width > policy.MaxImageResolution.Width || cfg.Height > policy.MaxImageResolution.Height {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrDimensionTooLarge,
			ErrorMessage: fmt.Sprintf("image resolution %dx%d exceeds limit of %dx%d",
				cfg.Width, cfg.Height, policy.MaxImageResolution.Width, policy.MaxImageResolution.Height),
			Metadata: metadata,
		}
	}

	return pipeline.Result{ValidatorName: v.Name(), IsValid: true, Metadata: metadata}
}
