package image

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "github.com/chai2010/webp"

	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// IntegrityValidator verifies that the image is not truncated or
// structurally corrupt. Unlike Pillow's verify(), Go's image package has
// no header-only integrity scan, so this fully decodes the pixel data —
// a decode error or a panic recovered by the pipeline both count as
// corruption. It stays in the standard phase since it's the heaviest
// per-file check.
type IntegrityValidator struct{}

func (IntegrityValidator) Name() string     { return "IntegrityValidator" }
func (IntegrityValidator) IsCritical() bool { return false }

func (v IntegrityValidator) Validate(ctx *pipeline.Context, policy pipeline.Policy) pipeline.Result {
	f, err := os.Open(ctx.FilePath)
	if err != nil {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileCorrupt,
			ErrorMessage:  "image file is corrupt, truncated, or unreadable.",
		}
	}
	defer f.Close()

	if _, _, err := image.Decode(f); err != nil {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileCorrupt,
			ErrorMessage:  "image file is corrupt, truncated, or unreadable.",
		}
	}

	return pipeline.Result{ValidatorName: v.Name(), IsValid: true}
}
