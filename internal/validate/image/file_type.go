// Package image holds the image-pipeline validators: file type, resolution,
// and structural integrity.
package image

import (
	"fmt"
	"net/http"
	"os"

	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// FileTypeValidator sniffs the first 512 bytes of the file and rejects
// anything whose detected MIME type isn't in the policy's image allow
// list. It is critical: an unrecognized or disguised file type must halt
// the pipeline before any heavier processing opens the file.
type FileTypeValidator struct{}

func (FileTypeValidator) Name() string     { return "FileTypeValidator" }
func (FileTypeValidator) IsCritical() bool { return true }

func (v FileTypeValidator) Validate(ctx *pipeline.Context, policy pipeline.Policy) pipeline.Result {
	f, err := os.Open(ctx.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return pipeline.Result{
				ValidatorName: v.Name(),
				IsValid:       false,
				ErrorCode:     pipeline.ErrFileNotFound,
				ErrorMessage:  fmt.Sprintf("no such file: %s", ctx.FilePath),
			}
		}
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileRead,
			ErrorMessage:  "permission denied: cannot read file",
		}
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileCorrupt,
			ErrorMessage:  "unknown file type",
		}
	}
	head = head[:n]

	detected := http.DetectContentType(head)
	if !policy.AllowsMIME("image", detected) {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrMimeMismatch,
			ErrorMessage:  fmt.Sprintf("invalid MIME: %s", detected),
			Metadata:      map[string]any{"mime": detected},
		}
	}

	return pipeline.Result{
		ValidatorName: v.Name(),
		IsValid:       true,
		Metadata:      map[string]any{"mime": detected},
	}
}
