package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jordigilh/assetvalidator/internal/mesh"
	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// FileTypeValidator requires a ".stl" extension and confirms the header
// bytes actually match the STL binary-math / ASCII-token contract — the
// extension alone is never trusted.
type FileTypeValidator struct{}

func (FileTypeValidator) Name() string     { return "FileTypeValidator" }
func (FileTypeValidator) IsCritical() bool { return true }

func (v FileTypeValidator) Validate(ctx *pipeline.Context, policy pipeline.Policy) pipeline.Result {
	if strings.ToLower(filepath.Ext(ctx.FilePath)) != ".stl" {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileCorrupt,
			ErrorMessage:  fmt.Sprintf("invalid file extension %q. expected: .stl", filepath.Ext(ctx.FilePath)),
		}
	}

	info, err := os.Stat(ctx.FilePath)
	if err != nil {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileNotFound,
			ErrorMessage:  fmt.Sprintf("no such file: %s", ctx.FilePath),
		}
	}

	f, err := os.Open(ctx.FilePath)
	if err != nil {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrUnknown,
			ErrorMessage:  fmt.Sprintf("read error: %v", err),
		}
	}
	defer f.Close()

	head := make([]byte, 2048)
	n, _ := f.Read(head)
	head = head[:n]

	detected, ok := mesh.DetectSTL(head, info.Size())
	if !ok {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileCorrupt,
			ErrorMessage:  "file type unsupported or header corrupt.",
		}
	}

	if !policy.AllowsMIME("model", detected) {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrMimeMismatch,
			ErrorMessage:  fmt.Sprintf("format %q is valid but not allowed by policy.", detected),
			Metadata:      map[string]any{"detected_mime": detected},
		}
	}

	return pipeline.Result{ValidatorName: v.Name(), IsValid: true, Metadata: map[string]any{"mime": detected}}
}
