// Package model holds the 3-D model pipeline validators: file size, file
// type, mesh load, and complexity.
package model

import (
	"fmt"
	"os"

	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// FileSizeValidator rejects model files larger than the policy limit
// before anything attempts to parse them.
type FileSizeValidator struct{}

func (FileSizeValidator) Name() string     { return "FileSizeValidator" }
func (FileSizeValidator) IsCritical() bool { return true }

func (v FileSizeValidator) Validate(ctx *pipeline.Context, policy pipeline.Policy) pipeline.Result {
	info, err := os.Stat(ctx.FilePath)
	if err != nil {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileNotFound,
			ErrorMessage:  fmt.Sprintf("no such file: %s", ctx.FilePath),
		}
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB > policy.MaxFileSizeMB {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileTooLarge,
			ErrorMessage: fmt.Sprintf("file size %.2f MB exceeds the maximum allowed size of %.2f MB.",
				sizeMB, policy.MaxFileSizeMB),
		}
	}

	return pipeline.Result{ValidatorName: v.Name(), IsValid: true}
}
