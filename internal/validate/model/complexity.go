package model

import (
	"fmt"

	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// ComplexityValidator caps vertex and face counts so a pathologically
// dense model can't blow up rendering/storage downstream. It runs in the
// standard phase — complexity is a quality gate, not a correctness gate,
// so it never blocks the critical phase from completing.
type ComplexityValidator struct{}

func (ComplexityValidator) Name() string     { return "ComplexityValidator" }
func (ComplexityValidator) IsCritical() bool { return false }

func (v ComplexityValidator) Validate(ctx *pipeline.Context, policy pipeline.Policy) pipeline.Result {
	m, err := ctx.Mesh()
	if err != nil || m.IsEmpty() {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrFileCorrupt,
			ErrorMessage:  "file parsing resulted in an empty mesh.",
		}
	}

	if len(m.Vertices) > policy.MaxModelVertices {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrModelTooComplex,
			ErrorMessage:  fmt.Sprintf("model contains too many vertices (%d).", len(m.Vertices)),
		}
	}

	if len(m.Faces) > policy.MaxModelFaces {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrModelTooComplex,
			ErrorMessage:  fmt.Sprintf("model contains too many faces (%d).", len(m.Faces)),
		}
	}

	return pipeline.Result{ValidatorName: v.Name(), IsValid: true}
}
