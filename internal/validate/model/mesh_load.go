package model

import (
	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// MeshLoadValidator decodes the model through ctx.Mesh() and confirms the
// result carries actual geometry. A decode error or empty mesh is always
// MESH_LOAD_FAILURE — the caller never gets to distinguish a parse error from
// an empty-but-well-formed file, matching the original service's
// contact-support framing for this failure mode.
type MeshLoadValidator struct{}

func (MeshLoadValidator) Name() string     { return "MeshLoadValidator" }
func (MeshLoadValidator) IsCritical() bool { return true }

func (v MeshLoadValidator) Validate(ctx *pipeline.Context, policy pipeline.Policy) pipeline.Result {
	m, err := ctx.Mesh()
	if err != nil || m.IsEmpty() {
		return pipeline.Result{
			ValidatorName: v.Name(),
			IsValid:       false,
			ErrorCode:     pipeline.ErrMeshLoadFailure,
			ErrorMessage:  "failed to load model mesh. contact support with the reference id.",
		}
	}

	return pipeline.Result{
		ValidatorName: v.Name(),
		IsValid:       true,
		Metadata: map[string]any{
			"is_winding_consistent": m.IsWindingConsistent,
			"euler_number":          m.EulerNumber,
			"vertices":              len(m.Vertices),
			"faces":                 len(m.Faces),
			"is_watertight":         m.IsWatertight,
			"bounds_min":            m.BoundsMin,
			"bounds_max":            m.BoundsMax,
		},
	}
}
