package model

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

// tetrahedron is a minimal closed, non-degenerate solid: four triangular
// faces sharing all four vertices pairwise.
const tetrahedron = "solid tetra\n" +
	"facet normal 0 0 0\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\n" +
	"facet normal 0 0 0\nouter loop\nvertex 0 0 0\nvertex 0 1 0\nvertex 0 0 1\nendloop\nendfacet\n" +
	"facet normal 0 0 0\nouter loop\nvertex 0 0 0\nvertex 0 0 1\nvertex 1 0 0\nendloop\nendfacet\n" +
	"facet normal 0 0 0\nouter loop\nvertex 1 0 0\nvertex 0 0 1\nvertex 0 1 0\nendloop\nendfacet\n" +
	"endsolid tetra\n"

var _ = Describe("Renderer", func() {
	It("renders all four angles for a valid mesh", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "part.stl")
		Expect(os.WriteFile(path, []byte(tetrahedron), 0o644)).To(Succeed())

		r := NewRenderer()
		res := r.Process(pipeline.NewContext(path, "t1", "model"), nil)

		Expect(res.Success).To(BeTrue())
		Expect(res.GeneratedPaths).To(HaveLen(4))
		for _, p := range res.GeneratedPaths {
			Expect(p).To(BeAnExistingFile())
		}
	})

	It("rejects a mesh over the face budget", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "part.stl")
		Expect(os.WriteFile(path, []byte(tetrahedron), 0o644)).To(Succeed())

		r := NewRenderer()
		res := r.Process(pipeline.NewContext(path, "t2", "model"), map[string]any{"faces": 1_000_000})

		Expect(res.Success).To(BeFalse())
		Expect(res.ErrorMessage).To(ContainSubstring("too complex"))
	})
})
