package model

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jordigilh/assetvalidator/internal/pipeline"
)

const asciiCube = "solid demo\n" +
	"facet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\n" +
	"facet normal 0 0 1\nouter loop\nvertex 1 1 0\nvertex 0 1 0\nvertex 1 0 0\nendloop\nendfacet\n" +
	"endsolid demo\n"

func writeSTL(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

var _ = Describe("FileSizeValidator", func() {
	It("accepts a file within the limit", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", asciiCube)
		res := FileSizeValidator{}.Validate(pipeline.NewContext(path, "t1", "model"), pipeline.DefaultPolicy())
		Expect(res.IsValid).To(BeTrue())
	})

	It("rejects a file over the limit", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", asciiCube)
		policy := pipeline.DefaultPolicy()
		policy.MaxFileSizeMB = 0
		res := FileSizeValidator{}.Validate(pipeline.NewContext(path, "t2", "model"), policy)
		Expect(res.IsValid).To(BeFalse())
		Expect(res.ErrorCode).To(Equal(pipeline.ErrFileTooLarge))
	})

	It("rejects a missing file", func() {
		res := FileSizeValidator{}.Validate(pipeline.NewContext("/nonexistent/m.stl", "t3", "model"), pipeline.DefaultPolicy())
		Expect(res.IsValid).To(BeFalse())
		Expect(res.ErrorCode).To(Equal(pipeline.ErrFileNotFound))
	})
})

var _ = Describe("FileTypeValidator", func() {
	It("accepts a valid ASCII STL", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", asciiCube)
		res := FileTypeValidator{}.Validate(pipeline.NewContext(path, "t4", "model"), pipeline.DefaultPolicy())
		Expect(res.IsValid).To(BeTrue())
		Expect(res.Metadata["mime"]).To(Equal("model/stl"))
	})

	It("rejects a non-.stl extension", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.obj", asciiCube)
		res := FileTypeValidator{}.Validate(pipeline.NewContext(path, "t5", "model"), pipeline.DefaultPolicy())
		Expect(res.IsValid).To(BeFalse())
		Expect(res.ErrorCode).To(Equal(pipeline.ErrFileCorrupt))
	})

	It("rejects a .stl file whose header doesn't match either format", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", "not a model file at all")
		res := FileTypeValidator{}.Validate(pipeline.NewContext(path, "t6", "model"), pipeline.DefaultPolicy())
		Expect(res.IsValid).To(BeFalse())
		Expect(res.ErrorCode).To(Equal(pipeline.ErrFileCorrupt))
	})

	It("rejects a detected type the policy doesn't allow", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", asciiCube)
		policy := pipeline.DefaultPolicy()
		policy.AllowedFileTypes["model"] = []string{"application/octet-stream"}
		res := FileTypeValidator{}.Validate(pipeline.NewContext(path, "t7", "model"), policy)
		Expect(res.IsValid).To(BeFalse())
		Expect(res.ErrorCode).To(Equal(pipeline.ErrMimeMismatch))
	})
})

var _ = Describe("MeshLoadValidator", func() {
	It("loads a valid mesh and reports its topology", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", asciiCube)
		res := MeshLoadValidator{}.Validate(pipeline.NewContext(path, "t8", "model"), pipeline.DefaultPolicy())
		Expect(res.IsValid).To(BeTrue())
		Expect(res.Metadata["vertices"]).To(Equal(4))
		Expect(res.Metadata["faces"]).To(Equal(2))
	})

	It("fails when the file can't be decoded as a mesh", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", "solid empty\nendsolid empty\n")
		res := MeshLoadValidator{}.Validate(pipeline.NewContext(path, "t9", "model"), pipeline.DefaultPolicy())
		Expect(res.IsValid).To(BeFalse())
		Expect(res.ErrorCode).To(Equal(pipeline.ErrMeshLoadFailure))
	})
})

var _ = Describe("ComplexityValidator", func() {
	It("accepts a mesh within the policy limits", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", asciiCube)
		res := ComplexityValidator{}.Validate(pipeline.NewContext(path, "t10", "model"), pipeline.DefaultPolicy())
		Expect(res.IsValid).To(BeTrue())
	})

	It("rejects a mesh with too many vertices", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", asciiCube)
		policy := pipeline.DefaultPolicy()
		policy.MaxModelVertices = 1
		res := ComplexityValidator{}.Validate(pipeline.NewContext(path, "t11", "model"), policy)
		Expect(res.IsValid).To(BeFalse())
		Expect(res.ErrorCode).To(Equal(pipeline.ErrModelTooComplex))
	})

	It("rejects a mesh with too many faces", func() {
		dir := GinkgoT().TempDir()
		path := writeSTL(dir, "m.stl", asciiCube)
		policy := pipeline.DefaultPolicy()
		policy.MaxModelFaces = 1
		res := ComplexityValidator{}.Validate(pipeline.NewContext(path, "t12", "model"), policy)
		Expect(res.IsValid).To(BeFalse())
		Expect(res.ErrorCode).To(Equal(pipeline.ErrModelTooComplex))
	})
})
