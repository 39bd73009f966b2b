package pipeline

import (
	"os"
	"sync"

	"github.com/jordigilh/assetvalidator/internal/mesh"
)

// Context carries the on-disk path, trace id, and type hint for one job,
// plus a lazily-decoded mesh shared by reference across every
// validator/processor that touches it. It is single-threaded during the
// critical phase; during the standard phase it is read-only, so the
// memoized mesh may be read concurrently without further locking once
// decoded.
type Context struct {
	FilePath     string
	TraceID      string
	FileTypeHint string // "image" | "model"

	meshOnce sync.Once
	meshVal  *mesh.Mesh
	meshErr  error
}

// NewContext builds a Context for one pipeline invocation.
func NewContext(filePath, traceID, fileTypeHint string) *Context {
	return &Context{FilePath: filePath, TraceID: traceID, FileTypeHint: fileTypeHint}
}

// Mesh lazily decodes the 3-D model at FilePath, memoizing the result (or
// the decode error) so every caller in the standard phase observes the
// same outcome without re-reading the file.
func (c *Context) Mesh() (*mesh.Mesh, error) {
	c.meshOnce.Do(func() {
		f, err := os.Open(c.FilePath)
		if err != nil {
			c.meshErr = err
			return
		}
		defer f.Close()
		c.meshVal, c.meshErr = mesh.Decode(f)
	})
	return c.meshVal, c.meshErr
}
