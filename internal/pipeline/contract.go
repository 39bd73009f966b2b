package pipeline

// Validator is a pure, synchronous check. It must never panic past this
// boundary — the pipeline recovers any panic and turns it into a failed
// Result — and it only reads ctx.FilePath (and, for models, ctx.Mesh());
// it never mutates the filesystem.
type Validator interface {
	Name() string
	IsCritical() bool
	Validate(ctx *Context, policy Policy) Result
}

// Processor transforms the asset, optionally producing sibling files in
// the same directory as ctx.FilePath. The caller (the worker) owns
// uploading and deleting whatever paths a ProcessingResult reports.
type Processor interface {
	Name() string
	Process(ctx *Context, extra map[string]any) ProcessingResult
}
