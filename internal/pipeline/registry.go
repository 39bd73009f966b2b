package pipeline

import "fmt"

// Registry maps a file_type ("image", "model", ...) to the Pipeline that
// validates it. The worker looks up the pipeline for an incoming job's
// file_type instead of branching on a hardcoded switch, so adding a new
// asset kind is a registration, not a worker change.
type Registry struct {
	pipelines map[string]*Pipeline
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*Pipeline)}
}

// Register associates fileType with a pipeline. Registering the same
// fileType twice is an error — pipelines are wired once at startup.
func (r *Registry) Register(fileType string, p *Pipeline) error {
	if _, exists := r.pipelines[fileType]; exists {
		return fmt.Errorf("pipeline for file type %q already registered", fileType)
	}
	r.pipelines[fileType] = p
	return nil
}

// Lookup returns the pipeline registered for fileType.
func (r *Registry) Lookup(fileType string) (*Pipeline, bool) {
	p, ok := r.pipelines[fileType]
	return p, ok
}

// Count returns the number of registered pipelines.
func (r *Registry) Count() int {
	return len(r.pipelines)
}
