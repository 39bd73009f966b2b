package pipeline

// Resolution is a width/height pair in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Policy is the immutable, read-only-shared validation configuration.
// A single Policy value is constructed at startup and handed to every
// concurrently-running job; nothing in it is ever mutated after
// construction, so it needs no synchronization.
type Policy struct {
	MaxFileSizeMB      float64
	MaxModelVertices   int
	MaxModelFaces      int
	TimeoutSeconds      float64
	AllowedFileTypes    map[string][]string // file_type -> allowed MIME types
	MaxImageResolution Resolution
}

// DefaultPolicy mirrors the original service's ValidationPolicy defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxFileSizeMB:    100.0,
		MaxModelVertices: 1_000_000,
		MaxModelFaces:    500_000,
		TimeoutSeconds:   30.0,
		AllowedFileTypes: map[string][]string{
			"image": {"image/jpeg", "image/png", "image/webp"},
			"model": {"model/stl", "application/octet-stream"},
		},
		MaxImageResolution: Resolution{Width: 4096, Height: 4096},
	}
}

// AllowsMIME reports whether mimeType is permitted for the given file type.
func (p Policy) AllowsMIME(fileType, mimeType string) bool {
	for _, allowed := range p.AllowedFileTypes[fileType] {
		if allowed == mimeType {
			return true
		}
	}
	return false
}
