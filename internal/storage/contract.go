// Package storage is the file-provider boundary: fetching a job's source
// file onto local disk and pushing processed outputs back out.
package storage

import "context"

// FileProvider fetches and stores files by opaque id. GetFile's cleanup
// func must always be called (typically via defer) once the caller is
// done with the returned local path — for a remote provider it deletes
// the downloaded temp file; for the local provider it's a no-op.
type FileProvider interface {
	// GetFile downloads (or locates) the file named by id and returns a
	// local filesystem path to it.
	GetFile(ctx context.Context, id string) (path string, cleanup func(), err error)

	// StoreImage uploads sourcePath (a validated/normalized image or
	// model render) to the provider's public-facing image bucket under
	// destID.
	StoreImage(ctx context.Context, sourcePath, destID string) error

	// StoreProductFile uploads sourcePath (the original, normalized
	// product asset, e.g. a re-encoded WebP or the source STL) to the
	// provider's product-file bucket under destID.
	StoreProductFile(ctx context.Context, sourcePath, destID string) error
}
