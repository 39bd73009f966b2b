// Package repository persists listing/file state transitions driven by
// validation outcomes.
package repository

import "context"

// ListingRepository is the transactional boundary between a validated
// file and its parent listing's state machine. Implementations must hold
// a row lock on the listing for the duration of CompleteFileValidation so
// that concurrent workers completing sibling files never race past each
// other when deciding whether the listing as a whole can activate.
type ListingRepository interface {
	// CompleteFileValidation marks file_id VALID (updating its storage key
	// to newFileKey when the file was re-encoded, or recording fileWarning/
	// metadata when it wasn't), inserts any generatedImagePaths as sibling
	// generated files, and then re-evaluates the parent listing: ACTIVE if
	// every sibling file is now VALID, REJECTED if any sibling failed,
	// left untouched while siblings are still PENDING. The returned bool
	// reports whether THIS call transitioned the listing to ACTIVE.
	CompleteFileValidation(ctx context.Context, fileID, listingID string, newFileKey *string, generatedImagePaths []string, fileWarning *string, metadata map[string]any) (bool, error)

	// MarkFileFailed marks file_id FAILED — a transient or unexpected
	// processing error, eligible for operator attention.
	MarkFileFailed(ctx context.Context, fileID, errMessage string) error

	// MarkFileInvalid marks file_id INVALID — the file itself failed
	// validation; redelivery would never change the outcome.
	MarkFileInvalid(ctx context.Context, fileID, errMessage string) error

	// HealthCheck reports whether the repository's underlying connection
	// is alive, backing the worker's /readyz probe.
	HealthCheck(ctx context.Context) error
}
