package testutil

import (
	"context"
	"strconv"
	"sync"
)

// FakeFile mirrors one listing_files row.
type FakeFile struct {
	ID          string
	ListingID   string
	Status      string // PENDING | VALID | INVALID | FAILED
	FilePath    string
	ErrorMsg    string
	IsGenerated bool
	Metadata    map[string]any
}

// FakeListing mirrors one listings row.
type FakeListing struct {
	ID     string
	Status string // PENDING_VALIDATION | ACTIVE | REJECTED
}

// FakeRepository is an in-memory ListingRepository, grounded on the
// original service's InMemoryRepository: Seed pre-populates a listing and
// its pending files the way a test fixture would find them already
// inserted by the upload service, and CompleteFileValidation reproduces
// the same pending/failed-count fan-in decision tree the real Postgres
// transaction implements.
type FakeRepository struct {
	mu       sync.Mutex
	Files    map[string]*FakeFile
	Listings map[string]*FakeListing
	genSeq   int
}

// NewFakeRepository builds an empty FakeRepository.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		Files:    make(map[string]*FakeFile),
		Listings: make(map[string]*FakeListing),
	}
}

// Seed registers listingID with the given fileIDs, all PENDING, and the
// listing itself PENDING_VALIDATION — the state a job handler expects to
// find before it completes the first sibling file.
func (r *FakeRepository) Seed(listingID string, fileIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Listings[listingID] = &FakeListing{ID: listingID, Status: "PENDING_VALIDATION"}
	for _, id := range fileIDs {
		r.Files[id] = &FakeFile{ID: id, ListingID: listingID, Status: "PENDING"}
	}
}

func (r *FakeRepository) CompleteFileValidation(ctx context.Context, fileID, listingID string, newFileKey *string, generatedImagePaths []string, fileWarning *string, metadata map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.Files[fileID]
	if !ok {
		return false, nil
	}
	f.Status = "VALID"
	if newFileKey != nil {
		f.FilePath = *newFileKey
	}
	if fileWarning != nil {
		f.ErrorMsg = *fileWarning
	}
	if metadata != nil {
		f.Metadata = metadata
	}

	for _, path := range generatedImagePaths {
		r.genSeq++
		id := "gen-" + strconv.Itoa(r.genSeq)
		r.Files[id] = &FakeFile{ID: id, ListingID: listingID, Status: "VALID", FilePath: path, IsGenerated: true}
	}

	pending := 0
	failed := 0
	for _, other := range r.Files {
		if other.ListingID != listingID {
			continue
		}
		switch other.Status {
		case "PENDING":
			pending++
		case "FAILED", "INVALID":
			failed++
		}
	}

	if pending > 0 {
		return false, nil
	}

	listing := r.Listings[listingID]
	if failed > 0 {
		listing.Status = "REJECTED"
		return false, nil
	}

	if listing.Status != "ACTIVE" {
		listing.Status = "ACTIVE"
		return true, nil
	}
	return false, nil
}

func (r *FakeRepository) MarkFileFailed(ctx context.Context, fileID, errMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.Files[fileID]; ok {
		f.Status = "FAILED"
		f.ErrorMsg = errMessage
	}
	return nil
}

func (r *FakeRepository) MarkFileInvalid(ctx context.Context, fileID, errMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.Files[fileID]; ok {
		f.Status = "INVALID"
		f.ErrorMsg = errMessage
	}
	return nil
}

func (r *FakeRepository) HealthCheck(ctx context.Context) error {
	return nil
}
