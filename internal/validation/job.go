// Package validation parses and structurally validates the job envelope
// carried on every bus message, before any file is touched.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jordigilh/assetvalidator/internal/failure"
)

// Job is one validation request decoded off the bus.
type Job struct {
	TraceID   string
	FileID    string
	ListingID string
	UserID    string
	FileKey   string
	FileType  string // "image" | "model"
}

type rawJob struct {
	TraceID   string `json:"trace_id"`
	FileID    string `json:"file_id"`
	ListingID string `json:"listing_id"`
	UserID    string `json:"user_id"`
	FileKey   string `json:"file_key"`
	FileType  string `json:"file_type"`
}

// ParseJob decodes the raw bus payload and checks that every required
// field is present and that file_type is a supported value.
//
// A JSON syntax error is returned unwrapped, not as a *failure.Error:
// the caller has no file_id to attribute the failure to, so it must ack
// the message without writing to the database. A structurally invalid
// but well-formed payload returns a *failure.Error(Permanent) alongside
// the partially populated Job, so the caller can still mark file_id
// invalid when one was present.
func ParseJob(data []byte) (Job, error) {
	var raw rawJob
	if err := json.Unmarshal(data, &raw); err != nil {
		return Job{}, fmt.Errorf("payload is not valid JSON: %w", err)
	}

	job := Job{
		TraceID:   raw.TraceID,
		FileID:    raw.FileID,
		ListingID: raw.ListingID,
		UserID:    raw.UserID,
		FileKey:   raw.FileKey,
		FileType:  raw.FileType,
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}

	if err := job.validate(); err != nil {
		return job, err
	}
	return job, nil
}

func (j Job) validate() error {
	var missing []string
	if j.FileID == "" {
		missing = append(missing, "file_id")
	}
	if j.ListingID == "" {
		missing = append(missing, "listing_id")
	}
	if j.UserID == "" {
		missing = append(missing, "user_id")
	}
	if j.FileKey == "" {
		missing = append(missing, "file_key")
	}
	if j.FileType == "" {
		missing = append(missing, "file_type")
	}
	if len(missing) > 0 {
		return failure.Permanent("missing required fields: %s", strings.Join(missing, ", "))
	}

	if j.FileType != "image" && j.FileType != "model" {
		return failure.Permanent("unsupported file type %q: only image and model are supported", j.FileType)
	}
	return nil
}
