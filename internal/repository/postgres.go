package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/jordigilh/assetvalidator/internal/failure"
	"github.com/jordigilh/assetvalidator/internal/retry"
)

// PostgresListingRepository implements ListingRepository over
// database/sql with the jackc/pgx/v5 stdlib driver. It mirrors the
// original service's asyncpg transaction exactly: one connection-level
// transaction per CompleteFileValidation call, a row lock taken before
// any conditional update, and the same pending/failed sibling-count
// decision tree. Every call runs through a shared retry.Breaker so a
// Postgres outage trips open and fails fast instead of piling up
// transient retries against a dependency that isn't coming back soon.
type PostgresListingRepository struct {
	db      *sql.DB
	logger  *zap.Logger
	breaker *retry.Breaker
}

// NewPostgresListingRepository wraps an already-configured *sql.DB (built
// by the caller via pgx's stdlib driver, e.g. sql.Open("pgx", dsn)).
func NewPostgresListingRepository(db *sql.DB, logger *zap.Logger) *PostgresListingRepository {
	return &PostgresListingRepository{db: db, logger: logger, breaker: retry.NewBreaker("postgres")}
}

// withRetry runs fn through the breaker, retrying transient failures
// with retry.DatabaseConfig's backoff while the breaker stays closed.
// Reserved for single-statement calls that are safe to replay outright
// (MarkFileFailed/MarkFileInvalid); CompleteFileValidation's multi-
// statement transaction only runs through the breaker (withBreaker), not
// a retry loop, since automatically replaying an entire transaction
// blurs which attempt's rollback actually applied.
func (r *PostgresListingRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.breaker.Do(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, retry.DatabaseConfig(), fn)
	})
}

// withBreaker runs fn through the breaker without a retry loop.
func (r *PostgresListingRepository) withBreaker(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.breaker.Do(ctx, fn)
}

func (r *PostgresListingRepository) CompleteFileValidation(
	ctx context.Context,
	fileID, listingID string,
	newFileKey *string,
	generatedImagePaths []string,
	fileWarning *string,
	metadata map[string]any,
) (bool, error) {
	var activated bool
	err := r.withBreaker(ctx, func(ctx context.Context) error {
		a, err := r.completeFileValidation(ctx, fileID, listingID, newFileKey, generatedImagePaths, fileWarning, metadata)
		if err != nil {
			return err
		}
		activated = a
		return nil
	})
	return activated, err
}

func (r *PostgresListingRepository) completeFileValidation(
	ctx context.Context,
	fileID, listingID string,
	newFileKey *string,
	generatedImagePaths []string,
	fileWarning *string,
	metadata map[string]any,
) (bool, error) {
	log := r.logger.With(zap.String("file_id", fileID), zap.String("listing_id", listingID))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, failure.TransientFrom(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	for _, path := range generatedImagePaths {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO listing_files (listing_id, file_path, file_type, status, is_generated, source_file_id)
			 VALUES ($1, $2, 'IMAGE', 'VALID', TRUE, $3)`,
			listingID, path, fileID,
		); err != nil {
			return false, failure.TransientFrom(err, "failed to insert generated file %q", path)
		}
	}

	// Row-lock the listing before any conditional read/update so two
	// workers completing sibling files never observe a stale pending count.
	if _, err := tx.ExecContext(ctx, `SELECT 1 FROM listings WHERE id=$1 FOR UPDATE`, listingID); err != nil {
		return false, failure.TransientFrom(err, "failed to lock listing")
	}

	if newFileKey != nil {
		var isThumbnail bool
		row := tx.QueryRowContext(ctx,
			`SELECT CASE WHEN file_path = (SELECT thumbnail_path FROM listings WHERE id=$1) THEN TRUE ELSE FALSE END
			 FROM listing_files WHERE id=$2`,
			listingID, fileID,
		)
		if err := row.Scan(&isThumbnail); err != nil {
			return false, failure.TransientFrom(err, "failed to check thumbnail status")
		}

		if isThumbnail {
			if _, err := tx.ExecContext(ctx, `UPDATE listings SET thumbnail_path=$1 WHERE id=$2`, *newFileKey, listingID); err != nil {
				return false, failure.TransientFrom(err, "failed to update thumbnail path")
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE listing_files SET status='VALID', file_path=$1 WHERE id=$2`, *newFileKey, fileID); err != nil {
			return false, failure.TransientFrom(err, "failed to mark file valid")
		}
	} else {
		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return false, failure.PermanentFrom(err, "failed to marshal file metadata")
		}
		if fileWarning != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE listing_files SET status='VALID', error_message=$1, metadata=$2 WHERE id=$3`,
				*fileWarning, metaJSON, fileID,
			); err != nil {
				return false, failure.TransientFrom(err, "failed to mark file valid with warning")
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE listing_files SET status='VALID', metadata=$1 WHERE id=$2`, metaJSON, fileID,
			); err != nil {
				return false, failure.TransientFrom(err, "failed to mark file valid")
			}
		}
	}

	var pendingCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM listing_files WHERE listing_id=$1 AND status = 'PENDING'`, listingID,
	).Scan(&pendingCount); err != nil {
		return false, failure.TransientFrom(err, "failed to count pending files")
	}
	if pendingCount > 0 {
		if err := tx.Commit(); err != nil {
			return false, failure.TransientFrom(err, "failed to commit transaction")
		}
		return false, nil
	}

	var failedCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM listing_files WHERE listing_id=$1 AND status IN ('FAILED', 'INVALID')`, listingID,
	).Scan(&failedCount); err != nil {
		return false, failure.TransientFrom(err, "failed to count failed files")
	}

	activated := false
	if failedCount > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE listings SET status='REJECTED' WHERE id=$1`, listingID); err != nil {
			return false, failure.TransientFrom(err, "failed to reject listing")
		}
		log.Info("listing rejected", zap.Int("failed_files", failedCount))
	} else {
		res, err := tx.ExecContext(ctx, `UPDATE listings SET status='ACTIVE' WHERE id=$1 AND status != 'ACTIVE'`, listingID)
		if err != nil {
			return false, failure.TransientFrom(err, "failed to activate listing")
		}
		rows, _ := res.RowsAffected()
		activated = rows > 0
		if activated {
			log.Info("listing activated")
		}
	}

	if err := tx.Commit(); err != nil {
		return false, failure.TransientFrom(err, "failed to commit transaction")
	}
	return activated, nil
}

func (r *PostgresListingRepository) MarkFileFailed(ctx context.Context, fileID, errMessage string) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE listing_files SET status='FAILED', error_message=$1 WHERE id=$2`, errMessage, fileID,
		); err != nil {
			return failure.TransientFrom(err, "failed to mark file %s failed", fileID)
		}
		return nil
	})
}

func (r *PostgresListingRepository) MarkFileInvalid(ctx context.Context, fileID, errMessage string) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE listing_files SET status='INVALID', error_message=$1 WHERE id=$2`, errMessage, fileID,
		); err != nil {
			return failure.TransientFrom(err, "failed to mark file %s invalid", fileID)
		}
		return nil
	})
}

// HealthCheck reports the breaker's own state first: an open breaker
// means Postgres has already been failing consistently, so there's no
// reason to spend a real ping finding that out again.
func (r *PostgresListingRepository) HealthCheck(ctx context.Context) error {
	if r.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("health check failed: circuit breaker open")
	}
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
