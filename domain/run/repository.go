package run

import "context"

// Repository persists run records.
type Repository interface {
	// Save inserts or replaces a record by ID.
	Save(ctx context.Context, rec *Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]*Record, error)
}
