// Package store persists integration records. Two implementations exist:
// an in-memory map with an optional JSON snapshot file, and a sqlite-backed
// store. Callers depend only on the Store interface.
package store

import (
	"context"

	"github.com/adboardhq/adboard/internal/integration"
)

// Store is the key-value storage contract for integration records.
// Get returns (nil, nil) when no record exists for the id; absence is
// equivalent to "not connected". ListByUser returns redacted projections
// only, newest connection first. Delete is idempotent and reports whether
// a record was removed.
type Store interface {
	Put(ctx context.Context, rec *integration.Record) error
	Get(ctx context.Context, id string) (*integration.Record, error)
	ListByUser(ctx context.Context, userID string) ([]integration.Redacted, error)
	Delete(ctx context.Context, id string) (bool, error)
}
