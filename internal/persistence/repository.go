// Package persistence contains the durable-storage backends: the SQL store
// for readings and anomalies, and the BadgerDB store for ledger snapshots.
package persistence

import (
	"context"

	"energy-flow-monitor-go/internal/models"
)

// Row caps enforced server-side regardless of filter selectivity.
const (
	HistoryLimit = 500  // max rows returned by a history query
	AnomalyLimit = 100  // max rows returned by an anomaly query
	SeriesLimit  = 1000 // max rows fed into a forecast
)

// TickRepository persists per-tick readings append-only and answers
// filtered range queries over them.
type TickRepository interface {
	// Append durably records one reading. There is no update or delete path.
	Append(ctx context.Context, rec models.TickRecord) error

	// History returns readings matching the filter, most recent first,
	// capped at HistoryLimit rows.
	History(ctx context.Context, filter models.HistoryFilter) ([]models.TickRecord, error)

	// Series returns the (timestamp, value) pairs for one (kind, route),
	// oldest first, capped at SeriesLimit rows. This feeds the forecaster.
	Series(ctx context.Context, kind, route string) ([]models.SeriesPoint, error)
}

// AnomalyRepository persists anomaly submissions append-only and answers
// date-part filtered queries over them.
type AnomalyRepository interface {
	// Insert durably records one anomaly.
	Insert(ctx context.Context, rec models.AnomalyRecord) error

	// Query returns anomalies matching the filter, most recent first,
	// capped at AnomalyLimit rows.
	Query(ctx context.Context, filter models.AnomalyFilter) ([]models.AnomalyRecord, error)
}

// Repository is the combined durable store backing the live loop and the
// query service.
type Repository interface {
	TickRepository
	AnomalyRepository

	// Close gracefully closes the connection to the database.
	Close() error
}

// StateRepository persists ledger snapshots so a restart can optionally
// resume from the last known storage levels.
type StateRepository interface {
	// SaveState atomically saves the entire ledger snapshot.
	SaveState(state *models.SimState) error

	// LoadState loads the last snapshot from storage.
	// If no snapshot is found, it returns (nil, nil).
	LoadState() (*models.SimState, error)

	// Close gracefully closes the connection to the database.
	Close() error
}
