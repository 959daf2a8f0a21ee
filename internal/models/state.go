package models

import "time"

// SimState is the persisted snapshot of the storage ledger. It is saved
// periodically and on graceful shutdown so a restart can optionally resume
// from the last known levels instead of starting at zero.
type SimState struct {
	Version  int              `json:"version"`  // state model version, for future migrations
	Levels   map[Kind]float64 `json:"levels"`   // last known storage level per kind
	LastTick time.Time        `json:"last_tick"` // timestamp of the tick the levels belong to
	SavedAt  time.Time        `json:"saved_at"`
}
