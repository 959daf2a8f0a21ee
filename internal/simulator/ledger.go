package simulator

import (
	"time"

	"energy-flow-monitor-go/internal/models"
)

// Capacity is the process-wide storage bound shared by every kind.
const Capacity = 500.0

// Ledger owns the authoritative running storage level per kind. All levels
// start at zero and are mutated exactly once per tick per kind by Advance.
// The tick loop is the single writer; no other component touches the levels.
type Ledger struct {
	levels map[models.Kind]float64
}

// NewLedger creates a ledger with every kind's level at zero.
func NewLedger() *Ledger {
	levels := make(map[models.Kind]float64, len(models.Kinds))
	for _, kind := range models.Kinds {
		levels[kind] = 0.0
	}
	return &Ledger{levels: levels}
}

// Advance applies one sample to kind's storage level and returns the
// finished record. The new level is
//
//	clamp(previous + value - outgoing - loss, 0, Capacity)
//
// which is the single bound-enforcement point of the system.
func (l *Ledger) Advance(ts time.Time, kind models.Kind, s Sample, route string) models.TickRecord {
	storage := l.levels[kind] + s.Value - s.Outgoing - s.Loss
	if storage > Capacity {
		storage = Capacity
	}
	if storage < 0 {
		storage = 0
	}
	l.levels[kind] = storage

	return models.TickRecord{
		Timestamp: ts,
		Kind:      kind,
		Value:     s.Value,
		Outgoing:  s.Outgoing,
		Loss:      s.Loss,
		Storage:   storage,
		RouteName: route,
	}
}

// Level returns the current storage level of kind.
func (l *Ledger) Level(kind models.Kind) float64 {
	return l.levels[kind]
}

// Snapshot returns a copy of all levels. The copy is what gets persisted
// and reported; live ledger state is never handed out.
func (l *Ledger) Snapshot() map[models.Kind]float64 {
	out := make(map[models.Kind]float64, len(l.levels))
	for k, v := range l.levels {
		out[k] = v
	}
	return out
}

// Restore overwrites the levels from a persisted snapshot, clamping each
// value into [0, Capacity]. Kinds absent from the snapshot stay at zero.
func (l *Ledger) Restore(levels map[models.Kind]float64) {
	for _, kind := range models.Kinds {
		level, ok := levels[kind]
		if !ok {
			continue
		}
		if level > Capacity {
			level = Capacity
		}
		if level < 0 {
			level = 0
		}
		l.levels[kind] = level
	}
}
