package models

import (
	"fmt"
	"time"
)

// Kind identifies one of the simulated energy sources.
type Kind string

const (
	Solar      Kind = "Solar"
	Wind       Kind = "Wind"
	Battery    Kind = "Battery"
	Factory    Kind = "Factory"
	Hydro      Kind = "Hydro"
	Geothermal Kind = "Geothermal"
	Nuclear    Kind = "Nuclear"
)

// Kinds lists every energy source in the order the tick loop processes them.
// The order is fixed so every tick produces records deterministically.
var Kinds = []Kind{Solar, Wind, Battery, Factory, Hydro, Geothermal, Nuclear}

// Routes are the transport-path labels a record can be tagged with.
// A route is drawn independently per record and carries no correlation
// with the kind or the generated value.
var Routes = []string{"A", "B", "C", "D"}

// ValidKind reports whether s names a known energy source.
func ValidKind(s string) bool {
	for _, k := range Kinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

// ValidRoute reports whether s is one of the known route labels.
func ValidRoute(s string) bool {
	for _, r := range Routes {
		if r == s {
			return true
		}
	}
	return false
}

// Profile holds the normal-distribution parameters for one kind's draw.
type Profile struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// DefaultProfiles are the simulation parameters used when the config file
// does not override them. Every kind must have an entry.
var DefaultProfiles = map[Kind]Profile{
	Solar:      {Mean: 50, StdDev: 10},
	Wind:       {Mean: 40, StdDev: 8},
	Battery:    {Mean: 30, StdDev: 15},
	Factory:    {Mean: 70, StdDev: 20},
	Hydro:      {Mean: 60, StdDev: 12},
	Geothermal: {Mean: 35, StdDev: 7},
	Nuclear:    {Mean: 90, StdDev: 10},
}

// TickRecord is the immutable result of advancing one kind by one tick.
// It is the unit handed to the persistence writer and the row shape
// returned by history queries.
type TickRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"energy_type"`
	Value     float64   `json:"value"`
	Outgoing  float64   `json:"outgoing"`
	Loss      float64   `json:"loss"`
	Storage   float64   `json:"storage"`
	RouteName string    `json:"route_name"`
}

// KindReading is the per-kind payload pushed to stream observers.
type KindReading struct {
	Value     float64 `json:"value"`
	Outgoing  float64 `json:"outgoing"`
	Loss      float64 `json:"loss"`
	Storage   float64 `json:"storage"`
	RouteName string  `json:"route_name"`
}

// TickPoint aggregates the readings of all kinds for one timestamp.
// The timestamp uses the wall-clock "HH:MM:SS" wire format.
type TickPoint struct {
	Timestamp string               `json:"timestamp"`
	Data      map[Kind]KindReading `json:"data"`
}

// TickSnapshot is the message delivered to every observer each tick:
// the current point plus a trailing window of prior points.
type TickSnapshot struct {
	TickPoint
	History []TickPoint `json:"history"`
}

// AnomalyRecord is an externally submitted anomaly observation. Anomalies
// are written on demand, persisted append-only and queryable by date parts.
type AnomalyRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"energy_type"`
	RouteName string    `json:"route_name"`
	Value     float64   `json:"value"`
}

// HistoryFilter narrows a history query. Zero values mean "no restriction".
// Filters are conjunctive.
type HistoryFilter struct {
	Kind  string
	Route string
	Start *time.Time
	End   *time.Time
}

// AnomalyFilter narrows an anomaly query. Zero values mean "no restriction".
type AnomalyFilter struct {
	Month int
	Day   int
	Start *time.Time
	End   *time.Time
}

// SeriesPoint is one (timestamp, value) observation handed to the
// forecasting collaborator.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Prediction is one forecasted point returned by the collaborator.
type Prediction struct {
	Timestamp      time.Time `json:"timestamp"`
	PredictedValue float64   `json:"predicted_value"`
	Trend          float64   `json:"trend"`
}

// SessionStats accumulates per-kind totals over the lifetime of the tick
// loop, for the shutdown report.
type SessionStats struct {
	Ticks     int64
	Generated float64
	Outgoing  float64
	Loss      float64
	Storage   float64
}

// ValidationError reports a missing or malformed field on a submission or
// query filter. It is returned before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps a failure of the persistence backend. It is always
// non-fatal to the tick loop.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrInsufficientData is returned when a forecast is requested with fewer
// historical points than the minimum-sample gate allows.
var ErrInsufficientData = fmt.Errorf("insufficient data")
