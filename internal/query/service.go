// Package query answers historical range queries, anomaly reads/writes and
// forecast requests against the persisted store. It is independent of the
// live loop except for sharing the same database.
package query

import (
	"context"

	"energy-flow-monitor-go/internal/forecast"
	"energy-flow-monitor-go/internal/models"
	"energy-flow-monitor-go/internal/persistence"
)

// MinForecastSamples is the minimum number of historical points required
// before the forecasting collaborator is consulted at all.
const MinForecastSamples = 20

// Service validates requests and delegates to the repositories and the
// forecasting collaborator.
type Service struct {
	ticks      persistence.TickRepository
	anomalies  persistence.AnomalyRepository
	forecaster forecast.Forecaster
}

// NewService creates a query service.
func NewService(ticks persistence.TickRepository, anomalies persistence.AnomalyRepository, forecaster forecast.Forecaster) *Service {
	return &Service{
		ticks:      ticks,
		anomalies:  anomalies,
		forecaster: forecaster,
	}
}

// History returns persisted readings matching the filter, most recent
// first, capped at the server-side row limit. All filter fields are
// optional and conjunctive.
func (s *Service) History(ctx context.Context, filter models.HistoryFilter) ([]models.TickRecord, error) {
	if filter.Kind != "" && !models.ValidKind(filter.Kind) {
		return nil, &models.ValidationError{Field: "energy_type", Reason: "unknown kind"}
	}
	if filter.Route != "" && !models.ValidRoute(filter.Route) {
		return nil, &models.ValidationError{Field: "route_name", Reason: "unknown route"}
	}
	return s.ticks.History(ctx, filter)
}

// Anomalies returns persisted anomalies matching the filter, most recent
// first, capped at the server-side row limit.
func (s *Service) Anomalies(ctx context.Context, filter models.AnomalyFilter) ([]models.AnomalyRecord, error) {
	if filter.Month != 0 && (filter.Month < 1 || filter.Month > 12) {
		return nil, &models.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if filter.Day != 0 && (filter.Day < 1 || filter.Day > 31) {
		return nil, &models.ValidationError{Field: "day", Reason: "must be between 1 and 31"}
	}
	return s.anomalies.Query(ctx, filter)
}

// RecordAnomaly validates and persists one anomaly submission. Validation
// happens before any write; a rejected record leaves no partial state.
func (s *Service) RecordAnomaly(ctx context.Context, rec models.AnomalyRecord) error {
	if rec.Timestamp.IsZero() {
		return &models.ValidationError{Field: "timestamp", Reason: "required"}
	}
	if !models.ValidKind(string(rec.Kind)) {
		return &models.ValidationError{Field: "energy_type", Reason: "unknown kind"}
	}
	if !models.ValidRoute(rec.RouteName) {
		return &models.ValidationError{Field: "route_name", Reason: "unknown route"}
	}
	return s.anomalies.Insert(ctx, rec)
}

// Forecast fetches the historical series for (kind, route) and delegates
// to the forecasting collaborator. Fewer than MinForecastSamples points
// yields ErrInsufficientData without consulting the collaborator.
func (s *Service) Forecast(ctx context.Context, kind, route string) ([]models.Prediction, error) {
	if !models.ValidKind(kind) {
		return nil, &models.ValidationError{Field: "energy_type", Reason: "unknown kind"}
	}
	if !models.ValidRoute(route) {
		return nil, &models.ValidationError{Field: "route_name", Reason: "unknown route"}
	}

	series, err := s.ticks.Series(ctx, kind, route)
	if err != nil {
		return nil, err
	}
	if len(series) < MinForecastSamples {
		return nil, models.ErrInsufficientData
	}

	return s.forecaster.Predict(ctx, series)
}
