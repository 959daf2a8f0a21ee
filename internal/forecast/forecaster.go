// Package forecast defines the narrow boundary to the external statistical
// forecasting collaborator and its HTTP implementation.
package forecast

import (
	"context"

	"energy-flow-monitor-go/internal/models"
)

// Horizon is the number of future periods a forecast covers.
const Horizon = 5

// Forecaster consumes a time-ordered series of historical readings and
// returns the predicted points for the next Horizon periods. The
// implementation is an opaque external service.
type Forecaster interface {
	Predict(ctx context.Context, series []models.SeriesPoint) ([]models.Prediction, error)
}
