package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"energy-flow-monitor-go/internal/models"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPClient talks to the external forecasting service over HTTP. One
// request per forecast; retries are off by default so the at-most-one-attempt
// contract holds, but deployments may raise retry_max without affecting
// callers.
type HTTPClient struct {
	url    string
	client *http.Client
}

// NewHTTPClient creates a forecaster client from the config.
func NewHTTPClient(cfg models.ForecastConfig) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	rc.Logger = nil
	// Hand back the last response instead of discarding it, so an error
	// body from the service can still be surfaced to the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPClient{
		url:    cfg.URL,
		client: rc.StandardClient(),
	}
}

// predictRequest is the wire request sent to the forecasting service.
type predictRequest struct {
	Series  []models.SeriesPoint `json:"series"`
	Periods int                  `json:"periods"`
}

// predictResponse is the wire response from the forecasting service.
type predictResponse struct {
	Forecast []models.Prediction `json:"forecast"`
	Error    string              `json:"error,omitempty"`
}

// Predict posts the ordered series and returns the service's predictions.
func (c *HTTPClient) Predict(ctx context.Context, series []models.SeriesPoint) ([]models.Prediction, error) {
	body, err := json.Marshal(predictRequest{Series: series, Periods: Horizon})
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast service unreachable: %w", err)
	}
	defer resp.Body.Close()

	var parsed predictResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && parsed.Error != "" {
			return nil, fmt.Errorf("forecast service error: %s", parsed.Error)
		}
		return nil, fmt.Errorf("forecast service returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", decodeErr)
	}

	return parsed.Forecast, nil
}
