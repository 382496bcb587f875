package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/city-weather/internal/models"
	"github.com/kjstillabower/city-weather/internal/observability"
)

// Geocoder resolves a city name to a single best-matching location.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (models.Location, error)
}

// ForecastClient fetches current conditions for coordinates.
type ForecastClient interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (models.CurrentConditions, error)
}

// AirQualityProvider is one source of air quality readings. A reading with a nil
// Index and a nil error means the source answered but had no usable value.
type AirQualityProvider interface {
	Name() string
	CurrentAirQuality(ctx context.Context, lat, lon float64) (models.AirQualityReading, error)
}

var (
	ErrLocationNotFound  = errors.New("location not found")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
)

// upstream is the shared GET+JSON plumbing for every provider. Each call gets
// its own timeout; there are no retries.
type upstream struct {
	provider string
	baseURL  *url.URL
	timeout  time.Duration
	client   *http.Client
}

func newUpstream(provider, apiURL string, timeout time.Duration) (*upstream, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("%s: API URL is required", provider)
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid API URL: %w", provider, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: API URL must be http or https, got %q", provider, apiURL)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%s: timeout must be positive", provider)
	}
	return &upstream{
		provider: provider,
		baseURL:  u,
		timeout:  timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// getJSON issues GET {base}{path}?{params} and decodes the body into dst.
func (u *upstream) getJSON(ctx context.Context, path string, params url.Values, dst interface{}) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	target := *u.baseURL
	target.Path += path
	target.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		observability.RecordUpstreamCall(u.provider, "error", time.Since(start))
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		observability.RecordUpstreamCall(u.provider, "error", time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s request timeout: %w", u.provider, err)
		}
		return fmt.Errorf("%s http request failed: %w", u.provider, err)
	}
	defer resp.Body.Close()

	observability.RecordUpstreamCall(u.provider, statusLabel(resp.StatusCode), time.Since(start))

	if err := handleErrorResponse(resp); err != nil {
		return fmt.Errorf("%s: %w", u.provider, err)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: %w: %v", u.provider, ErrMalformedResponse, err)
	}
	return nil
}

func handleErrorResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// formatCoord renders a coordinate with the shortest exact representation.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
