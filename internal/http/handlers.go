package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/city-weather/internal/circuitbreaker"
	"github.com/kjstillabower/city-weather/internal/display"
	"github.com/kjstillabower/city-weather/internal/lifecycle"
	"github.com/kjstillabower/city-weather/internal/models"
	"github.com/kjstillabower/city-weather/internal/observability"
	"github.com/kjstillabower/city-weather/internal/service"
	"github.com/kjstillabower/city-weather/internal/traffic"
	"github.com/kjstillabower/city-weather/internal/trigger"
)

// Error codes in the JSON error envelope.
const (
	CodeInvalidCity         = "INVALID_CITY"
	CodeCityNotFound        = "CITY_NOT_FOUND"
	CodeLookupInProgress    = "LOOKUP_IN_PROGRESS"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeRateLimited         = "RATE_LIMITED"
)

const outcomeBusy = "busy"

// Lookuper runs one city lookup. *service.WeatherService implements it.
type Lookuper interface {
	Lookup(ctx context.Context, city string) (models.Report, error)
}

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// Breakers are reported under checks. An open breaker does not change
	// the overall status because air quality is optional.
	Breakers []*circuitbreaker.CircuitBreaker
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	lookups          Lookuper
	guard            *trigger.Guard
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. A nil guard gets a fresh one.
func NewHandler(lookups Lookuper, guard *trigger.Guard, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if guard == nil {
		guard = trigger.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		lookups:      lookups,
		guard:        guard,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

type weatherResponse struct {
	Report models.Report `json:"report"`
	Card   display.Card  `json:"card"`
}

// GetWeather handles GET /weather/{city}.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	report, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, weatherResponse{Report: report, Card: display.Render(report)})
}

// GetCard handles GET /weather/{city}/card and returns the rendered text card.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	report, ok := h.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = display.WriteCard(w, display.Render(report))
}

// lookup runs one guarded lookup for the {city} route variable. On failure it
// writes the error response and returns false.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (models.Report, bool) {
	city := mux.Vars(r)["city"]

	if !h.guard.TryAcquire() {
		traffic.RecordDenied()
		observability.RecordLookup(outcomeBusy)
		writeError(w, r, http.StatusConflict, CodeLookupInProgress, "A lookup is already in progress. Try again shortly.")
		return models.Report{}, false
	}
	defer h.guard.Release()

	report, err := h.lookups.Lookup(r.Context(), city)
	if err != nil {
		var re *service.RetrievalError
		if errors.As(err, &re) {
			traffic.RecordFailure()
		} else {
			traffic.RecordSuccess()
		}
		writeLookupError(w, r, err)
		return models.Report{}, false
	}
	traffic.RecordSuccess()
	return report, true
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{
		"upstreams": "healthy",
		"lookup":    "idle",
	}
	if result.status == "degraded" {
		checks["upstreams"] = "unhealthy"
	}
	if h.guard.Busy() {
		checks["lookup"] = "busy"
	}
	if h.healthConfig != nil {
		for _, cb := range h.healthConfig.Breakers {
			checks[cb.Component()] = cb.State().String()
		}
	}

	now := time.Now()
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "city-weather",
		"version":   "dev",
		"checks":    checks,
		"uptime":    lifecycle.Uptime(now).Truncate(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if traffic.Overloaded(h.healthConfig.OverloadWindow, h.healthConfig.RateLimitRPS, h.healthConfig.OverloadThresholdPct) {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	if traffic.Degraded(h.healthConfig.DegradedWindow, h.healthConfig.DegradedErrorPct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v, ok := r.Context().Value("correlation_id").(string); ok {
		corrID = v
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// lookupErrorStatus maps the lookup error taxonomy to a status and code.
func lookupErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCity):
		return http.StatusBadRequest, CodeInvalidCity
	case errors.Is(err, service.ErrCityNotFound):
		return http.StatusNotFound, CodeCityNotFound
	default:
		return http.StatusBadGateway, CodeUpstreamUnavailable
	}
}

// writeLookupError writes the user-facing notice for err under its mapped status.
func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := lookupErrorStatus(err)
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("lookup error", zap.String("code", code), zap.Error(err))
	}
	writeError(w, r, status, code, display.NoticeFor(err).Message)
}
