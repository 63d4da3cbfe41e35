package v1

import (
	"context"
	"net/http"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"
)

type HealthHandler struct {
	healthService port.HealthService
}

func NewHealthHandler(
	healthService port.HealthService,
) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  int64             `json:"timestamp"`
	Uptime     float64           `json:"uptime"`
	Message    string            `json:"message,omitempty"`
}

// GetSystemHealth handles GET /health
func (h *HealthHandler) GetSystemHealth(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "failed to get system health", func(ctx context.Context) (*domain.HealthStatus, error) {
		return h.healthService.GetSystemHealth(ctx)
	})
}

// GetDetailedHealth handles GET /health/detailed
func (h *HealthHandler) GetDetailedHealth(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "failed to get detailed health", func(ctx context.Context) (*domain.HealthStatus, error) {
		return h.healthService.GetDetailedHealth(ctx)
	})
}

func (h *HealthHandler) serve(w http.ResponseWriter, r *http.Request, action string,
	fetch func(context.Context) (*domain.HealthStatus, error)) {
	if h.healthService == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "health service not available")
		return
	}

	healthStatus, err := fetch(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, action+": "+err.Error())
		return
	}

	response := HealthResponse{
		Status:     healthStatus.Status,
		Components: healthStatus.Components,
		Timestamp:  healthStatus.Timestamp,
		Uptime:     healthStatus.Uptime,
		Message:    healthStatus.Message,
	}

	statusCode := http.StatusOK
	switch healthStatus.Status {
	case "unhealthy":
		statusCode = http.StatusServiceUnavailable
	case "degraded", "healthy":
		statusCode = http.StatusOK
	default:
		statusCode = http.StatusInternalServerError
	}

	writeJSONResponse(w, statusCode, response)
}
