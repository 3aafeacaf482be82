package handlers

import (
	"net/http"
	"time"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/database"
)

// HealthHandler reports service liveness and readiness.
type HealthHandler struct {
	dbEnabled bool
}

// NewHealthHandler creates a health handler. dbEnabled selects whether
// readiness includes a database ping.
func NewHealthHandler(dbEnabled bool) *HealthHandler {
	return &HealthHandler{dbEnabled: dbEnabled}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health reports overall service health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	if h.dbEnabled {
		if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
			response.Services["database"] = "unhealthy"
			response.Status = "degraded"
		} else {
			response.Services["database"] = "healthy"
		}
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// Ready reports whether the service can accept requests.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.dbEnabled {
		if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
			http.Error(w, "Service not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
