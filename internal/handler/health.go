package handler

import (
	"net/http"
	"time"

	"github.com/sakif/whiteboard/internal/service"
)

// StatsSource reports live counts. *service.Registry implements it.
type StatsSource interface {
	Stats() service.Stats
}

// HealthHandler serves liveness and discovery endpoints.
type HealthHandler struct {
	stats   StatsSource
	started time.Time
	now     func() time.Time
}

func NewHealthHandler(stats StatsSource, started time.Time) *HealthHandler {
	return &HealthHandler{stats: stats, started: started, now: time.Now}
}

// HealthResponse is the body of GET /health. Uptime is in seconds.
type HealthResponse struct {
	Status      string  `json:"status"`
	ActiveRooms int     `json:"activeRooms"`
	ActiveUsers int     `json:"activeUsers"`
	Uptime      float64 `json:"uptime"`
}

// HandleHealth reports process health and room/user counts.
//
// HTTP: GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s := h.stats.Stats()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		ActiveRooms: s.ActiveRooms,
		ActiveUsers: s.ActiveUsers,
		Uptime:      h.now().Sub(h.started).Seconds(),
	})
}

// HandleTest is a trivial "is the API reachable" probe.
//
// HTTP: GET /api/test
func (h *HealthHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "API is working",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Endpoints is listed by HandleIndex.
var Endpoints = []string{
	"GET /health",
	"GET /api/test",
	"POST /api/rooms/create",
	"GET /api/rooms",
	"GET /api/rooms/{roomId}",
	"GET /api/rooms/{roomId}/export.pdf",
	"GET /ws",
}

// HandleIndex lists the available endpoints with current totals.
//
// HTTP: GET /api
func (h *HealthHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	s := h.stats.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":            "API root endpoint hit",
		"availableEndpoints": Endpoints,
		"totalRooms":         s.ActiveRooms,
		"totalUsers":         s.ActiveUsers,
	})
}

// HandleNotFound answers unknown routes in the standard error shape.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Route not found",
	})
}
