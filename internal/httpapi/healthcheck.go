package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/SeitzDaniel/auckland-transport/internal/utils"
)

// ConnectionChecker reports whether the MQTT session is currently up.
type ConnectionChecker interface {
	IsConnected() bool
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db     *sql.DB
	broker ConnectionChecker
}

func NewHealthchecker(db *sql.DB, broker ConnectionChecker) healthchecker {
	return &healthcheckerImpl{db: db, broker: broker}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRow(`SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if h.broker != nil && !h.broker.IsConnected() {
		utils.WriteError(w, http.StatusServiceUnavailable, "mqtt disconnected")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, broker ConnectionChecker) {
	healthchecker := NewHealthchecker(db, broker)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
