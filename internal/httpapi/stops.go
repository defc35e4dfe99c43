package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/SeitzDaniel/auckland-transport/internal/httpapi/views"
	"github.com/SeitzDaniel/auckland-transport/internal/store"
	"github.com/SeitzDaniel/auckland-transport/internal/utils"
)

type stopsController struct {
	repo store.Repository
}

func registerStops(mux *http.ServeMux, repo store.Repository) {
	c := &stopsController{repo: repo}
	mux.HandleFunc("GET /", c.handleBoard)
	mux.HandleFunc("GET /api/v1/stops", c.handleStops)
	mux.HandleFunc("GET /api/v1/stops/{id}", c.handleStop)
}

type stopResponse struct {
	StopID     string          `json:"stop_id"`
	Code       string          `json:"stop_code,omitempty"`
	Name       string          `json:"stop_name,omitempty"`
	State      string          `json:"state"`
	PolledAt   time.Time       `json:"polled_at"`
	Attributes json.RawMessage `json:"attributes"`
}

func (c *stopsController) handleStops(w http.ResponseWriter, r *http.Request) {
	results, err := c.repo.ListResults()
	if err != nil {
		slog.Error("list stops failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stops")
		return
	}

	out := make([]stopResponse, 0, len(results))
	for _, rec := range results {
		out = append(out, c.toResponse(rec))
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (c *stopsController) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing stop id")
		return
	}

	rec, err := c.repo.GetResult(id)
	if err != nil {
		slog.Error("get stop failed", "stop_id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stop")
		return
	}
	if rec == nil {
		utils.WriteError(w, http.StatusNotFound, "unknown stop id")
		return
	}
	utils.WriteJSON(w, http.StatusOK, c.toResponse(*rec))
}

func (c *stopsController) toResponse(rec store.ResultRecord) stopResponse {
	attrs := rec.Attributes
	if attrs == "" {
		attrs = "null"
	}
	resp := stopResponse{
		StopID:     rec.StopID,
		State:      rec.State,
		PolledAt:   rec.PolledAt,
		Attributes: json.RawMessage(attrs),
	}
	if s, err := c.repo.GetStop(rec.StopID); err == nil && s != nil {
		resp.Code = s.Code
		resp.Name = s.Name
	}
	return resp
}

func (c *stopsController) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	results, err := c.repo.ListResults()
	if err != nil {
		slog.Error("board: list results failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stops")
		return
	}

	stops := make([]views.BoardStop, 0, len(results))
	for _, rec := range results {
		row := views.BoardStop{
			StopID:   rec.StopID,
			Name:     rec.StopID,
			State:    rec.State,
			PolledAt: rec.PolledAt,
		}
		if s, err := c.repo.GetStop(rec.StopID); err == nil && s != nil {
			row.Code = s.Code
			if s.Name != "" {
				row.Name = s.Name
			}
		}

		var attrs struct {
			Upcoming []struct {
				Time        string `json:"time"`
				Route       string `json:"route"`
				Destination string `json:"destination"`
				Realtime    bool   `json:"realtime"`
			} `json:"upcoming"`
		}
		if err := json.Unmarshal([]byte(rec.Attributes), &attrs); err == nil {
			for _, u := range attrs.Upcoming {
				row.Upcoming = append(row.Upcoming, views.BoardDeparture{
					Time:        u.Time,
					Route:       u.Route,
					Destination: u.Destination,
					Realtime:    u.Realtime,
				})
			}
		}
		stops = append(stops, row)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.RenderBoard(w, views.BoardData{Stops: stops}); err != nil {
		slog.Error("board template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
}
