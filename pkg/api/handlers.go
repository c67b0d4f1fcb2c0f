package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gridfeed/gridfeed/pkg/httputil"
	"github.com/gridfeed/gridfeed/pkg/roster"
	"github.com/gridfeed/gridfeed/pkg/sim"
)

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, HealthResponse{Status: "ok", Uptime: s.Uptime()})
}

// handlePositions handles GET /positions. Always 200; degraded states
// are expressed in the payload status.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, s.positionsPayload(r.Context()))
}

// positionsPayload runs the public read path and maps the result to the
// wire shape. Shared between the JSON endpoint and the websocket feed.
func (s *Server) positionsPayload(ctx context.Context) PositionsResponse {
	now := time.Now().UTC()

	snap, err := s.sim.Positions(ctx, sim.TopSize)
	if err != nil {
		s.log.Warn("positions read degraded", "error", err)
		return PositionsResponse{
			Status:    FeedStatusError,
			UpdatedAt: now,
			Order:     []PositionEntry{},
			Error:     feedErrorReason(err),
		}
	}
	if !snap.Live {
		return PositionsResponse{
			Status:    FeedStatusNotLive,
			UpdatedAt: now,
			Order:     []PositionEntry{},
		}
	}

	order := make([]PositionEntry, len(snap.Order))
	for i, pos := range snap.Order {
		order[i] = PositionEntry{Position: pos.Rank, Driver: pos.Driver}
	}
	raceID := snap.RaceID
	return PositionsResponse{
		Status:    FeedStatusLive,
		RaceID:    &raceID,
		UpdatedAt: now,
		Order:     order,
	}
}

// feedErrorReason maps reload failures to stable, non-leaky reasons.
func feedErrorReason(err error) string {
	switch {
	case errors.Is(err, sim.ErrInsufficientRoster):
		return "insufficient roster size"
	case errors.Is(err, roster.ErrUnavailable):
		return "roster unavailable"
	default:
		return "roster reload failed"
	}
}

// writeReloadError maps a failed admin-triggered reload to a response.
func (s *Server) writeReloadError(w http.ResponseWriter, op string, err error) {
	s.log.Error("simulation operation failed", "operation", op, "error", err)
	switch {
	case errors.Is(err, sim.ErrInsufficientRoster):
		httputil.WriteInternalError(w, "insufficient_roster", "Roster returned too few drivers")
	case errors.Is(err, roster.ErrUnavailable):
		httputil.WriteBadGateway(w, "roster_unavailable", "Roster provider is unavailable")
	default:
		httputil.WriteInternalError(w, "internal", "Operation failed")
	}
}

// handleSimStatus handles GET /sim/status.
func (s *Server) handleSimStatus(w http.ResponseWriter, r *http.Request) {
	st := s.sim.Status()

	var loadedAt *time.Time
	if !st.LoadedAt.IsZero() {
		t := st.LoadedAt.UTC()
		loadedAt = &t
	}
	httputil.WriteOK(w, SimStatusResponse{
		SimOn:            st.On,
		TickCount:        st.TickCount,
		GridSize:         st.GridSize,
		LastGridLoadedAt: loadedAt,
		UpdatedAt:        time.Now().UTC(),
	})
}

// handleSimStart handles POST /sim/start.
func (s *Server) handleSimStart(w http.ResponseWriter, r *http.Request) {
	raceID, err := s.sim.Start(r.Context())
	if err != nil {
		s.writeReloadError(w, "start", err)
		return
	}
	httputil.WriteOK(w, SimStartResponse{
		OK:        true,
		SimOn:     true,
		RaceID:    raceID,
		UpdatedAt: time.Now().UTC(),
	})
}

// handleSimStop handles POST /sim/stop.
func (s *Server) handleSimStop(w http.ResponseWriter, r *http.Request) {
	s.sim.Stop()
	httputil.WriteOK(w, SimStopResponse{
		OK:        true,
		SimOn:     false,
		UpdatedAt: time.Now().UTC(),
	})
}

// handleSimReset handles POST /sim/reset.
func (s *Server) handleSimReset(w http.ResponseWriter, r *http.Request) {
	if err := s.sim.Reset(r.Context()); err != nil {
		s.writeReloadError(w, "reset", err)
		return
	}
	st := s.sim.Status()
	httputil.WriteOK(w, SimResetResponse{
		OK:        true,
		SimOn:     st.On,
		GridSize:  st.GridSize,
		UpdatedAt: time.Now().UTC(),
	})
}

// handleMetrics handles GET /metrics. Simulation gauges are refreshed
// from controller state at scrape time.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	st := s.sim.Status()
	s.gridSize.Set(int64(st.GridSize))
	s.simTicks.Set(int64(st.TickCount))
	if st.On {
		s.simOn.Set(1)
	} else {
		s.simOn.Set(0)
	}
	s.registry.Handler().ServeHTTP(w, r)
}
