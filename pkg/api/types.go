package api

import "time"

// Feed statuses for the public positions endpoint. Errors are data, not
// HTTP failures: /positions always answers 200 with one of these.
const (
	FeedStatusNotLive = "not_live"
	FeedStatusLive    = "live"
	FeedStatusError   = "error"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int    `json:"uptime"`
}

// PositionEntry is one row of the public feed.
type PositionEntry struct {
	Position int    `json:"position"`
	Driver   string `json:"driver"`
}

// PositionsResponse is returned by GET /positions and pushed over the
// websocket feed.
type PositionsResponse struct {
	Status    string          `json:"status"`
	RaceID    *string         `json:"race_id"`
	UpdatedAt time.Time       `json:"updated_at"`
	Order     []PositionEntry `json:"order"`
	Error     string          `json:"error,omitempty"`
}

// SimStatusResponse is returned by GET /sim/status.
type SimStatusResponse struct {
	SimOn            bool       `json:"sim_on"`
	TickCount        int        `json:"tick_count"`
	GridSize         int        `json:"grid_size"`
	LastGridLoadedAt *time.Time `json:"last_grid_loaded_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SimStartResponse is returned by POST /sim/start.
type SimStartResponse struct {
	OK        bool      `json:"ok"`
	SimOn     bool      `json:"sim_on"`
	RaceID    string    `json:"race_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SimStopResponse is returned by POST /sim/stop.
type SimStopResponse struct {
	OK        bool      `json:"ok"`
	SimOn     bool      `json:"sim_on"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SimResetResponse is returned by POST /sim/reset.
type SimResetResponse struct {
	OK        bool      `json:"ok"`
	SimOn     bool      `json:"sim_on"`
	GridSize  int       `json:"grid_size"`
	UpdatedAt time.Time `json:"updated_at"`
}
