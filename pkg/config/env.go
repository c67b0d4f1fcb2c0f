package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names. Environment values override the file and
// are in turn overridden by flags.
const (
	EnvPort           = "GRIDFEED_PORT"
	EnvAdminToken     = "GRIDFEED_ADMIN_TOKEN"
	EnvTickInterval   = "GRIDFEED_TICK_INTERVAL"
	EnvFetchTimeout   = "GRIDFEED_FETCH_TIMEOUT"
	EnvWSPushInterval = "GRIDFEED_WS_PUSH_INTERVAL"
	EnvReadTimeout    = "GRIDFEED_READ_TIMEOUT"
	EnvWriteTimeout   = "GRIDFEED_WRITE_TIMEOUT"
	EnvRosterSource   = "GRIDFEED_ROSTER_SOURCE"
	EnvRosterURL      = "GRIDFEED_ROSTER_URL"
	EnvRosterDrivers  = "GRIDFEED_ROSTER_DRIVERS"
	EnvLogLevel       = "GRIDFEED_LOG_LEVEL"
	EnvLogFormat      = "GRIDFEED_LOG_FORMAT"
)

// ApplyEnv overlays environment variables onto cfg. Only variables that
// are present and parseable are applied.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}

	if v := os.Getenv(EnvAdminToken); v != "" {
		cfg.AdminToken = v
	}

	applyEnvDuration(EnvTickInterval, &cfg.TickInterval)
	applyEnvDuration(EnvFetchTimeout, &cfg.FetchTimeout)
	applyEnvDuration(EnvWSPushInterval, &cfg.WSPushInterval)
	applyEnvDuration(EnvReadTimeout, &cfg.ReadTimeout)
	applyEnvDuration(EnvWriteTimeout, &cfg.WriteTimeout)

	if v := os.Getenv(EnvRosterSource); v != "" {
		cfg.Roster.Source = v
	}
	if v := os.Getenv(EnvRosterURL); v != "" {
		cfg.Roster.URL = v
	}
	if v := os.Getenv(EnvRosterDrivers); v != "" {
		var drivers []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				drivers = append(drivers, d)
			}
		}
		if len(drivers) > 0 {
			cfg.Roster.Drivers = drivers
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
}

func applyEnvDuration(name string, dst *Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = Duration(d)
	}
}
