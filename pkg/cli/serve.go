package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridfeed/gridfeed/pkg/api"
	"github.com/gridfeed/gridfeed/pkg/config"
	"github.com/gridfeed/gridfeed/pkg/logging"
	"github.com/gridfeed/gridfeed/pkg/roster"
	"github.com/gridfeed/gridfeed/pkg/sim"
)

// serveFlags holds the values bound to the serve command's flags.
type serveFlags struct {
	port         int
	configFile   string
	adminToken   string
	tickInterval time.Duration
	rosterSource string
	rosterURL    string
	logLevel     string
	logFormat    string
}

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the race feed server (foreground)",
	Example: `  # Start with defaults (static roster, port 8000)
  gridfeed serve

  # Start with a config file on a custom port
  gridfeed serve --config gridfeed.yaml --port 3000

  # Serve a remote roster with a faster tick
  gridfeed serve --roster-source http --roster-url https://example.com/roster --tick-interval 2s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, &serveFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	registerServeFlags(serveCmd, &serveFlagVals)
}

func registerServeFlags(cmd *cobra.Command, f *serveFlags) {
	cmd.Flags().IntVarP(&f.port, "port", "p", 8000, "HTTP server port")
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&f.adminToken, "admin-token", "", "Token required by the /sim endpoints")
	cmd.Flags().DurationVar(&f.tickInterval, "tick-interval", 5*time.Second, "Minimum time between position shuffles")
	cmd.Flags().StringVar(&f.rosterSource, "roster-source", "", "Roster source (static or http)")
	cmd.Flags().StringVar(&f.rosterURL, "roster-url", "", "Roster endpoint for the http source")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
}

// resolveConfig builds the effective configuration: defaults, then the
// file, then environment, then any flags the user actually set.
func resolveConfig(cmd *cobra.Command, f *serveFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	config.ApplyEnv(cfg)

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = f.port
	}
	if flags.Changed("admin-token") {
		cfg.AdminToken = f.adminToken
	}
	if flags.Changed("tick-interval") {
		cfg.TickInterval = config.Duration(f.tickInterval)
	}
	if flags.Changed("roster-source") {
		cfg.Roster.Source = f.rosterSource
	}
	if flags.Changed("roster-url") {
		cfg.Roster.URL = f.rosterURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newProvider selects the roster provider for the configured source.
func newProvider(cfg *config.Config) (roster.Provider, error) {
	switch cfg.Roster.Source {
	case config.SourceStatic:
		return roster.NewStatic(cfg.Roster.Drivers), nil
	case config.SourceHTTP:
		return roster.NewHTTP(cfg.Roster.URL, roster.WithTimeout(cfg.FetchTimeout.Std())), nil
	default:
		return nil, fmt.Errorf("unknown roster source %q", cfg.Roster.Source)
	}
}

func runServe(cmd *cobra.Command, f *serveFlags) error {
	cfg, err := resolveConfig(cmd, f)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	})

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	ctrl := sim.New(provider,
		sim.WithTickInterval(cfg.TickInterval.Std()),
		sim.WithFetchTimeout(cfg.FetchTimeout.Std()),
		sim.WithLogger(logger),
	)

	srv := api.New(api.Config{
		Port:         cfg.Port,
		AdminToken:   cfg.AdminToken,
		PushInterval: cfg.WSPushInterval.Std(),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	}, ctrl, api.WithLogger(logger))

	if cfg.AdminToken == "" {
		logger.Warn("no admin token configured, /sim endpoints will refuse requests")
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	logger.Info("gridfeed serving",
		"port", cfg.Port,
		"roster_source", cfg.Roster.Source,
		"tick_interval", cfg.TickInterval.Std().String(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
