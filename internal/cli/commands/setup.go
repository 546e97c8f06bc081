package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridsight-labs/gridsight/internal/cli/config"
	"github.com/gridsight-labs/gridsight/internal/cli/output"
	"github.com/gridsight-labs/gridsight/internal/engine"
	"github.com/gridsight-labs/gridsight/internal/project"
	"github.com/gridsight-labs/gridsight/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Store    state.Store
	Renderer *output.Renderer
}

// NewCommandContext loads the dashboard document, opens the state store
// and builds the engine. Returns the context and a cleanup function that
// must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	cfg := cmdCtx.Cfg

	doc, err := project.Load(cfg.Dashboard)
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(engine.Config{
		Document:  doc,
		Dataset:   cfg.Dataset,
		Store:     store,
		Formatter: output.NumberFormatter(cfg.Locale),
		Logger:    cmdCtx.Logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cmdCtx.Engine = eng
	cmdCtx.Store = store
	cleanup := func() {
		_ = store.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine builds a context for commands that need
// no document or database access.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode, cfg.NoColor)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, falling back to env vars
// and defaults when no LoadConfig has run (direct command construction
// in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Dashboard:    getEnvOrDefault("GRIDSIGHT_DASHBOARD", config.DefaultDashboard),
		Dataset:      os.Getenv("GRIDSIGHT_DATASET"),
		StatePath:    getEnvOrDefault("GRIDSIGHT_STATE_PATH", config.DefaultStateFile),
		Environment:  getEnvOrDefault("GRIDSIGHT_ENVIRONMENT", config.DefaultEnv),
		OutputFormat: getEnvOrDefault("GRIDSIGHT_OUTPUT", config.DefaultOutput),
		Locale:       getEnvOrDefault("GRIDSIGHT_LOCALE", config.DefaultLocale),
		Verbose:      os.Getenv("GRIDSIGHT_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func openStore(statePath string) (state.Store, error) {
	if statePath != ":memory:" {
		stateDir := filepath.Dir(statePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	return state.Open(statePath)
}
