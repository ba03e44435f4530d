package hedge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/internal/app"
	"github.com/peter-kozarec/botplatform/internal/config"
	"github.com/peter-kozarec/botplatform/internal/dbg"
)

const Version = "0.1.0"

// ConfigDirEnv names the directory holding the secrets file and environments/.
const ConfigDirEnv = "PLATFORM_CONFIG_DIR"

// Main loads the configuration for mode, runs the platform until a signal arrives and exits
// the process with a non-zero status on failure.
func Main(mode config.Mode, options ...app.Option) {
	// the binary decides the mode
	_ = os.Setenv(config.ModeEnv, string(mode))

	cfg, err := config.Load(getConfigDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to load configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := dbg.NewLogger(cfg.LogLevel, cfg.Production())
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("hedge started", zap.String("mode", string(cfg.Mode)), zap.String("version", Version))
	defer logger.Info("hedge finished")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.New(logger, cfg, options...).Run(ctx); err != nil {
		logger.Error("something unexpected happened", zap.Error(err))
		_ = logger.Sync()
		cancel()
		os.Exit(1)
	}
}

func getConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return "."
}
