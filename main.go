// Command go_inpaint runs mask-guided inpainting against a local stub, an
// AUTOMATIC1111 server or the OpenAI image edit API and keeps a local
// history of generations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go_inpaint/core"
	"go_inpaint/logging"
	"go_inpaint/shutdown"
)

const cleanupTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// Use fmt here since logger isn't initialized yet
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	logger, err := logging.New(logging.Options{
		Development: core.ParseBoolEnv("DEV_MODE", false),
		FilePath:    core.GetEnvOrDefault("INPAINT_LOG_FILE", core.DefaultLogFile),
		Level:       logging.LevelFromEnv(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	os.Exit(execute(context.Background(), newApp(logger), os.Args[1:], os.Stdout, os.Stderr))
}

// app carries process-wide state shared by the commands.
type app struct {
	logger  *logging.Logger
	cleanup shutdown.Registry

	// loadConfig is core.LoadConfig outside tests.
	loadConfig func() (*core.Config, error)

	cfgOnce sync.Once
	cfg     *core.Config
	cfgErr  error
}

func newApp(logger *logging.Logger) *app {
	a := &app{logger: logging.OrNop(logger), loadConfig: core.LoadConfig}
	a.cleanup.Register("logger", shutdown.PriorityLogger, func(context.Context) error {
		// Syncing a terminal stdout fails on some platforms; nothing to act on.
		_ = a.logger.Sync()
		return nil
	})
	return a
}

// config loads and validates the environment configuration once.
func (a *app) config() (*core.Config, error) {
	a.cfgOnce.Do(func() {
		a.cfg, a.cfgErr = a.loadConfig()
		if a.cfgErr == nil {
			a.logger.Info("configuration loaded",
				zap.String("model", a.cfg.Model),
				zap.String("device", string(a.cfg.Device)),
				zap.String("backend", a.cfg.Backend),
				zap.String("db_path", a.cfg.DBPath),
				zap.Bool("dev_mode", a.cfg.DevMode))
		}
	})
	return a.cfg, a.cfgErr
}

// execute runs the CLI and returns the process exit code.
func execute(parent context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	ctx, stop := shutdown.NotifyContext(parent, a.logger, nil)
	defer stop()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)

	cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if cerr := a.cleanup.Run(cleanupCtx); cerr != nil {
		fmt.Fprintf(stderr, "cleanup: %v\n", cerr)
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		a.logger.Debug("command failed", zap.String("error_code", core.GetErrorCode(err)), zap.Error(err))
	}
	return core.ExitCodeFor(err)
}
