package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
	"github.com/waqtapp/waqt/cmd/common"
	"github.com/waqtapp/waqt/config"
	daemonpkg "github.com/waqtapp/waqt/internal/daemon"
	"github.com/waqtapp/waqt/pkg/logger"
)

const daemonShutdownTimeout = 15 * time.Second

func daemon(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "load_config", err)
		return nil
	}
	if err := os.MkdirAll(cfg.ConfigDir, 0o700); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "config_dir", err)
		return nil
	}
	if pid, err := ReadPidFile(cfg.ConfigDir); err == nil && pid != os.Getpid() && isProcessRunning(pid) {
		common.PrintRuntimeErr(ctx, "daemon", "pid_file", fmt.Errorf("daemon already running (PID %d)", pid))
		return nil
	}

	l := logger.NewZeroLogger(os.Stderr, cfg.LogLevel, logger.Format(cfg.LogFormat)).With("daemon")
	if err := WritePidFile(cfg.ConfigDir); err != nil {
		l.Warning("could not write PID file: %v", err)
	}

	sctx, cancel := setupShutdownHandler()
	defer cancel()

	r := newRunner(cfg, l)
	err = r.Start(sctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		_ = RemovePidFile(cfg.ConfigDir)
		common.PrintRuntimeErr(ctx, "daemon", "start", err)
		return nil
	}
	l.Info("daemon stopped")
	return nil
}

// newRunner builds the daemon for cfg. The PID file is removed once the
// daemon has torn down.
func newRunner(cfg *config.Config, l logger.Logger) *daemonpkg.Runner {
	return daemonpkg.New(&daemonpkg.Config{
		App:             cfg,
		Version:         currentBuildArgs.Version,
		Commit:          currentBuildArgs.Commit,
		BuildType:       currentBuildArgs.BuildType,
		ShutdownTimeout: daemonShutdownTimeout,
	}, &daemonpkg.Dependencies{
		Logger:       l,
		ShutdownFunc: func() error { return RemovePidFile(cfg.ConfigDir) },
	})
}
