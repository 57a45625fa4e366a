package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"github.com/waqtapp/waqt/cmd/common"
	"github.com/waqtapp/waqt/config"
)

func stopDaemon(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		common.PrintRuntimeErr(ctx, "stop", "load_config", err)
		return nil
	}
	pid, err := ReadPidFile(cfg.ConfigDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(stdout, "Daemon is not running (PID file not found)")
			return nil
		}
		common.PrintRuntimeErr(ctx, "stop", "read_pid", err)
		return nil
	}

	fmt.Fprintf(stdout, "Stopping daemon (PID %d)...\n", pid)
	if err := killDaemon(pid); err != nil {
		common.PrintRuntimeErr(ctx, "stop", "kill", err)
		return nil
	}
	// The daemon removes its PID file on a graceful exit; a forced kill
	// leaves it behind.
	_ = RemovePidFile(cfg.ConfigDir)
	fmt.Fprintln(stdout, "Daemon stopped successfully")
	return nil
}
