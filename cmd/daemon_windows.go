//go:build windows

package cmd

import (
	"os"

	"github.com/urfave/cli"
	"github.com/waqtapp/waqt/config"
	"github.com/waqtapp/waqt/internal/service"
	"github.com/waqtapp/waqt/pkg/logger"
	"golang.org/x/sys/windows/svc"
)

var isWindowsService = svc.IsWindowsService

func getDaemonAction() cli.ActionFunc {
	return daemonWindows
}

// daemonWindows runs the console daemon unless the SCM launched us.
func daemonWindows(ctx *cli.Context) error {
	isService, err := isWindowsService()
	if err != nil {
		return err
	}
	if !isService {
		return daemon(ctx)
	}
	return runAsWindowsService()
}

// runAsWindowsService logs to stderr and, when the source is registered,
// to the Event Log.
func runAsWindowsService() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	var l logger.Logger = logger.NewZeroLogger(os.Stderr, cfg.LogLevel, logger.Format(cfg.LogFormat)).With("service")
	if el, err := logger.NewEventLogger(service.Name); err == nil {
		defer el.Close()
		l = logger.NewMultiLogger(l, el)
	}
	return svc.Run(service.Name, service.NewHandler(newRunner(cfg, l), l))
}
