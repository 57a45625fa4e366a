//go:build windows

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli"
	"github.com/waqtapp/waqt/internal/service"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc/eventlog"
)

var ErrRequiresAdmin = errors.New("this operation requires administrator privileges")

var (
	isAdminFunc = isAdmin
	openSCM     = service.OpenSCM
)

// isAdmin reports whether the process token is in BUILTIN\Administrators.
func isAdmin() bool {
	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)
	member, err := windows.Token(0).IsMember(sid)
	return err == nil && member
}

func serviceCommand() cli.Command {
	return cli.Command{
		Name:  "service",
		Usage: "manage the waqt Windows service",
		Subcommands: []cli.Command{
			{Name: "install", Usage: "install the daemon as a Windows service", Action: serviceInstall},
			{Name: "uninstall", Usage: "remove the Windows service", Action: serviceUninstall},
			{Name: "start", Usage: "start the Windows service", Action: serviceStart},
			{Name: "stop", Usage: "stop the Windows service", Action: serviceStop},
			{Name: "status", Usage: "show the Windows service state", Action: serviceStatus},
		},
	}
}

// withManager opens the SCM, optionally checking for elevation first.
func withManager(admin bool, fn func(*service.Manager) error) error {
	if admin && !isAdminFunc() {
		return ErrRequiresAdmin
	}
	scm, err := openSCM()
	if err != nil {
		return err
	}
	defer scm.Close()
	return fn(service.NewManager(scm))
}

// describe turns manager sentinels into user-facing messages.
func describe(err error) error {
	switch {
	case errors.Is(err, service.ErrServiceNotFound):
		return fmt.Errorf("service '%s' is not installed", service.Name)
	case errors.Is(err, service.ErrServiceExists):
		return fmt.Errorf("service '%s' is already installed", service.Name)
	case errors.Is(err, service.ErrServiceAlreadyRunning):
		return fmt.Errorf("service '%s' is already running", service.Name)
	case errors.Is(err, service.ErrServiceNotRunning):
		return fmt.Errorf("service '%s' is not running", service.Name)
	}
	return err
}

func serviceInstall(*cli.Context) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	return withManager(true, func(m *service.Manager) error {
		if err := m.Install(exePath); err != nil {
			return describe(err)
		}
		if err := eventlog.InstallAsEventCreate(service.Name, eventlog.Info|eventlog.Warning|eventlog.Error); err != nil {
			_ = m.Uninstall()
			return fmt.Errorf("failed to register event source: %w", err)
		}
		fmt.Fprintf(stdout, "Service '%s' installed successfully\n", service.Name)
		return nil
	})
}

func serviceUninstall(*cli.Context) error {
	return withManager(true, func(m *service.Manager) error {
		if err := m.Uninstall(); err != nil {
			return describe(err)
		}
		_ = eventlog.Remove(service.Name)
		fmt.Fprintf(stdout, "Service '%s' uninstalled successfully\n", service.Name)
		return nil
	})
}

func serviceStart(*cli.Context) error {
	return withManager(true, func(m *service.Manager) error {
		if err := m.Start(); err != nil {
			return describe(err)
		}
		fmt.Fprintf(stdout, "Service '%s' started successfully\n", service.Name)
		return nil
	})
}

func serviceStop(*cli.Context) error {
	return withManager(true, func(m *service.Manager) error {
		if err := m.Stop(); err != nil {
			return describe(err)
		}
		fmt.Fprintf(stdout, "Service '%s' stopped successfully\n", service.Name)
		return nil
	})
}

func serviceStatus(*cli.Context) error {
	return withManager(false, func(m *service.Manager) error {
		st, err := m.Status()
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(stdout, "Service '%s': %s\n", service.Name, st)
		return nil
	})
}
