//go:build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

type windowsSCM struct {
	m *mgr.Mgr
}

type windowsHandle struct {
	s *mgr.Service
}

// OpenSCM connects to the local Service Control Manager. The caller must
// Close it.
func OpenSCM() (SCM, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to service control manager: %w", err)
	}
	return &windowsSCM{m: m}, nil
}

func (w *windowsSCM) OpenService(name string) (Handle, error) {
	s, err := w.m.OpenService(name)
	if err != nil {
		return nil, fmt.Errorf("open service %q: %w", name, ErrServiceNotFound)
	}
	return &windowsHandle{s: s}, nil
}

// CreateService is atomic on the SCM side; a failed call leaves nothing
// behind.
func (w *windowsSCM) CreateService(name, exePath string, cfg Config) (Handle, error) {
	if existing, err := w.m.OpenService(name); err == nil {
		existing.Close()
		return nil, ErrServiceExists
	}
	s, err := w.m.CreateService(name, exePath, mgr.Config{
		DisplayName:  cfg.DisplayName,
		Description:  cfg.Description,
		StartType:    cfg.StartType,
		ServiceType:  windows.SERVICE_WIN32_OWN_PROCESS,
		ErrorControl: windows.SERVICE_ERROR_NORMAL,
	}, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("create service %q: %w", name, err)
	}
	return &windowsHandle{s: s}, nil
}

func (w *windowsSCM) Close() error {
	return w.m.Disconnect()
}

func (h *windowsHandle) Start() error {
	if err := h.s.Start(); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	return nil
}

func (h *windowsHandle) Stop() error {
	if _, err := h.s.Control(svc.Stop); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}
	return nil
}

func (h *windowsHandle) Delete() error {
	if err := h.s.Delete(); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return nil
}

func (h *windowsHandle) Status() (Status, error) {
	st, err := h.s.Query()
	if err != nil {
		return 0, fmt.Errorf("failed to query service status: %w", err)
	}
	return Status(st.State), nil
}

func (h *windowsHandle) Close() error {
	return h.s.Close()
}
