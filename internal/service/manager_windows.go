//go:build windows

package service

import (
	"errors"
	"fmt"

	"github.com/waqtapp/waqt/pkg/logger"
)

const (
	// Name is the SCM service name. It doubles as the Event Log source.
	Name        = logger.EventSource
	DisplayName = "Waqt Prayer Reminders"
	Description = "Computes prayer times and delivers waqt reminders."
)

var (
	ErrServiceExists         = errors.New("service already exists")
	ErrServiceNotFound       = errors.New("service not found")
	ErrServiceAlreadyRunning = errors.New("service is already running")
	ErrServiceNotRunning     = errors.New("service is not running")
)

// Windows SERVICE_START_TYPE values.
const (
	StartTypeAutomatic uint32 = 2
	StartTypeManual    uint32 = 3
)

// Status mirrors the SERVICE_STATUS dwCurrentState values.
type Status uint32

const (
	StatusStopped         Status = 1
	StatusStartPending    Status = 2
	StatusStopPending     Status = 3
	StatusRunning         Status = 4
	StatusContinuePending Status = 5
	StatusPausePending    Status = 6
	StatusPaused          Status = 7
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "Stopped"
	case StatusStartPending:
		return "Start Pending"
	case StatusStopPending:
		return "Stop Pending"
	case StatusRunning:
		return "Running"
	case StatusContinuePending:
		return "Continue Pending"
	case StatusPausePending:
		return "Pause Pending"
	case StatusPaused:
		return "Paused"
	default:
		return fmt.Sprintf("Unknown (%d)", uint32(s))
	}
}

// Config describes a service to create.
type Config struct {
	DisplayName string
	Description string
	StartType   uint32
	// Args are passed to the executable when the SCM launches it.
	Args []string
}

// SCM is the part of the Service Control Manager the Manager needs.
type SCM interface {
	OpenService(name string) (Handle, error)
	CreateService(name, exePath string, cfg Config) (Handle, error)
	Close() error
}

// Handle is one opened service.
type Handle interface {
	Start() error
	Stop() error
	Delete() error
	Status() (Status, error)
	Close() error
}

// Manager installs and controls the waqt service.
type Manager struct {
	scm SCM
}

func NewManager(scm SCM) *Manager {
	return &Manager{scm: scm}
}

// Install registers exePath to run "daemon" at boot.
func (m *Manager) Install(exePath string) error {
	h, err := m.scm.CreateService(Name, exePath, Config{
		DisplayName: DisplayName,
		Description: Description,
		StartType:   StartTypeAutomatic,
		Args:        []string{"daemon"},
	})
	if err != nil {
		return err
	}
	return h.Close()
}

// Uninstall stops the service if it is running and removes it.
func (m *Manager) Uninstall() error {
	h, err := m.scm.OpenService(Name)
	if err != nil {
		return err
	}
	defer h.Close()

	status, err := h.Status()
	if err != nil {
		return err
	}
	if status == StatusRunning {
		if err := h.Stop(); err != nil {
			return err
		}
	}
	return h.Delete()
}

func (m *Manager) Start() error {
	h, err := m.scm.OpenService(Name)
	if err != nil {
		return err
	}
	defer h.Close()

	status, err := h.Status()
	if err != nil {
		return err
	}
	if status == StatusRunning {
		return ErrServiceAlreadyRunning
	}
	return h.Start()
}

func (m *Manager) Stop() error {
	h, err := m.scm.OpenService(Name)
	if err != nil {
		return err
	}
	defer h.Close()

	status, err := h.Status()
	if err != nil {
		return err
	}
	if status == StatusStopped {
		return ErrServiceNotRunning
	}
	return h.Stop()
}

func (m *Manager) Status() (Status, error) {
	h, err := m.scm.OpenService(Name)
	if err != nil {
		return 0, err
	}
	defer h.Close()
	return h.Status()
}
