//go:build windows

package service

import (
	"context"
	"time"

	"github.com/waqtapp/waqt/pkg/logger"
	"golang.org/x/sys/windows/svc"
)

const acceptedCommands = svc.AcceptStop | svc.AcceptShutdown

// DefaultStartTimeout bounds how long the SCM is kept in StartPending.
const DefaultStartTimeout = 30 * time.Second

// Runner is the daemon lifecycle the handler drives.
type Runner interface {
	Start(ctx context.Context) error
	Ready() <-chan struct{}
	Shutdown() error
}

// Handler implements svc.Handler for the waqt daemon.
type Handler struct {
	runner       Runner
	log          logger.Logger
	startTimeout time.Duration
}

func NewHandler(runner Runner, l logger.Logger) *Handler {
	return &Handler{runner: runner, log: logger.OrNop(l), startTimeout: DefaultStartTimeout}
}

// Execute reports StartPending until the daemon is listening, then Running
// until the SCM asks it to stop. Service arguments are ignored; the daemon
// reads its settings from the environment.
func (h *Handler) Execute(_ []string, requests <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	status <- svc.Status{State: svc.StartPending}
	h.log.Info("service: starting")

	startErr := make(chan error, 1)
	go func() { startErr <- h.runner.Start(context.Background()) }()

	select {
	case err := <-startErr:
		h.log.Error("service: daemon failed to start: %v", err)
		status <- svc.Status{State: svc.Stopped}
		return false, 1
	case <-h.runner.Ready():
	case <-time.After(h.startTimeout):
		h.log.Error("service: daemon not ready after %s", h.startTimeout)
		_ = h.runner.Shutdown()
		status <- svc.Status{State: svc.Stopped}
		return false, 1
	}

	running := svc.Status{State: svc.Running, Accepts: acceptedCommands}
	status <- running
	h.log.Info("service: running")

	for {
		select {
		case req, ok := <-requests:
			if !ok {
				return h.stop(status, startErr)
			}
			switch req.Cmd {
			case svc.Interrogate:
				status <- running
			case svc.Stop, svc.Shutdown:
				return h.stop(status, startErr)
			}
		case err := <-startErr:
			h.log.Error("service: daemon exited: %v", err)
			status <- svc.Status{State: svc.Stopped}
			return false, 1
		}
	}
}

func (h *Handler) stop(status chan<- svc.Status, startErr <-chan error) (bool, uint32) {
	h.log.Info("service: stopping")
	status <- svc.Status{State: svc.StopPending}
	if err := h.runner.Shutdown(); err != nil {
		h.log.Error("service: shutdown: %v", err)
		status <- svc.Status{State: svc.Stopped}
		return false, 1
	}
	<-startErr
	h.log.Info("service: stopped")
	status <- svc.Status{State: svc.Stopped}
	return false, 0
}
