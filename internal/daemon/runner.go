// Package daemon assembles and runs the waqt background service: the
// trigger journal, the in-process notification device and its sinks, the
// settings store and the JSON-RPC front end.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/waqtapp/waqt/config"
	"github.com/waqtapp/waqt/internal/api"
	"github.com/waqtapp/waqt/internal/notify"
	"github.com/waqtapp/waqt/internal/remote"
	"github.com/waqtapp/waqt/internal/server"
	"github.com/waqtapp/waqt/internal/settings"
	"github.com/waqtapp/waqt/internal/store"
	"github.com/waqtapp/waqt/pkg/logger"
	"github.com/waqtapp/waqt/pkg/prayer"
	"github.com/waqtapp/waqt/pkg/securestore"
)

var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	ErrNoConfig = errors.New("daemon: no configuration")
)

const (
	// WakeDailyRehydrate is the recurring wake event that recomputes
	// reminders once the calendar day has turned.
	WakeDailyRehydrate = "daily-rehydrate"

	historyRetention = 30 * 24 * time.Hour
)

// Config holds the configuration for the daemon runner.
type Config struct {
	App *config.Config

	Version   string
	Commit    string
	BuildType string

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// Dependencies holds the external dependencies for the daemon runner.
// Every field is optional.
type Dependencies struct {
	// Fs backs the settings state and the RPC secret. Defaults to the OS.
	Fs afero.Fs

	// Solver computes base prayer times. Defaults to the astronomical solver.
	Solver prayer.Solver

	// Now replaces the wall clock used for schedules.
	Now func() time.Time

	// Remote overrides the profile backend built from App.APIBaseURL.
	Remote settings.Remote

	// Sinks are registered after the built-in ones.
	Sinks []notify.Sink

	// Logger defaults to a zerolog logger on stderr.
	Logger logger.Logger

	// ShutdownFunc is called last during shutdown.
	ShutdownFunc func() error
}

// components is everything Start builds, torn down in reverse.
type components struct {
	journal  *store.Store
	device   *notify.LocalDevice
	settings *settings.Store
	api      *api.Api
	server   *server.Server
	closers  []func()
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config *Config
	deps   *Dependencies
	log    logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	ready   chan struct{}
	addr    string
}

// New creates a daemon runner. A nil deps uses the defaults.
func New(config *Config, deps *Dependencies) *Runner {
	if config == nil {
		config = &Config{}
	}
	d := applyDependencyDefaults(deps, config)
	return &Runner{
		config: config,
		deps:   d,
		log:    d.Logger,
		ready:  make(chan struct{}),
	}
}

func applyDependencyDefaults(deps *Dependencies, cfg *Config) *Dependencies {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Logger == nil {
		level, format := "info", logger.FormatConsole
		if cfg.App != nil {
			level, format = cfg.App.LogLevel, logger.Format(cfg.App.LogFormat)
		}
		deps.Logger = logger.NewZeroLogger(os.Stderr, level, format)
	}
	return deps
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Ready is closed once the RPC listener is bound.
func (r *Runner) Ready() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Addr returns the bound RPC address, or "" when not running.
func (r *Runner) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

// Start builds the service and blocks until the context is canceled or
// Shutdown is called. Returns ErrAlreadyRunning if the daemon is already
// started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if r.config.App == nil {
		r.mu.Unlock()
		return ErrNoConfig
	}

	ctx, cancel := context.WithCancel(ctx)
	c, err := r.build(ctx)
	if err != nil {
		cancel()
		r.mu.Unlock()
		return err
	}
	// Bind before reporting running so a port clash fails Start.
	if err := c.server.Listen(); err != nil {
		cancel()
		r.teardown(c)
		r.mu.Unlock()
		return fmt.Errorf("listen %s: %w", r.config.App.RPCHost, err)
	}
	r.cancel = cancel
	r.done = make(chan struct{})
	r.addr = c.server.Addr()
	r.running = true
	close(r.ready)
	done := r.done
	r.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() {
		// Shutdown is driven from teardown, not from this context.
		serveErr <- c.server.Start(context.Background())
	}()
	r.log.Info("daemon: serving JSON-RPC on %s", c.server.Addr())

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("serve: %w", err)
		}
		cancel()
	}

	if err := r.teardown(c); err != nil {
		runErr = errors.Join(runErr, err)
	}
	r.cleanupOnStop(done)
	return runErr
}

// build opens storage and wires the service graph. The listener is not
// bound yet.
func (r *Runner) build(ctx context.Context) (_ *components, err error) {
	app := r.config.App
	c := &components{}
	defer func() {
		if err != nil {
			r.teardown(c)
		}
	}()

	if err := r.deps.Fs.MkdirAll(app.ConfigDir, 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", app.ConfigDir, err)
	}
	loc, err := app.Location()
	if err != nil {
		return nil, err
	}
	secret, err := EnsureSecret(r.deps.Fs, app)
	if err != nil {
		return nil, err
	}
	msgs, err := notify.LoadMessages(app.MessagesFile)
	if err != nil {
		return nil, err
	}

	c.journal, err = store.Open(app.DatabasePath())
	if err != nil {
		return nil, err
	}
	c.device = notify.NewLocalDevice(ctx, c.journal, r.log)
	r.addSinks(c, app)

	calc := prayer.NewCalculator(r.deps.Solver, loc)
	if r.deps.Now != nil {
		calc.SetClock(r.deps.Now)
	}
	reconciler := notify.NewReconciler(c.device, calc, msgs, r.log)

	c.settings, err = settings.Open(ctx, settings.Options{
		Storage:   securestore.Open(r.deps.Fs, app.StateDir(), r.log),
		Remote:    r.remote(app),
		Rehydrate: reconciler.Rehydrate,
		Logger:    r.log,
	})
	if err != nil {
		return nil, err
	}

	restored, missed, err := c.device.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore triggers: %w", err)
	}
	if restored+missed > 0 {
		r.log.Info("daemon: restored %d triggers, %d missed", restored, missed)
	}
	if app.RehydrateCron != "" {
		if err := c.device.AddWake(WakeDailyRehydrate, app.RehydrateCron); err != nil {
			return nil, err
		}
	}
	journal, st := c.journal, c.settings
	c.device.OnWake(func(string) {
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if n, err := journal.PruneHistory(pctx, time.Now().Add(-historyRetention)); err != nil {
			r.log.Warning("daemon: prune history: %v", err)
		} else if n > 0 {
			r.log.Info("daemon: pruned %d old triggers", n)
		}
		st.RequestRehydrate()
	})
	// A fired reminder may be the last of the installed window.
	c.device.OnDelivered(func(notify.Notification) { st.RequestRehydrate() })
	c.settings.RequestRehydrate()

	c.api = api.NewApi(r.log, calc, c.settings, reconciler)
	notifier := server.NewRPCNotifier(r.log)
	c.device.AddSink(server.NewReminderSink(notifier))
	rpc := server.NewRPCServer(&server.RPCConfig{
		Secret:    secret,
		Version:   r.config.Version,
		Commit:    r.config.Commit,
		BuildType: r.config.BuildType,
	}, c.api)
	c.server = server.NewServer(r.log, server.Config{Host: app.RPCHost, Port: app.RPCPort}, rpc, notifier)
	return c, nil
}

func (r *Runner) addSinks(c *components, app *config.Config) {
	c.device.AddSink(notify.NewLogSink(r.log))
	if app.TelegramToken != "" {
		s, err := notify.NewTelegramSink(app.TelegramToken, app.TelegramChatID)
		if err != nil {
			r.log.Warning("daemon: telegram sink disabled: %v", err)
		} else {
			c.device.AddSink(s)
		}
	}
	if app.MQTTBroker != "" {
		s, err := notify.NewMQTTSink(app.MQTTBroker, app.MQTTClientID, app.MQTTTopic, r.log)
		if err != nil {
			r.log.Warning("daemon: mqtt sink disabled: %v", err)
		} else {
			c.device.AddSink(s)
			c.closers = append(c.closers, s.Close)
		}
	}
	for _, s := range r.deps.Sinks {
		c.device.AddSink(s)
	}
}

// remote returns nil when syncing is off so the store sees a nil interface.
func (r *Runner) remote(app *config.Config) settings.Remote {
	if r.deps.Remote != nil {
		return r.deps.Remote
	}
	if app.APIBaseURL == "" {
		return nil
	}
	client, err := remote.New(app.APIBaseURL, app.APITimeout)
	if err != nil {
		r.log.Warning("daemon: remote sync disabled: %v", err)
		return nil
	}
	return client
}

// teardown releases whatever build managed to create.
func (r *Runner) teardown(c *components) error {
	var errs []error
	if c.server != nil {
		if err := c.server.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("server: %w", err))
		}
	}
	if c.api != nil {
		errs = append(errs, c.api.Close())
	} else if c.settings != nil {
		errs = append(errs, c.settings.Close())
	}
	if c.device != nil {
		c.device.Wait()
	}
	for _, fn := range c.closers {
		fn()
	}
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if r.deps.ShutdownFunc != nil {
		errs = append(errs, r.deps.ShutdownFunc())
	}
	return errors.Join(errs...)
}

func (r *Runner) cleanupOnStop(done chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.cancel = nil
	r.addr = ""
	r.ready = make(chan struct{})
	close(done)
}

// Shutdown stops the daemon and waits for Start to return.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if teardown exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	wait := func() error {
		<-done
		return nil
	}
	if r.config.ShutdownTimeout > 0 {
		return r.executeWithTimeout(wait, r.config.ShutdownTimeout)
	}
	return wait()
}

// executeWithTimeout runs a function with a timeout.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
func (r *Runner) executeWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
