// Package settings owns the persisted prayer settings. Mutators apply to
// memory synchronously; recomputing reminders and mirroring changes to the
// remote backend happen on background workers.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/waqtapp/waqt/internal/remote"
	"github.com/waqtapp/waqt/pkg/logger"
	"github.com/waqtapp/waqt/pkg/prayer"
)

// MaxOffsetMinutes bounds a single prayer offset in either direction.
const MaxOffsetMinutes = 720

const (
	syncQueueSize = 64
	remoteTimeout = 30 * time.Second
)

var ErrOffsetOutOfRange = errors.New("offset out of range")

// Persister is the key/value storage the snapshot is written to. Errors are
// absorbed by the implementation.
type Persister interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Remove(ctx context.Context, key string)
}

// Remote mirrors settings to the profile backend.
type Remote interface {
	CreateUser(ctx context.Context, u remote.NewUser) (string, error)
	UpdateSettings(ctx context.Context, userID string, u remote.SettingsUpdate) error
}

// Rehydrator recomputes and reinstalls reminders for s.
type Rehydrator func(ctx context.Context, s prayer.Settings) error

// Options configures Open. Storage and Rehydrate are required; Remote may be
// nil to disable syncing.
type Options struct {
	Storage   Persister
	Remote    Remote
	Rehydrate Rehydrator
	Logger    logger.Logger
}

type syncJob struct {
	name string
	run  func(ctx context.Context) error
}

// Store is the single owner of the settings snapshot.
type Store struct {
	storage   Persister
	remote    Remote
	rehydrate Rehydrator
	log       logger.Logger

	mu   sync.RWMutex
	snap Snapshot

	wake  chan struct{}
	syncq chan syncJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open loads the persisted snapshot, migrating older schemas, and starts the
// background workers. A missing or unreadable snapshot yields defaults; an
// unreadable one is copied aside so it is never lost.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Storage == nil || opts.Rehydrate == nil {
		return nil, errors.New("settings: storage and rehydrate are required")
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Store{
		storage:   opts.Storage,
		remote:    opts.Remote,
		rehydrate: opts.Rehydrate,
		log:       logger.OrNop(opts.Logger),
		wake:      make(chan struct{}, 1),
		syncq:     make(chan syncJob, syncQueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.snap = s.load(ctx)

	s.wg.Add(2)
	go s.rehydrateLoop()
	go s.syncLoop()
	return s, nil
}

func (s *Store) load(ctx context.Context) Snapshot {
	raw, ok := s.storage.Get(ctx, StorageKey)
	if !ok {
		return Defaults()
	}
	snap, migrated, err := Decode(raw)
	if err != nil {
		s.log.Error("settings: %v; starting from defaults", err)
		s.storage.Set(ctx, StorageKey+".corrupt", raw)
		return Defaults()
	}
	if err := snap.PrayerOffsets.Validate(); err != nil {
		s.log.Warning("settings: stored offsets: %v; reset offsets to repair", err)
	}
	if migrated {
		s.log.Info("settings: migrated snapshot to schema v%d", SchemaVersion)
		s.persist(ctx, snap)
	}
	return snap
}

func (s *Store) persist(ctx context.Context, snap Snapshot) {
	data, err := Encode(snap)
	if err != nil {
		s.log.Error("settings: encode: %v", err)
		return
	}
	s.storage.Set(ctx, StorageKey, data)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Prayer returns the computation inputs of the current state.
func (s *Store) Prayer() prayer.Settings {
	return s.Snapshot().Prayer()
}

// update applies fn under the lock, persists the result and requests a
// rehydrate. The in-memory change is visible before the rehydrate runs.
func (s *Store) update(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	next := s.snap.clone()
	fn(&next)
	s.snap = next
	s.persist(s.ctx, next)
	s.mu.Unlock()

	s.RequestRehydrate()
	return next.clone()
}

// RequestRehydrate asks the worker to reinstall reminders from the latest
// snapshot. Requests made while one is pending are coalesced.
func (s *Store) RequestRehydrate() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) rehydrateLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		if err := s.rehydrate(s.ctx, s.Prayer()); err != nil && s.ctx.Err() == nil {
			s.log.Error("settings: rehydrate: %v", err)
		}
	}
}

func (s *Store) enqueue(name string, run func(ctx context.Context) error) {
	if s.remote == nil {
		return
	}
	select {
	case s.syncq <- syncJob{name: name, run: run}:
	default:
		s.log.Warning("settings: remote sync queue full, dropping %s", name)
	}
}

func (s *Store) syncLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.syncq:
			ctx, cancel := context.WithTimeout(s.ctx, remoteTimeout)
			if err := job.run(ctx); err != nil && s.ctx.Err() == nil {
				s.log.Warning("settings: remote %s: %v", job.name, err)
			}
			cancel()
		}
	}
}

// pushUpdate mirrors u if the profile is already registered remotely.
func (s *Store) pushUpdate(name string, snap Snapshot, u remote.SettingsUpdate) {
	userID := snap.Profile.UserID
	if userID == "" {
		return
	}
	s.enqueue(name, func(ctx context.Context) error {
		return s.remote.UpdateSettings(ctx, userID, u)
	})
}

// SetProfile merges the non-empty fields of p into the profile.
func (s *Store) SetProfile(p Profile) Snapshot {
	return s.update(func(snap *Snapshot) {
		if p.Name != "" {
			snap.Profile.Name = p.Name
		}
		if p.Email != "" {
			snap.Profile.Email = p.Email
		}
		if p.UserID != "" {
			snap.Profile.UserID = p.UserID
		}
	})
}

func (s *Store) SetLocation(c prayer.Coordinates) (Snapshot, error) {
	if err := c.Validate(); err != nil {
		return Snapshot{}, err
	}
	snap := s.update(func(snap *Snapshot) { snap.Location = c })
	s.pushUpdate("location", snap, remote.SettingsUpdate{Location: &c})
	return snap, nil
}

func (s *Store) SetJuristicMethod(j prayer.JuristicMethod) (Snapshot, error) {
	if !j.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", prayer.ErrUnknownJuristicMethod, j)
	}
	snap := s.update(func(snap *Snapshot) { snap.JuristicMethod = j })
	s.pushUpdate("juristic method", snap, remote.SettingsUpdate{JuristicMethod: &j})
	return snap, nil
}

// SetCalculationMethod changes the method. The backend has no field for it,
// so it is kept local.
func (s *Store) SetCalculationMethod(m prayer.CalculationMethod) (Snapshot, error) {
	if !m.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", prayer.ErrUnknownCalculationMethod, m)
	}
	return s.update(func(snap *Snapshot) { snap.CalculationMethod = m }), nil
}

func (s *Store) UpdateOffset(id prayer.ID, minutes int) (Snapshot, error) {
	if !id.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", prayer.ErrUnknownPrayer, id)
	}
	if minutes < -MaxOffsetMinutes || minutes > MaxOffsetMinutes {
		return Snapshot{}, fmt.Errorf("%w: %d not within ±%d", ErrOffsetOutOfRange, minutes, MaxOffsetMinutes)
	}
	snap := s.update(func(snap *Snapshot) {
		if snap.PrayerOffsets == nil {
			snap.PrayerOffsets = prayer.DefaultOffsets()
		}
		snap.PrayerOffsets[id] = minutes
	})
	s.pushUpdate("offsets", snap, remote.SettingsUpdate{PrayerOffsets: snap.PrayerOffsets.Clone()})
	return snap, nil
}

// ResetOffsets restores a complete zero offset map.
func (s *Store) ResetOffsets() Snapshot {
	snap := s.update(func(snap *Snapshot) { snap.PrayerOffsets = prayer.DefaultOffsets() })
	s.pushUpdate("offsets", snap, remote.SettingsUpdate{PrayerOffsets: prayer.DefaultOffsets()})
	return snap
}

// MarkOnboardingComplete sets the onboarding flag. If no remote profile
// exists yet, one is created in the background and any non-default juristic
// method or offsets chosen during onboarding are pushed to it.
func (s *Store) MarkOnboardingComplete() Snapshot {
	snap := s.update(func(snap *Snapshot) { snap.HasCompletedOnboarding = true })
	if snap.Profile.UserID == "" {
		s.enqueue("create profile", s.createProfile)
	}
	return snap
}

func (s *Store) createProfile(ctx context.Context) error {
	snap := s.Snapshot()
	if snap.Profile.UserID != "" {
		return nil
	}
	userID, err := s.remote.CreateUser(ctx, remote.NewUser{
		Name:     snap.Profile.Name,
		Email:    snap.Profile.Email,
		Location: snap.Location,
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.Profile.UserID = userID
	s.persist(s.ctx, s.snap)
	s.mu.Unlock()
	s.log.Info("settings: registered remote profile %s", userID)

	if snap.JuristicMethod == prayer.Standard && snap.PrayerOffsets.IsZero() {
		return nil
	}
	j := snap.JuristicMethod
	return s.remote.UpdateSettings(ctx, userID, remote.SettingsUpdate{
		JuristicMethod: &j,
		PrayerOffsets:  snap.PrayerOffsets.Clone(),
	})
}

// Close stops the workers. Queued remote updates are dropped.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}
