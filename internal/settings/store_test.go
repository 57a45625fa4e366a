package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/waqtapp/waqt/internal/remote"
	"github.com/waqtapp/waqt/pkg/logger"
	"github.com/waqtapp/waqt/pkg/prayer"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStorage() *memStorage { return &memStorage{data: map[string]string{}} }

func (m *memStorage) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memStorage) Set(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *memStorage) Remove(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

type updateCall struct {
	userID string
	update remote.SettingsUpdate
}

type fakeRemote struct {
	createErr error
	updateErr error
	created   chan remote.NewUser
	updates   chan updateCall
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{created: make(chan remote.NewUser, 8), updates: make(chan updateCall, 8)}
}

func (f *fakeRemote) CreateUser(_ context.Context, u remote.NewUser) (string, error) {
	f.created <- u
	if f.createErr != nil {
		return "", f.createErr
	}
	return "user-1", nil
}

func (f *fakeRemote) UpdateSettings(_ context.Context, userID string, u remote.SettingsUpdate) error {
	f.updates <- updateCall{userID, u}
	return f.updateErr
}

type rehydrations struct {
	ch  chan prayer.Settings
	err error
}

func (r *rehydrations) fn(_ context.Context, s prayer.Settings) error {
	r.ch <- s
	return r.err
}

func (r *rehydrations) next(t *testing.T) prayer.Settings {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no rehydrate")
	}
	return prayer.Settings{}
}

func openStore(t *testing.T, storage Persister, rem Remote, l logger.Logger) (*Store, *rehydrations) {
	t.Helper()
	r := &rehydrations{ch: make(chan prayer.Settings, 16)}
	opts := Options{Storage: storage, Rehydrate: r.fn, Logger: l}
	if rem != nil {
		opts.Remote = rem
	}
	s, err := Open(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, r
}

func TestOpen_DefaultsWhenEmpty(t *testing.T) {
	s, _ := openStore(t, newMemStorage(), nil, nil)
	if got := s.Snapshot(); got.JuristicMethod != prayer.Hanafi || got.HasCompletedOnboarding {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestOpen_MigratesAndPersists(t *testing.T) {
	storage := newMemStorage()
	storage.Set(context.Background(), StorageKey, v1Snapshot)
	s, _ := openStore(t, storage, nil, nil)

	if got := s.Snapshot(); got.CalculationMethod != prayer.Karachi || got.Profile.Name != "Aisha" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	raw, _ := storage.Get(context.Background(), StorageKey)
	_, migrated, err := Decode(raw)
	if err != nil || migrated {
		t.Fatalf("stored snapshot not rewritten at current schema: %v %v", err, migrated)
	}
}

func TestOpen_CorruptIsKeptAside(t *testing.T) {
	storage := newMemStorage()
	storage.Set(context.Background(), StorageKey, "{not json")
	log := logger.NewMockLogger()
	s, _ := openStore(t, storage, nil, log)

	if s.Snapshot().CalculationMethod != prayer.Karachi {
		t.Fatal("expected defaults")
	}
	if v, ok := storage.Get(context.Background(), StorageKey+".corrupt"); !ok || v != "{not json" {
		t.Fatal("corrupt snapshot was not preserved")
	}
	if len(log.Errors()) != 1 {
		t.Fatalf("expected one error, got %v", log.Errors())
	}
}

func TestMutators_ApplyAndRehydrate(t *testing.T) {
	storage := newMemStorage()
	s, r := openStore(t, storage, nil, nil)

	karachi := prayer.Coordinates{Latitude: 24.86, Longitude: 67.0, Label: "Karachi"}
	snap, err := s.SetLocation(karachi)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Location != karachi || s.Snapshot().Location != karachi {
		t.Fatal("location not applied synchronously")
	}
	if got := r.next(t); got.Location != karachi {
		t.Fatalf("rehydrated with stale location %+v", got.Location)
	}

	if _, err := s.UpdateOffset(prayer.Asr, 10); err != nil {
		t.Fatal(err)
	}
	if got := r.next(t); got.Offsets[prayer.Asr] != 10 {
		t.Fatalf("rehydrated with stale offsets %+v", got.Offsets)
	}

	raw, _ := storage.Get(context.Background(), StorageKey)
	persisted, _, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if persisted.Location != karachi || persisted.PrayerOffsets[prayer.Asr] != 10 {
		t.Fatalf("not persisted: %+v", persisted)
	}

	s.ResetOffsets()
	if got := r.next(t); !got.Offsets.IsZero() {
		t.Fatalf("reset not rehydrated %+v", got.Offsets)
	}
}

func TestMutators_Validation(t *testing.T) {
	s, r := openStore(t, newMemStorage(), nil, nil)
	before := s.Snapshot()

	if _, err := s.SetLocation(prayer.Coordinates{Latitude: 91}); !errors.Is(err, prayer.ErrInvalidCoordinates) {
		t.Fatalf("expected invalid coordinates, got %v", err)
	}
	if _, err := s.SetJuristicMethod("SHAFI"); !errors.Is(err, prayer.ErrUnknownJuristicMethod) {
		t.Fatalf("expected unknown juristic method, got %v", err)
	}
	if _, err := s.SetCalculationMethod("ISNA"); !errors.Is(err, prayer.ErrUnknownCalculationMethod) {
		t.Fatalf("expected unknown method, got %v", err)
	}
	if _, err := s.UpdateOffset("sunrise", 5); !errors.Is(err, prayer.ErrUnknownPrayer) {
		t.Fatalf("expected unknown prayer, got %v", err)
	}
	if _, err := s.UpdateOffset(prayer.Fajr, MaxOffsetMinutes+1); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if after := s.Snapshot(); after.Location != before.Location || after.JuristicMethod != before.JuristicMethod {
		t.Fatal("rejected mutation changed state")
	}
	select {
	case <-r.ch:
		t.Fatal("rejected mutation requested a rehydrate")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRehydrateErrorsAreLogged(t *testing.T) {
	log := logger.NewMockLogger()
	s, r := openStore(t, newMemStorage(), nil, log)
	r.err = errors.New("device unavailable")
	s.SetProfile(Profile{Name: "Aisha"})
	r.next(t)
	deadline := time.Now().Add(time.Second)
	for !log.Contains("device unavailable") {
		if time.Now().After(deadline) {
			t.Fatal("rehydrate failure not logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.Snapshot().Profile.Name != "Aisha" {
		t.Fatal("rehydrate failure must not revert state")
	}
}

func TestRemoteSync_RequiresProfile(t *testing.T) {
	rem := newFakeRemote()
	s, _ := openStore(t, newMemStorage(), rem, nil)

	if _, err := s.SetJuristicMethod(prayer.Standard); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-rem.updates:
		t.Fatalf("update sent without a profile: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}

	s.SetProfile(Profile{UserID: "u9"})
	if _, err := s.SetJuristicMethod(prayer.Hanafi); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-rem.updates:
		if c.userID != "u9" || c.update.JuristicMethod == nil || *c.update.JuristicMethod != prayer.Hanafi {
			t.Fatalf("unexpected update %+v", c)
		}
		if c.update.Location != nil || c.update.PrayerOffsets != nil {
			t.Fatal("only the changed field should be sent")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no remote update")
	}
}

func TestRemoteSync_FailuresSwallowed(t *testing.T) {
	rem := newFakeRemote()
	rem.updateErr = errors.New("503")
	log := logger.NewMockLogger()
	s, _ := openStore(t, newMemStorage(), rem, log)
	s.SetProfile(Profile{UserID: "u9"})

	snap, err := s.UpdateOffset(prayer.Isha, 5)
	if err != nil {
		t.Fatalf("remote failure surfaced: %v", err)
	}
	<-rem.updates
	deadline := time.Now().Add(time.Second)
	for !log.Contains("503") {
		if time.Now().After(deadline) {
			t.Fatal("remote failure not logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap.PrayerOffsets[prayer.Isha] != 5 || s.Snapshot().PrayerOffsets[prayer.Isha] != 5 {
		t.Fatal("local state must stay authoritative")
	}
}

func TestMarkOnboardingComplete_CreatesProfile(t *testing.T) {
	rem := newFakeRemote()
	storage := newMemStorage()
	s, r := openStore(t, storage, rem, nil)
	s.SetProfile(Profile{Name: "Aisha", Email: "aisha@example.com"})
	if _, err := s.UpdateOffset(prayer.Fajr, -5); err != nil {
		t.Fatal(err)
	}

	snap := s.MarkOnboardingComplete()
	if !snap.HasCompletedOnboarding {
		t.Fatal("flag not set")
	}
	r.next(t)

	select {
	case u := <-rem.created:
		if u.Name != "Aisha" || u.Location != prayer.DefaultLocation {
			t.Fatalf("unexpected create payload %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("profile not created")
	}
	select {
	case c := <-rem.updates:
		if c.userID != "user-1" || c.update.PrayerOffsets[prayer.Fajr] != -5 || *c.update.JuristicMethod != prayer.Hanafi {
			t.Fatalf("unexpected follow-up update %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("non-default settings not pushed")
	}
	if s.Snapshot().Profile.UserID != "user-1" {
		t.Fatal("user id not stored")
	}
	raw, _ := storage.Get(context.Background(), StorageKey)
	persisted, _, _ := Decode(raw)
	if persisted.Profile.UserID != "user-1" {
		t.Fatal("user id not persisted")
	}
}

func TestMarkOnboardingComplete_DefaultsNotPushed(t *testing.T) {
	rem := newFakeRemote()
	s, _ := openStore(t, newMemStorage(), rem, nil)
	if _, err := s.SetJuristicMethod(prayer.Standard); err != nil {
		t.Fatal(err)
	}
	s.MarkOnboardingComplete()
	<-rem.created
	select {
	case c := <-rem.updates:
		t.Fatalf("unexpected update for default settings %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMarkOnboardingComplete_CreateFailureKeepsFlag(t *testing.T) {
	rem := newFakeRemote()
	rem.createErr = errors.New("offline")
	log := logger.NewMockLogger()
	s, _ := openStore(t, newMemStorage(), rem, log)
	s.MarkOnboardingComplete()
	<-rem.created
	deadline := time.Now().Add(time.Second)
	for !log.Contains("offline") {
		if time.Now().After(deadline) {
			t.Fatal("create failure not logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := s.Snapshot()
	if !got.HasCompletedOnboarding || got.Profile.UserID != "" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestRequestRehydrate_Coalesces(t *testing.T) {
	block := make(chan struct{})
	var calls int
	var mu sync.Mutex
	rehydrate := func(context.Context, prayer.Settings) error {
		mu.Lock()
		calls++
		mu.Unlock()
		<-block
		return nil
	}
	s, err := Open(context.Background(), Options{Storage: newMemStorage(), Rehydrate: rehydrate})
	if err != nil {
		t.Fatal(err)
	}
	s.RequestRehydrate()
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 10; i++ {
		s.RequestRehydrate()
	}
	close(block)
	time.Sleep(50 * time.Millisecond)
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected 2 coalesced runs, got %d", calls)
	}
}

func TestOpen_RequiresCollaborators(t *testing.T) {
	if _, err := Open(context.Background(), Options{Storage: newMemStorage()}); err == nil {
		t.Fatal("expected an error without a rehydrator")
	}
}
