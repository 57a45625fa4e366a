package server

import (
	"context"
	"errors"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/waqtapp/waqt/internal/api"
	"github.com/waqtapp/waqt/internal/notify"
	"github.com/waqtapp/waqt/internal/settings"
	"github.com/waqtapp/waqt/pkg/prayer"
)

// Custom JSON-RPC error codes.
const (
	codeValidation     = jrpc2.Code(-32001)
	codeUnresolvable   = jrpc2.Code(-32002)
	codeNotConfigured  = jrpc2.Code(-32003)
	codeDeliveryFailed = jrpc2.Code(-32004)
	codeInvalidParams  = jrpc2.Code(-32602)
	codeInternal       = jrpc2.Code(-32603)
)

// maxTestDelay bounds notifications.test delays.
const maxTestDelay = 24 * time.Hour

const maxHistoryLimit = 500

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // required; empty rejects every request
	Version   string
	Commit    string
	BuildType string
}

// RPCServer holds the method table and the HTTP bridge over it.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	secret    string
	version   string
	commit    string
	buildType string
	api       *api.Api
}

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// DateParams selects a day as YYYY-MM-DD; empty means today.
type DateParams struct {
	Date string `json:"date,omitempty"`
}

// MonthParams selects a month as YYYY-MM; empty means the current month.
type MonthParams struct {
	Month string `json:"month,omitempty"`
}

// NextParams selects the reference instant as RFC 3339; empty means now.
type NextParams struct {
	At string `json:"at,omitempty"`
}

// NextResult wraps schedule.next; Next is null when nothing is scheduled.
type NextResult struct {
	Next *api.Next `json:"next"`
}

type ProfileParams struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type LocationParams struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Label     string   `json:"label,omitempty"`
}

type MethodParams struct {
	Method string `json:"method"`
}

type OffsetParams struct {
	Prayer  string `json:"prayer"`
	Minutes *int   `json:"minutes"`
}

// SettingsResult carries the snapshot and, for settings.get, the method
// catalog.
type SettingsResult struct {
	Settings settings.Snapshot `json:"settings"`
	Methods  []prayer.Method   `json:"methods,omitempty"`
}

type PendingResult struct {
	Triggers []notify.Pending `json:"triggers"`
}

// HistoryParams caps the number of entries; zero selects the default.
type HistoryParams struct {
	Limit int `json:"limit,omitempty"`
}

type HistoryResult struct {
	Entries []notify.Fired `json:"entries"`
}

type RehydrateResult struct {
	Installed int `json:"installed"`
}

// TestParams delays the test notification; zero sends it now.
type TestParams struct {
	DelaySeconds int `json:"delaySeconds,omitempty"`
}

type TestResult struct {
	ID      string    `json:"id"`
	FiresAt time.Time `json:"firesAt"`
	Sent    bool      `json:"sent"`
}

// NewRPCServer builds the method table over a and its HTTP bridge.
func NewRPCServer(cfg *RPCConfig, a *api.Api) *RPCServer {
	rs := &RPCServer{
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
		api:       a,
	}

	rs.methods = handler.Map{
		"system.getVersion":             handler.New(rs.systemGetVersion),
		"schedule.today":                handler.New(rs.scheduleToday),
		"schedule.month":                handler.New(rs.scheduleMonth),
		"schedule.next":                 handler.New(rs.scheduleNext),
		"qibla.direction":               handler.New(rs.qiblaDirection),
		"settings.get":                  handler.New(rs.settingsGet),
		"settings.setProfile":           handler.New(rs.settingsSetProfile),
		"settings.setLocation":          handler.New(rs.settingsSetLocation),
		"settings.setJuristicMethod":    handler.New(rs.settingsSetJuristicMethod),
		"settings.setCalculationMethod": handler.New(rs.settingsSetCalculationMethod),
		"settings.updateOffset":         handler.New(rs.settingsUpdateOffset),
		"settings.resetOffsets":         handler.New(rs.settingsResetOffsets),
		"settings.completeOnboarding":   handler.New(rs.settingsCompleteOnboarding),
		"notifications.pending":         handler.New(rs.notificationsPending),
		"notifications.rehydrate":       handler.New(rs.notificationsRehydrate),
		"notifications.test":            handler.New(rs.notificationsTest),
		"notifications.history":         handler.New(rs.notificationsHistory),
	}

	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// rpcError maps domain errors onto JSON-RPC errors.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, prayer.ErrInvalidCoordinates),
		errors.Is(err, prayer.ErrIncompleteOffsets),
		errors.Is(err, prayer.ErrUnknownPrayer),
		errors.Is(err, prayer.ErrUnknownJuristicMethod),
		errors.Is(err, prayer.ErrUnknownCalculationMethod),
		errors.Is(err, settings.ErrOffsetOutOfRange):
		return &jrpc2.Error{Code: codeValidation, Message: err.Error()}
	case errors.Is(err, prayer.ErrUnresolvableSolarPosition):
		return &jrpc2.Error{Code: codeUnresolvable, Message: err.Error()}
	case errors.Is(err, notify.ErrNoImmediateDelivery),
		errors.Is(err, notify.ErrNoHistory):
		return &jrpc2.Error{Code: codeNotConfigured, Message: err.Error()}
	default:
		return &jrpc2.Error{Code: codeInternal, Message: err.Error()}
	}
}

func invalidParams(msg string) error {
	return &jrpc2.Error{Code: codeInvalidParams, Message: msg}
}

func (rs *RPCServer) parseDate(layout, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(layout, s, rs.api.Location())
	if err != nil {
		return time.Time{}, invalidParams("invalid date " + s + ": expected " + layout)
	}
	return t, nil
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*VersionResult, error) {
	return &VersionResult{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

func (rs *RPCServer) scheduleToday(_ context.Context, p *DateParams) (*api.Day, error) {
	date, err := rs.parseDate(prayer.DateLayout, p.Date)
	if err != nil {
		return nil, err
	}
	day, err := rs.api.GetSchedule(date)
	return day, rpcError(err)
}

func (rs *RPCServer) scheduleMonth(_ context.Context, p *MonthParams) (*api.Month, error) {
	month, err := rs.parseDate("2006-01", p.Month)
	if err != nil {
		return nil, err
	}
	m, err := rs.api.GetMonthSchedule(month)
	return m, rpcError(err)
}

func (rs *RPCServer) scheduleNext(_ context.Context, p *NextParams) (*NextResult, error) {
	var at time.Time
	if p.At != "" {
		t, err := time.Parse(time.RFC3339, p.At)
		if err != nil {
			return nil, invalidParams("invalid at: expected RFC 3339")
		}
		at = t.In(rs.api.Location())
	}
	next, err := rs.api.GetNextEvent(at)
	if err != nil {
		return nil, rpcError(err)
	}
	return &NextResult{Next: next}, nil
}

func (rs *RPCServer) qiblaDirection(_ context.Context) (*api.Qibla, error) {
	q, err := rs.api.Qibla()
	return q, rpcError(err)
}

func (rs *RPCServer) settingsGet(_ context.Context) (*SettingsResult, error) {
	return &SettingsResult{Settings: rs.api.Settings(), Methods: rs.api.Methods()}, nil
}

func (rs *RPCServer) settingsSetProfile(_ context.Context, p *ProfileParams) (*SettingsResult, error) {
	if p.Name == "" && p.Email == "" {
		return nil, invalidParams("missing required param: name or email")
	}
	return &SettingsResult{Settings: rs.api.SetProfile(p.Name, p.Email)}, nil
}

func (rs *RPCServer) settingsSetLocation(_ context.Context, p *LocationParams) (*SettingsResult, error) {
	if p.Latitude == nil || p.Longitude == nil {
		return nil, invalidParams("missing required params: latitude, longitude")
	}
	s, err := rs.api.SetLocation(prayer.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude, Label: p.Label})
	if err != nil {
		return nil, rpcError(err)
	}
	return &SettingsResult{Settings: s}, nil
}

func (rs *RPCServer) settingsSetJuristicMethod(_ context.Context, p *MethodParams) (*SettingsResult, error) {
	s, err := rs.api.SetJuristicMethod(p.Method)
	if err != nil {
		return nil, rpcError(err)
	}
	return &SettingsResult{Settings: s}, nil
}

func (rs *RPCServer) settingsSetCalculationMethod(_ context.Context, p *MethodParams) (*SettingsResult, error) {
	s, err := rs.api.SetCalculationMethod(p.Method)
	if err != nil {
		return nil, rpcError(err)
	}
	return &SettingsResult{Settings: s}, nil
}

func (rs *RPCServer) settingsUpdateOffset(_ context.Context, p *OffsetParams) (*SettingsResult, error) {
	if p.Prayer == "" || p.Minutes == nil {
		return nil, invalidParams("missing required params: prayer, minutes")
	}
	s, err := rs.api.UpdateOffset(p.Prayer, *p.Minutes)
	if err != nil {
		return nil, rpcError(err)
	}
	return &SettingsResult{Settings: s}, nil
}

func (rs *RPCServer) settingsResetOffsets(_ context.Context) (*SettingsResult, error) {
	return &SettingsResult{Settings: rs.api.ResetOffsets()}, nil
}

func (rs *RPCServer) settingsCompleteOnboarding(_ context.Context) (*SettingsResult, error) {
	return &SettingsResult{Settings: rs.api.CompleteOnboarding()}, nil
}

func (rs *RPCServer) notificationsPending(ctx context.Context) (*PendingResult, error) {
	pending, err := rs.api.Pending(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	return &PendingResult{Triggers: pending}, nil
}

func (rs *RPCServer) notificationsRehydrate(ctx context.Context) (*RehydrateResult, error) {
	n, err := rs.api.Rehydrate(ctx)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeDeliveryFailed, Message: err.Error()}
	}
	return &RehydrateResult{Installed: n}, nil
}

func (rs *RPCServer) notificationsTest(ctx context.Context, p *TestParams) (*TestResult, error) {
	delay := time.Duration(p.DelaySeconds) * time.Second
	if delay < 0 || delay > maxTestDelay {
		return nil, invalidParams("delaySeconds must be between 0 and 86400")
	}
	spec, err := rs.api.SendTest(ctx, delay)
	if err != nil {
		if errors.Is(err, notify.ErrNoImmediateDelivery) {
			return nil, rpcError(err)
		}
		return nil, &jrpc2.Error{Code: codeDeliveryFailed, Message: err.Error()}
	}
	return &TestResult{ID: spec.ID, FiresAt: spec.FiresAt, Sent: delay == 0}, nil
}

func (rs *RPCServer) notificationsHistory(ctx context.Context, p *HistoryParams) (*HistoryResult, error) {
	if p.Limit < 0 || p.Limit > maxHistoryLimit {
		return nil, invalidParams("limit must be between 0 and 500")
	}
	entries, err := rs.api.History(ctx, p.Limit)
	if err != nil {
		return nil, rpcError(err)
	}
	if entries == nil {
		entries = []notify.Fired{}
	}
	return &HistoryResult{Entries: entries}, nil
}

// Close shuts down the jrpc2 bridge, releasing internal goroutines.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}
