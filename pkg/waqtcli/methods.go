package waqtcli

import (
	"context"
	"time"

	"github.com/waqtapp/waqt/internal/api"
	"github.com/waqtapp/waqt/internal/server"
	"github.com/waqtapp/waqt/pkg/prayer"
)

func (c *Client) GetDaemonVersion(ctx context.Context) (*server.VersionResult, error) {
	return invoke[server.VersionResult](ctx, c, "system.getVersion", nil)
}

// Today returns the schedule of date (YYYY-MM-DD), or today's when empty.
func (c *Client) Today(ctx context.Context, date string) (*api.Day, error) {
	return invoke[api.Day](ctx, c, "schedule.today", &server.DateParams{Date: date})
}

// Month returns every day of month (YYYY-MM), or the current month.
func (c *Client) Month(ctx context.Context, month string) (*api.Month, error) {
	return invoke[api.Month](ctx, c, "schedule.month", &server.MonthParams{Month: month})
}

// Next returns the upcoming prayer relative to at, or now when at is zero.
// The result is nil when the daemon has nothing to report.
func (c *Client) Next(ctx context.Context, at time.Time) (*api.Next, error) {
	p := &server.NextParams{}
	if !at.IsZero() {
		p.At = at.Format(time.RFC3339)
	}
	res, err := invoke[server.NextResult](ctx, c, "schedule.next", p)
	if err != nil {
		return nil, err
	}
	return res.Next, nil
}

func (c *Client) Qibla(ctx context.Context) (*api.Qibla, error) {
	return invoke[api.Qibla](ctx, c, "qibla.direction", nil)
}

func (c *Client) Settings(ctx context.Context) (*server.SettingsResult, error) {
	return invoke[server.SettingsResult](ctx, c, "settings.get", nil)
}

func (c *Client) SetProfile(ctx context.Context, name, email string) (*server.SettingsResult, error) {
	return invoke[server.SettingsResult](ctx, c, "settings.setProfile", &server.ProfileParams{Name: name, Email: email})
}

func (c *Client) SetLocation(ctx context.Context, loc prayer.Coordinates) (*server.SettingsResult, error) {
	lat, lng := loc.Latitude, loc.Longitude
	return invoke[server.SettingsResult](ctx, c, "settings.setLocation", &server.LocationParams{
		Latitude:  &lat,
		Longitude: &lng,
		Label:     loc.Label,
	})
}

func (c *Client) SetJuristicMethod(ctx context.Context, method string) (*server.SettingsResult, error) {
	return invoke[server.SettingsResult](ctx, c, "settings.setJuristicMethod", &server.MethodParams{Method: method})
}

func (c *Client) SetCalculationMethod(ctx context.Context, method string) (*server.SettingsResult, error) {
	return invoke[server.SettingsResult](ctx, c, "settings.setCalculationMethod", &server.MethodParams{Method: method})
}

func (c *Client) UpdateOffset(ctx context.Context, prayerID string, minutes int) (*server.SettingsResult, error) {
	return invoke[server.SettingsResult](ctx, c, "settings.updateOffset", &server.OffsetParams{Prayer: prayerID, Minutes: &minutes})
}

func (c *Client) ResetOffsets(ctx context.Context) (*server.SettingsResult, error) {
	return invoke[server.SettingsResult](ctx, c, "settings.resetOffsets", nil)
}

func (c *Client) CompleteOnboarding(ctx context.Context) (*server.SettingsResult, error) {
	return invoke[server.SettingsResult](ctx, c, "settings.completeOnboarding", nil)
}

func (c *Client) Pending(ctx context.Context) (*server.PendingResult, error) {
	return invoke[server.PendingResult](ctx, c, "notifications.pending", nil)
}

func (c *Client) Rehydrate(ctx context.Context) (*server.RehydrateResult, error) {
	return invoke[server.RehydrateResult](ctx, c, "notifications.rehydrate", nil)
}

// History lists up to limit fired or missed reminders, newest first. A zero
// limit lets the daemon pick.
func (c *Client) History(ctx context.Context, limit int) (*server.HistoryResult, error) {
	return invoke[server.HistoryResult](ctx, c, "notifications.history", &server.HistoryParams{Limit: limit})
}

// SendTest fires a test reminder after delay; zero delivers it at once.
func (c *Client) SendTest(ctx context.Context, delay time.Duration) (*server.TestResult, error) {
	return invoke[server.TestResult](ctx, c, "notifications.test", &server.TestParams{DelaySeconds: int(delay / time.Second)})
}
