package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/waqtapp/waqt/cmd/common"
	"github.com/waqtapp/waqt/config"
	"github.com/waqtapp/waqt/internal/api"
	"github.com/waqtapp/waqt/internal/notify"
	"github.com/waqtapp/waqt/internal/server"
	"github.com/waqtapp/waqt/internal/settings"
	"github.com/waqtapp/waqt/pkg/prayer"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func TestFormatHelpers(t *testing.T) {
	if got := clock(time.Date(2024, 3, 15, 5, 7, 0, 0, ist)); got != "05:07" {
		t.Errorf("clock() = %q", got)
	}
	if got := clock(time.Time{}); got != "--:--" {
		t.Errorf("clock(zero) = %q", got)
	}
	for in, want := range map[int]string{0: "0", 5: "+5", -12: "-12"} {
		if got := signed(in); got != want {
			t.Errorf("signed(%d) = %q, want %q", in, got, want)
		}
	}
	if got := placeName(prayer.Coordinates{Latitude: 19.076, Longitude: 72.8777, Label: "Mumbai"}); got != "Mumbai (19.0760, 72.8777)" {
		t.Errorf("placeName() = %q", got)
	}
	if got := placeName(prayer.Coordinates{Latitude: -1.5, Longitude: 2}); got != "-1.5000, 2.0000" {
		t.Errorf("placeName(no label) = %q", got)
	}
}

func TestDialAddr(t *testing.T) {
	tests := map[string]string{
		"":          "127.0.0.1:4100",
		"0.0.0.0":   "127.0.0.1:4100",
		"127.0.0.1": "127.0.0.1:4100",
		"::1":       "[::1]:4100",
	}
	for host, want := range tests {
		if got := dialAddr(&config.Config{RPCHost: host, RPCPort: 4100}); got != want {
			t.Errorf("dialAddr(%q) = %q, want %q", host, got, want)
		}
	}
}

func TestParseLocation(t *testing.T) {
	c, err := parseLocation([]string{"21.4225", "39.8262"}, "Makkah")
	if err != nil {
		t.Fatal(err)
	}
	if c.Latitude != 21.4225 || c.Longitude != 39.8262 || c.Label != "Makkah" {
		t.Fatalf("unexpected coordinates %+v", c)
	}
	for _, args := range [][]string{
		{"21.4"},
		{"north", "39"},
		{"21", "east"},
		{"95", "10"},
	} {
		if _, err := parseLocation(args, ""); err == nil {
			t.Errorf("parseLocation(%v) should fail", args)
		}
	}
}

func TestParseOffset(t *testing.T) {
	id, minutes, err := parseOffset([]string{"Isha", "-5"})
	if err != nil || id != "isha" || minutes != -5 {
		t.Fatalf("parseOffset() = %q, %d, %v", id, minutes, err)
	}
	if _, m, err := parseOffset([]string{"fajr", "--", "3"}); err != nil || m != 3 {
		t.Fatalf("separator not ignored: %d %v", m, err)
	}
	for _, args := range [][]string{{"isha"}, {"sunrise", "5"}, {"asr", "ten"}} {
		if _, _, err := parseOffset(args); err == nil {
			t.Errorf("parseOffset(%v) should fail", args)
		}
	}
}

func sampleDay() *api.Day {
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, ist)
	at := func(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	return &api.Day{
		Date:              "2024-03-15",
		Location:          prayer.Coordinates{Latitude: 19.076, Longitude: 72.8777, Label: "Mumbai"},
		JuristicMethod:    prayer.Hanafi,
		CalculationMethod: prayer.Karachi,
		Sunrise:           at(6, 36),
		Schedule: prayer.DaySchedule{
			{ID: prayer.Fajr, Label: "Fajr", BaseTime: at(5, 20), AdjustedTime: at(5, 20)},
			{ID: prayer.Isha, Label: "Isha", BaseTime: at(20, 5), AdjustedTime: at(20, 10), OffsetMinutes: 5, Order: 4},
		},
	}
}

func TestPrintDay(t *testing.T) {
	var sb strings.Builder
	printDay(&sb, sampleDay())
	out := sb.String()
	for _, want := range []string{
		"Prayer times for 2024-03-15 at Mumbai (19.0760, 72.8777)",
		"Method: KARACHI, juristic: HANAFI, sunrise 06:36",
		common.Row(dayWidths, "Fajr", "05:20", "05:20", "0"),
		common.Row(dayWidths, "Isha", "20:10", "20:05", "+5"),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPrintMonth(t *testing.T) {
	d := sampleDay()
	var sb strings.Builder
	printMonth(&sb, &api.Month{Month: "2024-03", Days: []prayer.MonthDay{{Date: d.Date, Schedule: d.Schedule}}})
	out := sb.String()
	if !strings.Contains(out, "Prayer times for 2024-03") || !strings.Contains(out, "Maghrib") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "2024-03-15") || !strings.Contains(out, "20:10") {
		t.Fatalf("missing row:\n%s", out)
	}
}

func TestPrintNext(t *testing.T) {
	var sb strings.Builder
	printNext(&sb, nil)
	if sb.String() != "no upcoming prayer\n" {
		t.Fatalf("nil next = %q", sb.String())
	}
	d := sampleDay()
	sb.Reset()
	printNext(&sb, &api.Next{
		NextEvent: prayer.NextEvent{Item: d.Schedule[0], RolledToNextDay: true},
		Countdown: "07:40:00",
	})
	if got := sb.String(); got != "Next: Fajr at 05:20 tomorrow (in 07:40:00)\n" {
		t.Fatalf("printNext() = %q", got)
	}
}

func TestPrintHistory(t *testing.T) {
	var sb strings.Builder
	printHistory(&sb, nil)
	if sb.String() != "waqt: nothing has fired yet\n" {
		t.Fatalf("empty history: %q", sb.String())
	}

	sb.Reset()
	printHistory(&sb, []notify.Fired{{
		ID:      "prayer-isha-2024-03-14",
		FiresAt: time.Date(2024, 3, 14, 20, 5, 0, 0, ist),
		State:   "delivered",
		Deliveries: []notify.Attempt{
			{Sink: "rpc"},
			{Sink: "mqtt", Error: "broker down"},
		},
	}})
	out := sb.String()
	for _, want := range []string{"prayer-isha-2024-03-14", "Mar 14 20:05", "delivered", "rpc,mqtt!"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPrintSettings(t *testing.T) {
	snap := settings.Defaults()
	snap.Profile = settings.Profile{Name: "Amina", Email: "amina@example.com", UserID: "u-1"}
	snap.PrayerOffsets[prayer.Asr] = -3
	var sb strings.Builder
	printSettings(&sb, &server.SettingsResult{Settings: snap})
	out := sb.String()
	for _, want := range []string{
		"Profile:     Amina <amina@example.com>, synced as u-1",
		"Method:      KARACHI",
		"asr      -3 min",
		"fajr     0 min",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	sb.Reset()
	printMethods(&sb, prayer.Methods, prayer.Karachi)
	if !strings.Contains(sb.String(), "* KARACHI") {
		t.Fatalf("current method not marked:\n%s", sb.String())
	}
}

func TestExecute_Version(t *testing.T) {
	if err := Execute([]string{"waqt", "version"}, BuildArgs{Version: "1.0.0", BuildType: "test", Commit: "abc"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(common.VersionCmdStr, "waqt 1.0.0-test") || !strings.Contains(common.VersionCmdStr, "abc") {
		t.Fatalf("unexpected version string %q", common.VersionCmdStr)
	}
}

func TestExecute_AgainstDaemon(t *testing.T) {
	setTestEnv(t)
	startDaemon(t)
	out := captureOutput(t)
	run := func(args ...string) string {
		t.Helper()
		out.Reset()
		if err := Execute(append([]string{"waqt"}, args...), BuildArgs{}); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out.String()
	}

	if got := run("today", "--date", "2024-03-15"); !strings.Contains(got, "Prayer times for 2024-03-15") || !strings.Contains(got, "Fajr") {
		t.Fatalf("today:\n%s", got)
	}
	if got := run("month", "--month", "2024-02"); strings.Count(got, "2024-02-") != 29 {
		t.Fatalf("month should list 29 days:\n%s", got)
	}
	if got := run("next", "--at", "2024-03-15T03:00:00+05:30"); !strings.HasPrefix(got, "Next: Fajr at ") {
		t.Fatalf("next:\n%s", got)
	}
	if got := run("qibla"); !strings.Contains(got, "Qibla from") || !strings.Contains(got, "(W)") {
		t.Fatalf("qibla:\n%s", got)
	}
	if got := run("offset", "isha", "-5"); !strings.Contains(got, "isha     -5 min") {
		t.Fatalf("offset:\n%s", got)
	}
	if got := run("juristic", "standard"); !strings.Contains(got, "Juristic:    STANDARD") {
		t.Fatalf("juristic:\n%s", got)
	}
	if got := run("location", "21.4225", "39.8262", "--label", "Makkah"); !strings.Contains(got, "Location:    Makkah (21.4225, 39.8262)") {
		t.Fatalf("location:\n%s", got)
	}
	if got := run("offset-reset"); !strings.Contains(got, "isha     0 min") {
		t.Fatalf("offset-reset:\n%s", got)
	}
	if got := run("onboard", "--name", "Amina"); !strings.Contains(got, "Onboarded:   true") || !strings.Contains(got, "Amina") {
		t.Fatalf("onboard:\n%s", got)
	}
	if got := run("method"); !strings.Contains(got, "* KARACHI") {
		t.Fatalf("method list:\n%s", got)
	}
	if got := run("rehydrate"); !strings.HasPrefix(got, "installed ") {
		t.Fatalf("rehydrate:\n%s", got)
	}
	if got := run("pending"); !strings.Contains(got, "prayer-") {
		t.Fatalf("pending:\n%s", got)
	}
	if got := run("test-notify"); got != "test notification sent\n" {
		t.Fatalf("test-notify:\n%s", got)
	}
	if got := run("test-notify", "--delay", "600"); !strings.HasPrefix(got, "test notification scheduled for ") {
		t.Fatalf("delayed test-notify:\n%s", got)
	}
	if got := run("history", "--limit", "5"); !strings.Contains(got, "nothing has fired yet") && !strings.Contains(got, "Reminder") {
		t.Fatalf("history:\n%s", got)
	}
}

func TestExecute_NoDaemon(t *testing.T) {
	setTestEnv(t)
	t.Setenv("WAQT_RPC_SECRET", "")
	out := captureOutput(t)
	// Errors are printed, not returned, and nothing reaches stdout.
	if err := Execute([]string{"waqt", "today"}, BuildArgs{}); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}
