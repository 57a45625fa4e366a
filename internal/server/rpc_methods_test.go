package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/creachadair/jrpc2"
	"github.com/waqtapp/waqt/internal/notify"
)

func TestRPCSystemGetVersion(t *testing.T) {
	rs, _ := newTestRPCServer(t)
	h := requireToken(testSecret, rs.bridge)

	code, resp := rpcCall(t, h, "system.getVersion", nil, testSecret)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp["id"].(float64) != 1 {
		t.Fatalf("expected id 1, got %v", resp["id"])
	}
	result := resultOf(t, resp)
	if result["version"] != "1.0.0" || result["commit"] != "abc123" || result["buildType"] != "release" {
		t.Fatalf("unexpected version %v", result)
	}
}

func TestRPCUnauthorized(t *testing.T) {
	rs, _ := newTestRPCServer(t)
	code, _ := rpcCall(t, requireToken(testSecret, rs.bridge), "system.getVersion", nil, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRPCMethodNotFound(t *testing.T) {
	rs, _ := newTestRPCServer(t)
	_, resp := rpcCall(t, rs.bridge, "download.add", map[string]any{}, "")
	if c := errorCode(t, resp); c != -32601 {
		t.Fatalf("expected -32601, got %d", c)
	}
}

func TestRPCScheduleToday(t *testing.T) {
	rs, _ := newTestRPCServer(t)

	_, resp := rpcCall(t, rs.bridge, "schedule.today", map[string]any{}, "")
	result := resultOf(t, resp)
	if result["date"] != "2024-03-15" {
		t.Fatalf("expected today, got %v", result["date"])
	}
	items := result["schedule"].([]any)
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["id"] != "fajr" || first["label"] != "Fajar" || first["order"].(float64) != 0 {
		t.Fatalf("unexpected first item %v", first)
	}

	_, resp = rpcCall(t, rs.bridge, "schedule.today", map[string]any{"date": "2024-03-16"}, "")
	if got := resultOf(t, resp)["date"]; got != "2024-03-16" {
		t.Fatalf("expected requested date, got %v", got)
	}

	_, resp = rpcCall(t, rs.bridge, "schedule.today", map[string]any{"date": "16/03/2024"}, "")
	if c := errorCode(t, resp); c != int(codeInvalidParams) {
		t.Fatalf("expected invalid params, got %d", c)
	}
}

func TestRPCScheduleMonth(t *testing.T) {
	rs, _ := newTestRPCServer(t)
	_, resp := rpcCall(t, rs.bridge, "schedule.month", map[string]any{"month": "2024-02"}, "")
	result := resultOf(t, resp)
	if result["month"] != "2024-02" || len(result["days"].([]any)) != 29 {
		t.Fatalf("unexpected month %v with %d days", result["month"], len(result["days"].([]any)))
	}
}

func TestRPCScheduleNext(t *testing.T) {
	rs, _ := newTestRPCServer(t)
	_, resp := rpcCall(t, rs.bridge, "schedule.next", map[string]any{"at": "2024-03-15T23:00:00+05:30"}, "")
	next := resultOf(t, resp)["next"].(map[string]any)
	if next["rolledToNextDay"] != true || next["index"].(float64) != 0 {
		t.Fatalf("expected rollover to fajr, got %v", next)
	}
	if item := next["item"].(map[string]any); item["id"] != "fajr" {
		t.Fatalf("unexpected item %v", item)
	}

	_, resp = rpcCall(t, rs.bridge, "schedule.next", map[string]any{"at": "tonight"}, "")
	if c := errorCode(t, resp); c != int(codeInvalidParams) {
		t.Fatalf("expected invalid params, got %d", c)
	}
}

func TestRPCQibla(t *testing.T) {
	rs, _ := newTestRPCServer(t)
	_, resp := rpcCall(t, rs.bridge, "qibla.direction", nil, "")
	if got := resultOf(t, resp)["compass"]; got != "W" {
		t.Fatalf("expected W from Mumbai, got %v", got)
	}
}

func TestRPCSettings(t *testing.T) {
	rs, _ := newTestRPCServer(t)

	_, resp := rpcCall(t, rs.bridge, "settings.get", nil, "")
	result := resultOf(t, resp)
	s := result["settings"].(map[string]any)
	if s["calculationMethod"] != "KARACHI" || s["juristicMethod"] != "HANAFI" {
		t.Fatalf("unexpected defaults %v", s)
	}
	if len(result["methods"].([]any)) != 5 {
		t.Fatalf("expected the method catalog, got %v", result["methods"])
	}

	_, resp = rpcCall(t, rs.bridge, "settings.updateOffset", map[string]any{"prayer": "asr", "minutes": 10}, "")
	offsets := resultOf(t, resp)["settings"].(map[string]any)["prayerOffsets"].(map[string]any)
	if offsets["asr"].(float64) != 10 || offsets["fajr"].(float64) != 0 {
		t.Fatalf("unexpected offsets %v", offsets)
	}

	_, resp = rpcCall(t, rs.bridge, "settings.resetOffsets", nil, "")
	offsets = resultOf(t, resp)["settings"].(map[string]any)["prayerOffsets"].(map[string]any)
	if offsets["asr"].(float64) != 0 {
		t.Fatalf("offsets not reset %v", offsets)
	}

	_, resp = rpcCall(t, rs.bridge, "settings.setLocation", map[string]any{"latitude": 21.4225, "longitude": 39.8262, "label": "Makkah"}, "")
	loc := resultOf(t, resp)["settings"].(map[string]any)["location"].(map[string]any)
	if loc["label"] != "Makkah" {
		t.Fatalf("unexpected location %v", loc)
	}

	_, resp = rpcCall(t, rs.bridge, "settings.setJuristicMethod", map[string]any{"method": "standard"}, "")
	if got := resultOf(t, resp)["settings"].(map[string]any)["juristicMethod"]; got != "STANDARD" {
		t.Fatalf("unexpected juristic method %v", got)
	}

	_, resp = rpcCall(t, rs.bridge, "settings.setCalculationMethod", map[string]any{"method": "MUSLIM_WORLD_LEAGUE"}, "")
	if got := resultOf(t, resp)["settings"].(map[string]any)["calculationMethod"]; got != "MUSLIM_WORLD_LEAGUE" {
		t.Fatalf("unexpected method %v", got)
	}

	_, resp = rpcCall(t, rs.bridge, "settings.setProfile", map[string]any{"name": "Aisha"}, "")
	if got := resultOf(t, resp)["settings"].(map[string]any)["profile"].(map[string]any)["name"]; got != "Aisha" {
		t.Fatalf("unexpected profile name %v", got)
	}

	_, resp = rpcCall(t, rs.bridge, "settings.completeOnboarding", nil, "")
	if got := resultOf(t, resp)["settings"].(map[string]any)["hasCompletedOnboarding"]; got != true {
		t.Fatal("onboarding not completed")
	}
}

func TestRPCSettings_Errors(t *testing.T) {
	rs, _ := newTestRPCServer(t)
	tests := []struct {
		method string
		params map[string]any
		code   int
	}{
		{"settings.updateOffset", map[string]any{"prayer": "asr"}, int(codeInvalidParams)},
		{"settings.updateOffset", map[string]any{"prayer": "sunrise", "minutes": 5}, int(codeValidation)},
		{"settings.updateOffset", map[string]any{"prayer": "isha", "minutes": 1000}, int(codeValidation)},
		{"settings.setLocation", map[string]any{"latitude": 10}, int(codeInvalidParams)},
		{"settings.setLocation", map[string]any{"latitude": 100, "longitude": 0}, int(codeValidation)},
		{"settings.setJuristicMethod", map[string]any{"method": "SHAFI"}, int(codeValidation)},
		{"settings.setCalculationMethod", map[string]any{"method": "ISNA"}, int(codeValidation)},
		{"settings.setProfile", map[string]any{}, int(codeInvalidParams)},
	}
	for _, tt := range tests {
		_, resp := rpcCall(t, rs.bridge, tt.method, tt.params, "")
		if c := errorCode(t, resp); c != tt.code {
			t.Errorf("%s %v: expected %d, got %d", tt.method, tt.params, tt.code, c)
		}
	}
	_, resp := rpcCall(t, rs.bridge, "settings.get", nil, "")
	if got := resultOf(t, resp)["settings"].(map[string]any)["location"].(map[string]any)["label"]; got != "Mumbai, India" {
		t.Fatalf("rejected calls changed the location: %v", got)
	}
}

func TestRPCNotifications(t *testing.T) {
	rs, dev := newTestRPCServer(t)

	_, resp := rpcCall(t, rs.bridge, "notifications.rehydrate", nil, "")
	if got := resultOf(t, resp)["installed"].(float64); got != 10 {
		t.Fatalf("expected 10 installed triggers, got %v", got)
	}
	_, resp = rpcCall(t, rs.bridge, "notifications.pending", nil, "")
	triggers := resultOf(t, resp)["triggers"].([]any)
	if len(triggers) != 10 {
		t.Fatalf("expected 10 pending triggers, got %d", len(triggers))
	}
	if id := triggers[0].(map[string]any)["id"]; id != "prayer-fajr-2024-03-15" {
		t.Fatalf("unexpected first trigger %v", id)
	}

	dev.cancelErr = errors.New("device busy")
	_, resp = rpcCall(t, rs.bridge, "notifications.rehydrate", nil, "")
	if c := errorCode(t, resp); c != int(codeDeliveryFailed) {
		t.Fatalf("expected delivery failure, got %d", c)
	}
	_, resp = rpcCall(t, rs.bridge, "notifications.pending", nil, "")
	if n := len(resultOf(t, resp)["triggers"].([]any)); n != 10 {
		t.Fatalf("failed cancel must keep the old set, got %d", n)
	}
}

func TestRPCNotificationsTest(t *testing.T) {
	rs, dev := newTestRPCServer(t)

	_, resp := rpcCall(t, rs.bridge, "notifications.test", map[string]any{}, "")
	if got := resultOf(t, resp)["sent"]; got != true {
		t.Fatalf("expected immediate send, got %v", got)
	}
	if len(dev.notified) != 1 || dev.notified[0].ID != "test-notification" {
		t.Fatalf("unexpected deliveries %+v", dev.notified)
	}

	_, resp = rpcCall(t, rs.bridge, "notifications.test", map[string]any{"delaySeconds": 60}, "")
	result := resultOf(t, resp)
	if result["sent"] != false || result["id"] != "test-notification" {
		t.Fatalf("unexpected scheduled test %v", result)
	}
	if _, ok := dev.triggers["test-notification"]; !ok {
		t.Fatal("test trigger not scheduled")
	}

	_, resp = rpcCall(t, rs.bridge, "notifications.test", map[string]any{"delaySeconds": -5}, "")
	if c := errorCode(t, resp); c != int(codeInvalidParams) {
		t.Fatalf("expected invalid params, got %d", c)
	}
}

func TestRPCNotificationsHistory(t *testing.T) {
	rs, dev := newTestRPCServer(t)

	_, resp := rpcCall(t, rs.bridge, "notifications.history", map[string]any{}, "")
	if n := len(resultOf(t, resp)["entries"].([]any)); n != 0 {
		t.Fatalf("expected empty history, got %d", n)
	}

	dev.fired = []notify.Fired{
		{ID: "prayer-isha-2024-03-14", Title: "Isha Azan", State: "delivered",
			Deliveries: []notify.Attempt{{Sink: "rpc"}, {Sink: "mqtt", Error: "broker down"}}},
		{ID: "prayer-maghrib-2024-03-14", Title: "Maghrib Azan", State: "missed"},
	}
	_, resp = rpcCall(t, rs.bridge, "notifications.history", map[string]any{"limit": 1}, "")
	entries := resultOf(t, resp)["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	first := entries[0].(map[string]any)
	if first["id"] != "prayer-isha-2024-03-14" || len(first["deliveries"].([]any)) != 2 {
		t.Fatalf("unexpected entry %v", first)
	}

	_, resp = rpcCall(t, rs.bridge, "notifications.history", map[string]any{"limit": 501}, "")
	if c := errorCode(t, resp); c != int(codeInvalidParams) {
		t.Fatalf("expected invalid params, got %d", c)
	}
}

func TestRPCErrorMapping(t *testing.T) {
	if rpcError(nil) != nil {
		t.Fatal("nil must map to nil")
	}
	var rerr *jrpc2.Error
	if !errors.As(rpcError(notify.ErrNoHistory), &rerr) || rerr.Code != codeNotConfigured {
		t.Fatalf("expected not configured, got %v", rpcError(notify.ErrNoHistory))
	}
}
