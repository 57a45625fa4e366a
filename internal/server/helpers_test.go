package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/waqtapp/waqt/internal/api"
	"github.com/waqtapp/waqt/internal/notify"
	"github.com/waqtapp/waqt/internal/settings"
	"github.com/waqtapp/waqt/pkg/prayer"
)

const testSecret = "test-rpc-secret"

var ist = time.FixedZone("IST", 5*3600+1800)

type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

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

// memDevice is a trigger device that also delivers immediately and keeps
// a canned history.
type memDevice struct {
	mu        sync.Mutex
	triggers  map[string]notify.Pending
	cancelErr error
	notified  []notify.Notification
	fired     []notify.Fired
}

func (d *memDevice) ScheduleAt(_ context.Context, id string, at time.Time, p notify.Payload) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.triggers[id] = notify.Pending{ID: id, FiresAt: at, Title: p.Title, Body: p.Body}
	return id, nil
}

func (d *memDevice) CancelAllManaged(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancelErr != nil {
		return d.cancelErr
	}
	d.triggers = map[string]notify.Pending{}
	return nil
}

func (d *memDevice) ListPending(context.Context) ([]notify.Pending, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notify.Pending, 0, len(d.triggers))
	for _, p := range d.triggers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiresAt.Before(out[j].FiresAt) })
	return out, nil
}

func (d *memDevice) Notify(_ context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notified = append(d.notified, n)
	return nil
}

func (d *memDevice) History(_ context.Context, limit int) ([]notify.Fired, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.fired) > limit {
		return d.fired[:limit], nil
	}
	return d.fired, nil
}

// testClock is 2024-03-15 00:30 IST, before every reminder of the day.
var testClock = time.Date(2024, time.March, 15, 0, 30, 0, 0, ist)

func newTestRPCServer(t *testing.T) (*RPCServer, *memDevice) {
	t.Helper()
	calc := prayer.NewCalculator(nil, ist)
	calc.SetClock(func() time.Time { return testClock })
	dev := &memDevice{triggers: map[string]notify.Pending{}}
	rec := notify.NewReconciler(dev, calc, nil, nil)
	store, err := settings.Open(context.Background(), settings.Options{
		Storage:   &memStorage{data: map[string]string{}},
		Rehydrate: func(context.Context, prayer.Settings) error { return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	a := api.NewApi(nil, calc, store, rec)
	rs := NewRPCServer(&RPCConfig{Secret: testSecret, Version: "1.0.0", Commit: "abc123", BuildType: "release"}, a)
	t.Cleanup(func() {
		rs.Close()
		a.Close()
	})
	return rs, dev
}

// rpcCall sends a JSON-RPC request through handler and returns the status
// code and decoded response.
func rpcCall(t *testing.T, handler http.Handler, method string, params any, authToken string) (int, map[string]any) {
	t.Helper()
	body := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		body["params"] = params
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	resp := rr.Result()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var result map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			t.Fatalf("unmarshal response: %v (body: %s)", err, string(raw))
		}
	}
	return rr.Code, result
}

func resultOf(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result object, got %v (error: %v)", resp["result"], resp["error"])
	}
	return result
}

func errorCode(t *testing.T, resp map[string]any) int {
	t.Helper()
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", resp)
	}
	return int(errObj["code"].(float64))
}
