package cmd

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/waqtapp/waqt/config"
	daemonpkg "github.com/waqtapp/waqt/internal/daemon"
	"github.com/waqtapp/waqt/pkg/logger"
)

const testSecret = "cli-secret"

// captureOutput redirects command output for the rest of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	orig := stdout
	stdout = buf
	t.Cleanup(func() { stdout = orig })
	return buf
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// setTestEnv points config.Load at a fresh directory and port.
func setTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WAQT_CONFIG_DIR", dir)
	t.Setenv("WAQT_RPC_HOST", "127.0.0.1")
	t.Setenv("WAQT_RPC_PORT", strconv.Itoa(freePort(t)))
	t.Setenv("WAQT_RPC_SECRET", testSecret)
	t.Setenv("WAQT_TIMEZONE", "Asia/Kolkata")
	t.Setenv("WAQT_LOG_FORMAT", "json")
	t.Setenv("WAQT_API_BASE_URL", "")
	return dir
}

// startDaemon runs a daemon configured from the environment until the
// test ends.
func startDaemon(t *testing.T) {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	r := daemonpkg.New(&daemonpkg.Config{App: cfg, Version: "test"}, &daemonpkg.Dependencies{Logger: logger.NewMockLogger()})
	ready := r.Ready()
	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(context.Background()) }()
	select {
	case <-ready:
	case err := <-errCh:
		t.Fatalf("daemon failed to start: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not start")
	}
	t.Cleanup(func() {
		_ = r.Shutdown()
		<-errCh
	})
}
