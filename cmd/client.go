package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/waqtapp/waqt/cmd/common"
	"github.com/waqtapp/waqt/config"
	daemonpkg "github.com/waqtapp/waqt/internal/daemon"
	"github.com/waqtapp/waqt/internal/server"
	"github.com/waqtapp/waqt/pkg/waqtcli"
)

const (
	dialTimeout = 5 * time.Second
	callTimeout = 30 * time.Second
)

// newClient connects to the daemon described by the environment. Failures
// are printed; ok is false when the command should stop.
func newClient(ctx *cli.Context, name string, onReminder func(server.ReminderNotification)) (client *waqtcli.Client, ok bool) {
	cfg, err := config.Load()
	if err != nil {
		common.PrintRuntimeErr(ctx, name, "load_config", err)
		return nil, false
	}
	secret, err := daemonpkg.ReadSecret(afero.NewOsFs(), cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, name, "read_secret", fmt.Errorf("%w; start the daemon with 'waqt daemon'", err))
		return nil, false
	}
	client, err = waqtcli.Dial(context.Background(), dialAddr(cfg), &waqtcli.Options{
		Secret:      secret,
		OnReminder:  onReminder,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		common.PrintRuntimeErr(ctx, name, "new_client", err)
		return nil, false
	}
	client.CheckVersionMismatch(context.Background(), os.Stderr, currentBuildArgs.Version)
	return client, true
}

// dialAddr maps wildcard listen hosts to loopback.
func dialAddr(cfg *config.Config) string {
	host := cfg.RPCHost
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.RPCPort))
}

func callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}
