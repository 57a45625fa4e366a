// Package waqtcli is the Go client for the waqt daemon's JSON-RPC
// WebSocket endpoint.
package waqtcli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/waqtapp/waqt/internal/server"
)

var (
	ErrUnauthorized = errors.New("daemon rejected the RPC secret")
	ErrNotConnected = errors.New("error connecting to daemon")
)

const defaultDialTimeout = 5 * time.Second

// Options configures Dial.
type Options struct {
	// Secret is sent as a Bearer token.
	Secret string

	// OnReminder receives prayer.reminder pushes. It runs on the client's
	// read goroutine and must not call back into the client.
	OnReminder func(server.ReminderNotification)

	DialTimeout time.Duration
}

type wsChannel struct {
	conn *cws.Conn
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(context.Background(), cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(context.Background())
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

// Client is a single WebSocket session with the daemon.
type Client struct {
	rpc *jrpc2.Client
}

// Dial connects to the daemon listening on addr (host:port).
func Dial(ctx context.Context, addr string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = &Options{}
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, resp, err := cws.Dial(dctx, "ws://"+addr+"/jsonrpc/ws", &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + opts.Secret}},
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w at %s: %v", ErrNotConnected, addr, err)
	}
	return NewClient(conn, opts.OnReminder), nil
}

// NewClient wraps an established connection.
func NewClient(conn *cws.Conn, onReminder func(server.ReminderNotification)) *Client {
	copts := &jrpc2.ClientOptions{}
	if onReminder != nil {
		copts.OnNotify = func(req *jrpc2.Request) {
			if req.Method() != server.ReminderMethod {
				return
			}
			var r server.ReminderNotification
			if err := req.UnmarshalParams(&r); err == nil {
				onReminder(r)
			}
		}
	}
	return &Client{rpc: jrpc2.NewClient(&wsChannel{conn: conn}, copts)}
}

// Close ends the session.
func (c *Client) Close() error {
	err := c.rpc.Close()
	if cws.CloseStatus(err) == cws.StatusNormalClosure {
		return nil
	}
	return err
}

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var out T
	if err := c.rpc.CallResult(ctx, method, params, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return &out, nil
}

// ErrorCode returns the JSON-RPC error code carried by err, or 0.
func ErrorCode(err error) int {
	var e *jrpc2.Error
	if errors.As(err, &e) {
		return int(e.Code)
	}
	return 0
}
