package server

import (
	"context"
	"errors"
	"net/http"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
)

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel interface.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

// handleWS serves one JSON-RPC session per WebSocket. Sessions receive
// prayer.reminder pushes until they disconnect.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.log.Warning("server: websocket upgrade: %v", err)
		return
	}
	srv := jrpc2.NewServer(s.rpc.methods, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(&wsChannel{conn: conn, ctx: r.Context()})

	s.notifier.Register(srv)
	defer s.notifier.Unregister(srv)

	if err := srv.Wait(); err != nil && !closedNormally(err) {
		s.log.Warning("server: websocket session ended: %v", err)
	}
}

func closedNormally(err error) bool {
	switch cws.CloseStatus(err) {
	case cws.StatusNormalClosure, cws.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
