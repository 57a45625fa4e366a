package server

import (
	"context"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/waqtapp/waqt/internal/notify"
	"github.com/waqtapp/waqt/pkg/logger"
)

// ReminderMethod is the push notification sent when a trigger fires.
const ReminderMethod = "prayer.reminder"

// RPCNotifier maintains a set of connected jrpc2 WebSocket servers
// and broadcasts push notifications to all of them.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
}

func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	return &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		log:     logger.OrNop(l),
	}
}

func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Broadcast pushes method to every registered server and returns how many
// received it. Servers that fail are unregistered.
func (n *RPCNotifier) Broadcast(ctx context.Context, method string, params any) int {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(ctx, method, params); err != nil {
			n.log.Warning("server: push %s failed: %v", method, err)
			failed = append(failed, srv)
		}
	}

	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
	return len(servers) - len(failed)
}

// StopAll ends every registered session.
func (n *RPCNotifier) StopAll() {
	n.mu.Lock()
	servers := n.servers
	n.servers = make(map[*jrpc2.Server]struct{})
	n.mu.Unlock()
	for srv := range servers {
		srv.Stop()
	}
}

// Count returns the number of registered servers.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

// ReminderNotification is the params of prayer.reminder.
type ReminderNotification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	FiresAt     time.Time `json:"firesAt"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// ReminderSink delivers fired reminders to connected WebSocket clients.
// Having no clients is not a failure.
type ReminderSink struct {
	n *RPCNotifier
}

func NewReminderSink(n *RPCNotifier) *ReminderSink {
	return &ReminderSink{n: n}
}

func (s *ReminderSink) Name() string { return "rpc" }

func (s *ReminderSink) Deliver(ctx context.Context, r notify.Notification) error {
	s.n.Broadcast(ctx, ReminderMethod, &ReminderNotification{
		ID:          r.ID,
		Title:       r.Title,
		Body:        r.Body,
		FiresAt:     r.FiresAt,
		DeliveredAt: r.DeliveredAt,
	})
	return nil
}

var _ notify.Sink = (*ReminderSink)(nil)
