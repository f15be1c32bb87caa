// Package realtime maintains the single push channel from the backend and
// turns wire envelopes into typed events.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var ErrNoToken = errors.New("realtime: connect requires a session token")

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Handler receives decoded events on the bridge goroutine. Returned errors
// are logged.
type Handler func(ctx context.Context, e Event) error

type Option func(*Bridge)

func WithReconnectDelays(delays ...time.Duration) Option {
	return func(b *Bridge) {
		if len(delays) > 0 {
			b.delays = append([]time.Duration(nil), delays...)
		}
	}
}

func WithHandler(h Handler) Option {
	return func(b *Bridge) { b.handler = h }
}

// WithConnectivityListener registers fn for connectivity flips. It is
// called only when the flag actually changes.
func WithConnectivityListener(fn func(connected bool)) Option {
	return func(b *Bridge) { b.onConnectivity = fn }
}

type Bridge struct {
	transport      Transport
	logger         *zap.Logger
	delays         []time.Duration
	handler        Handler
	onConnectivity func(bool)

	mu        sync.Mutex
	state     State
	conn      Conn
	cancel    context.CancelFunc
	done      chan struct{}
	groups    map[string]struct{}
	connected bool
}

func NewBridge(transport Transport, logger *zap.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		transport: transport,
		logger:    logger.Named("bridge"),
		delays:    DefaultReconnectDelays,
		groups:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Connect starts the connection loop in the background. It does nothing
// unless the bridge is disconnected.
func (b *Bridge) Connect(token string) error {
	if token == "" {
		return ErrNoToken
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateDisconnected {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.state = StateConnecting
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.run(ctx, token, b.done)
	return nil
}

// Disconnect stops the loop and waits for it to exit. No handler runs after
// it returns. It must not be called from inside a Handler.
func (b *Bridge) Disconnect() {
	b.mu.Lock()
	cancel, done, conn := b.cancel, b.done, b.conn
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		conn.Close()
	}
	<-done

	b.mu.Lock()
	b.state = StateDisconnected
	b.conn = nil
	b.done = nil
	b.mu.Unlock()
	b.setConnected(false)
	b.logger.Info("disconnected")
}

func (b *Bridge) run(ctx context.Context, token string, done chan struct{}) {
	defer close(done)

	reconnecting := false
	for {
		conn, err := b.dial(ctx, token)
		if err != nil {
			return
		}

		b.mu.Lock()
		if ctx.Err() != nil {
			b.mu.Unlock()
			conn.Close()
			return
		}
		b.conn = conn
		b.state = StateConnected
		groups := make([]string, 0, len(b.groups))
		for g := range b.groups {
			groups = append(groups, g)
		}
		b.mu.Unlock()
		b.setConnected(true)
		b.logger.Info("connected", zap.Bool("reconnected", reconnecting))

		for _, g := range groups {
			if err := conn.Invoke(ctx, MethodJoinGroup, g); err != nil {
				b.logger.Warn("rejoining group", zap.String("group", g), zap.Error(err))
			}
		}
		if reconnecting {
			b.dispatch(ctx, ConnectionRestored{At: time.Now()})
		}

		err = b.receive(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		b.logger.Warn("connection lost", zap.Error(err))
		b.mu.Lock()
		b.conn = nil
		b.state = StateReconnecting
		b.mu.Unlock()
		b.setConnected(false)
		reconnecting = true
	}
}

// dial waits the first delay and then retries through the rest of the
// schedule until it succeeds or ctx ends.
func (b *Bridge) dial(ctx context.Context, token string) (Conn, error) {
	if first := b.delays[0]; first > 0 {
		t := time.NewTimer(first)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}

	rest := b.delays[1:]
	if len(rest) == 0 {
		rest = b.delays
	}

	var conn Conn
	op := func() error {
		c, err := b.transport.Dial(ctx, token)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		b.logger.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", wait))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(&schedule{delays: rest}, ctx), notify); err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, err
	}
	return conn, nil
}

func (b *Bridge) receive(ctx context.Context, conn Conn) error {
	for {
		env, err := conn.Receive(ctx)
		if err != nil {
			return err
		}
		if !b.accepts(env.Group) {
			continue
		}
		e, err := Decode(env.Event, env.Payload)
		if err != nil {
			b.logger.Warn("dropping event", zap.String("event", env.Event), zap.Error(err))
			continue
		}
		b.dispatch(ctx, e)
	}
}

func (b *Bridge) dispatch(ctx context.Context, e Event) {
	if ctx.Err() != nil || b.handler == nil {
		return
	}
	if err := b.handler(ctx, e); err != nil {
		b.logger.Warn("handling event", zap.String("event", e.EventName()), zap.Error(err))
	}
}

func (b *Bridge) accepts(group string) bool {
	if group == "" {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.groups[group]
	return ok
}

func (b *Bridge) setConnected(v bool) {
	b.mu.Lock()
	if b.connected == v {
		b.mu.Unlock()
		return
	}
	b.connected = v
	fn := b.onConnectivity
	b.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

// Send invokes a backend method. Failures are logged, not returned.
func (b *Bridge) Send(ctx context.Context, method string, args ...any) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		b.logger.Warn("send while not connected", zap.String("method", method))
		return
	}
	if err := conn.Invoke(ctx, method, args...); err != nil {
		b.logger.Warn("send failed", zap.String("method", method), zap.Error(err))
	}
}

// JoinGroup subscribes to a named group. Joined groups are re-joined after
// every reconnection.
func (b *Bridge) JoinGroup(ctx context.Context, group string) {
	b.mu.Lock()
	b.groups[group] = struct{}{}
	b.mu.Unlock()
	b.Send(ctx, MethodJoinGroup, group)
}

func (b *Bridge) LeaveGroup(ctx context.Context, group string) {
	b.mu.Lock()
	delete(b.groups, group)
	b.mu.Unlock()
	b.Send(ctx, MethodLeaveGroup, group)
}

func (b *Bridge) Groups() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.groups))
	for g := range b.groups {
		out = append(out, g)
	}
	return out
}
