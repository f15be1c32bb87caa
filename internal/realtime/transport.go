package realtime

import (
	"context"
	"errors"
	"time"
)

var (
	ErrHandshakeRejected = errors.New("handshake rejected")
	ErrHandshakeTimeout  = errors.New("handshake timed out")
	ErrConnectionLost    = errors.New("connection lost")
)

// Transport opens authenticated connections to the real-time channel. Dial
// returns only after the handshake succeeded.
type Transport interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// Conn is one live connection. Receive blocks until an event arrives, the
// context ends or the connection drops. Close must tolerate repeated
// calls.
type Conn interface {
	Receive(ctx context.Context) (Envelope, error)
	Invoke(ctx context.Context, method string, args ...any) error
	Close() error
}

// DefaultReconnectDelays waits nothing before the first retry and then
// backs off to 30s, repeating the last delay forever.
var DefaultReconnectDelays = []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}

// schedule is a backoff.BackOff over a fixed delay list that never gives
// up.
type schedule struct {
	delays []time.Duration
	next   int
}

func (s *schedule) NextBackOff() time.Duration {
	if len(s.delays) == 0 {
		return 0
	}
	i := s.next
	if i >= len(s.delays) {
		i = len(s.delays) - 1
	}
	s.next++
	return s.delays[i]
}

func (s *schedule) Reset() { s.next = 0 }
