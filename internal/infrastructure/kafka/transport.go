package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/realtime"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultLivenessTimeout  = 30 * time.Second
	handshakeResend         = time.Second
)

var errNoReply = errors.New("no handshake reply yet")

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type TransportOption func(*Transport)

// WithHandshakeTimeout bounds how long Dial waits for the backend to
// answer Connect.
func WithHandshakeTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.handshakeTimeout = d
		}
	}
}

// WithLivenessTimeout is how long Receive tolerates silence before it
// reports the connection lost. Zero disables the check.
func WithLivenessTimeout(d time.Duration) TransportOption {
	return func(t *Transport) { t.liveness = d }
}

// Transport carries the real-time channel over two topics: the backend
// publishes envelopes to the events topic and consoles publish invocations
// to the commands topic.
type Transport struct {
	brokers          []string
	eventsTopic      string
	commandsTopic    string
	handshakeTimeout time.Duration
	resend           time.Duration
	liveness         time.Duration
	logger           *zap.Logger
}

func NewTransport(brokers []string, eventsTopic, commandsTopic string, logger *zap.Logger, opts ...TransportOption) *Transport {
	t := &Transport{
		brokers:          brokers,
		eventsTopic:      eventsTopic,
		commandsTopic:    commandsTopic,
		handshakeTimeout: DefaultHandshakeTimeout,
		resend:           handshakeResend,
		liveness:         DefaultLivenessTimeout,
		logger:           logger.Named("kafka"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Dial joins a fresh consumer group at the newest offset, so nothing
// published while offline is replayed, and completes the Connect
// handshake. Connect is resent until the backend acknowledges or rejects
// it, since the reader may join after the first reply was published.
func (t *Transport) Dial(ctx context.Context, token string) (realtime.Conn, error) {
	clientID := uuid.NewString()
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(t.brokers...),
		Topic:                  t.commandsTopic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     t.brokers,
		Topic:       t.eventsTopic,
		GroupID:     "console-" + clientID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	c, err := t.open(ctx, token, clientID, reader, writer)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (t *Transport) open(ctx context.Context, token, clientID string, reader messageReader, writer messageWriter) (*conn, error) {
	c := &conn{
		reader:   reader,
		writer:   writer,
		token:    token,
		clientID: clientID,
		liveness: t.liveness,
		logger:   t.logger.With(zap.String("client_id", clientID)),
	}
	if err := c.handshake(ctx, t.handshakeTimeout, t.resend); err != nil {
		c.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	c.logger.Debug("handshake acknowledged")
	return c, nil
}

type conn struct {
	reader   messageReader
	writer   messageWriter
	token    string
	clientID string
	liveness time.Duration
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

type envelopeKind int

const (
	kindEvent envelopeKind = iota
	kindHeartbeat
	kindAck
	kindRejected
	kindForeign
)

func (c *conn) classify(env realtime.Envelope) envelopeKind {
	switch env.Event {
	case realtime.EventHeartbeat:
		return kindHeartbeat
	case realtime.EventConnectAck, realtime.EventConnectRejected:
		if env.Group != realtime.ClientGroup(c.clientID) {
			return kindForeign
		}
		if env.Event == realtime.EventConnectAck {
			return kindAck
		}
		return kindRejected
	}
	return kindEvent
}

func (c *conn) handshake(ctx context.Context, timeout, resend time.Duration) error {
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		err := c.Invoke(hctx, realtime.MethodConnect)
		if err == nil {
			err = c.awaitReply(hctx, resend)
			if errors.Is(err, errNoReply) {
				continue
			}
		}
		if err != nil && ctx.Err() == nil && hctx.Err() != nil {
			return fmt.Errorf("%w after %s", realtime.ErrHandshakeTimeout, timeout)
		}
		return err
	}
}

// awaitReply reads until this connection's handshake reply arrives. Events
// seen before the reply are dropped.
func (c *conn) awaitReply(ctx context.Context, wait time.Duration) error {
	readCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		env, err := c.next(readCtx)
		if err != nil {
			if ctx.Err() == nil && readCtx.Err() != nil {
				return errNoReply
			}
			return err
		}
		switch c.classify(env) {
		case kindAck:
			return nil
		case kindRejected:
			var reply realtime.HandshakeReply
			_ = json.Unmarshal(env.Payload, &reply)
			return fmt.Errorf("%w: %s", realtime.ErrHandshakeRejected, reply.Reason)
		}
	}
}

// Receive returns the next event for the bridge. Control envelopes are
// consumed here. With a liveness timeout set, silence longer than it is
// reported as ErrConnectionLost; the backend heartbeat keeps a healthy
// connection from tripping it.
func (c *conn) Receive(ctx context.Context) (realtime.Envelope, error) {
	for {
		readCtx, cancel := c.livenessContext(ctx)
		env, err := c.next(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() == nil && readCtx.Err() != nil {
				return realtime.Envelope{}, fmt.Errorf("%w: nothing received for %s", realtime.ErrConnectionLost, c.liveness)
			}
			return realtime.Envelope{}, err
		}
		if c.classify(env) != kindEvent {
			continue
		}
		return env, nil
	}
}

func (c *conn) livenessContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.liveness <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.liveness)
}

func (c *conn) next(ctx context.Context) (realtime.Envelope, error) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return realtime.Envelope{}, err
		}
		var env realtime.Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.logger.Warn("skipping undecodable envelope",
				zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		return env, nil
	}
}

func (c *conn) Invoke(ctx context.Context, method string, args ...any) error {
	inv, err := realtime.NewInvocation(method, c.token, c.clientID, args...)
	if err != nil {
		return err
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(c.clientID),
		Value: data,
		Time:  time.Now(),
	})
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
		if err := c.writer.Close(); err != nil && c.closeErr == nil {
			c.closeErr = err
		}
	})
	return c.closeErr
}
