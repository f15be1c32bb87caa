package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/auth"
	"github.com/example/grocery-sync/internal/realtime"
)

var ErrUnknownMethod = errors.New("unknown invocation method")

type TokenAuthenticator interface {
	Authenticate(token string) (*auth.Claims, error)
}

type EnvelopePublisher interface {
	PublishEvent(ctx context.Context, env realtime.Envelope) error
}

// InvocationHandler consumes console invocations from the commands topic.
// Every Connect is answered on the caller's client group with ConnectAck or
// ConnectRejected. Group membership is tracked by consoles themselves, so
// joins and leaves are only authenticated and recorded.
func InvocationHandler(authn TokenAuthenticator, replies EnvelopePublisher, logger *zap.Logger) MessageHandler {
	logger = logger.Named("invocations")
	return func(ctx context.Context, _, value []byte) error {
		var inv realtime.Invocation
		if err := json.Unmarshal(value, &inv); err != nil {
			return fmt.Errorf("decoding invocation: %w", err)
		}

		claims, err := authn.Authenticate(inv.Token)
		if err != nil {
			logger.Warn("rejected invocation",
				zap.String("method", inv.Method),
				zap.String("client_id", inv.ClientID),
				zap.Error(err))
			if inv.Method == realtime.MethodConnect {
				if perr := reply(ctx, replies, realtime.EventConnectRejected, realtime.HandshakeReply{
					ClientID: inv.ClientID,
					Reason:   err.Error(),
				}); perr != nil {
					return errors.Join(err, perr)
				}
			}
			return err
		}

		fields := []zap.Field{
			zap.String("client_id", inv.ClientID),
			zap.String("user_id", claims.UserID),
		}
		switch inv.Method {
		case realtime.MethodConnect:
			logger.Info("console connected", fields...)
			return reply(ctx, replies, realtime.EventConnectAck, realtime.HandshakeReply{
				ClientID: inv.ClientID,
				UserID:   claims.UserID,
			})
		case realtime.MethodJoinGroup, realtime.MethodLeaveGroup:
			group, _ := inv.StringArg(0)
			logger.Info(inv.Method, append(fields, zap.String("group", group))...)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownMethod, inv.Method)
		}
		return nil
	}
}

func reply(ctx context.Context, pub EnvelopePublisher, event string, r realtime.HandshakeReply) error {
	env, err := realtime.NewEnvelope(event, realtime.ClientGroup(r.ClientID), r)
	if err != nil {
		return err
	}
	if err := pub.PublishEvent(ctx, env); err != nil {
		return fmt.Errorf("publishing %s: %w", event, err)
	}
	return nil
}
