package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outbound method names understood by the backend.
const (
	MethodConnect    = "Connect"
	MethodJoinGroup  = "JoinGroup"
	MethodLeaveGroup = "LeaveGroup"
)

// Control events exchanged between a transport and the backend. Transports
// consume them; they never reach event handlers.
const (
	EventConnectAck      = "ConnectAck"
	EventConnectRejected = "ConnectRejected"
	EventHeartbeat       = "Heartbeat"
)

// ClientGroup addresses a reply to one connection.
func ClientGroup(clientID string) string {
	return "client:" + clientID
}

// HandshakeReply answers a Connect invocation.
type HandshakeReply struct {
	ClientID string `json:"client_id"`
	UserID   string `json:"user_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Envelope is one server-pushed event as it travels on the channel. An
// empty Group means broadcast.
type Envelope struct {
	Event     string          `json:"event"`
	Group     string          `json:"group,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEnvelope(event, group string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return Envelope{
		Event:     event,
		Group:     group,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Invocation is one client-to-server call.
type Invocation struct {
	Method   string            `json:"method"`
	Args     []json.RawMessage `json:"args,omitempty"`
	Token    string            `json:"token,omitempty"`
	ClientID string            `json:"client_id"`
}

func NewInvocation(method, token, clientID string, args ...any) (Invocation, error) {
	inv := Invocation{Method: method, Token: token, ClientID: clientID}
	for _, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return Invocation{}, fmt.Errorf("encoding %s argument: %w", method, err)
		}
		inv.Args = append(inv.Args, raw)
	}
	return inv, nil
}

// StringArg decodes argument i as a string.
func (inv Invocation) StringArg(i int) (string, bool) {
	if i < 0 || i >= len(inv.Args) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(inv.Args[i], &s); err != nil {
		return "", false
	}
	return s, true
}
