package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	nc "github.com/nats-io/nats.go"
)

// subjectPrefix is the per-session subject root from spec.md section 4.7:
// "memengine.session.<id>".
func subjectPrefix(sessionID string) string {
	return "memengine.session." + sessionID
}

func subjectFor(sessionID string, kind RequestKind) string {
	return subjectPrefix(sessionID) + "." + string(kind)
}

// NATSChannel is the out-of-process realization of Channel: fire-and-forget
// envelopes are NATS Publishes, request/reply envelopes use NATS
// request/reply with a deadline — the systems-idiom replacement for a
// hand-rolled pending-request correlation map, since the NATS client
// library already tracks the inbox subject and releases it on reply or
// timeout.
type NATSChannel struct {
	conn      *nc.Conn
	sessionID string
	handler   Handler
	subs      []*nc.Subscription
}

// DialNATS connects to url and returns a channel for one session. If
// handler is non-nil, the channel subscribes to every subject under the
// session's prefix and dispatches inbound envelopes to it — this is the
// server side memengine runs to receive an out-of-process agent runtime's
// messages.
func DialNATS(url, sessionID string, handler Handler) (*NATSChannel, error) {
	conn, err := nc.Connect(url, nc.Name("memengine-"+sessionID), nc.MaxReconnects(-1), nc.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("transport: connect to nats: %w", err)
	}

	c := &NATSChannel{conn: conn, sessionID: sessionID, handler: handler}
	if handler != nil {
		if err := c.subscribeAll(); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *NATSChannel) subscribeAll() error {
	fireAndForgetKinds := []RequestKind{KindToolCall, KindToolResult, KindReasoning, KindStepComplete}
	for _, kind := range fireAndForgetKinds {
		kind := kind
		sub, err := c.conn.Subscribe(subjectFor(c.sessionID, kind), func(msg *nc.Msg) {
			var env Envelope
			if err := json.Unmarshal(msg.Data, &env); err != nil {
				return
			}
			c.handler.HandleFireAndForget(context.Background(), env)
		})
		if err != nil {
			return fmt.Errorf("transport: subscribe %s: %w", kind, err)
		}
		c.subs = append(c.subs, sub)
	}

	requestKinds := []RequestKind{KindMemorySearch, KindMemoryRecord, KindMemoryStepInject}
	for _, kind := range requestKinds {
		kind := kind
		sub, err := c.conn.Subscribe(subjectFor(c.sessionID, kind), func(msg *nc.Msg) {
			var env Envelope
			if err := json.Unmarshal(msg.Data, &env); err != nil {
				return
			}
			resp := c.handler.HandleRequest(context.Background(), env)
			data, err := json.Marshal(resp)
			if err != nil {
				return
			}
			_ = msg.Respond(data)
		})
		if err != nil {
			return fmt.Errorf("transport: subscribe %s: %w", kind, err)
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

// Send publishes a fire-and-forget envelope. NATS publish is itself
// fire-and-forget and non-blocking, so there is no ring buffer on this
// side; backpressure is the broker's concern.
func (c *NATSChannel) Send(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}
	return c.conn.Publish(subjectFor(c.sessionID, env.Kind), data)
}

// Request performs a NATS request/reply with the given deadline.
func (c *NATSChannel) Request(ctx context.Context, env Envelope, timeout time.Duration) (Response, error) {
	if env.RequestID == "" {
		env.RequestID = uuid.New().String()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return Response{}, fmt.Errorf("transport: marshal envelope: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(reqCtx, subjectFor(c.sessionID, env.Kind), data)
	if err != nil {
		return Response{Kind: KindMemoryError, RequestID: env.RequestID, ErrorMessage: err.Error()}, err
	}

	var resp Response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return Response{}, fmt.Errorf("transport: unmarshal response: %w", err)
	}
	return resp, nil
}

func (c *NATSChannel) Close() error {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
	return nil
}
