package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dotcommander/memengine/internal/telemetry"
)

// Handler is implemented by whatever consumes the duplex channel: fire-and-
// forget envelopes feed the Observer, request envelopes are answered by the
// Retrieval Pipeline / Store.
type Handler interface {
	HandleFireAndForget(ctx context.Context, env Envelope)
	HandleRequest(ctx context.Context, env Envelope) Response
}

// Channel is the duplex message channel from spec.md section 6.1, realized
// two ways (in-process, NATS-backed) behind this one interface.
type Channel interface {
	// Send submits a fire-and-forget envelope (tool_call, tool_result,
	// reasoning, step_complete). It never blocks the caller; under
	// backpressure the message is dropped and recorded, never returned
	// as an error, since the observer must never stall the agent.
	Send(ctx context.Context, env Envelope) error

	// Request submits a request/reply envelope (memory_search,
	// memory_record, memory_step_inject) and blocks for at most timeout.
	Request(ctx context.Context, env Envelope, timeout time.Duration) (Response, error)

	// Close releases the channel's background resources.
	Close() error
}

// ErrChannelClosed is returned by Send/Request after Close.
var ErrChannelClosed = errors.New("transport: channel closed")

// InProcessChannel is the default Channel: a bounded SPSC ring buffer feeds
// an internal goroutine that drains into Handler.HandleFireAndForget.
// Request/reply calls are answered synchronously in-process since there is
// no wire boundary to cross.
type InProcessChannel struct {
	handler Handler
	sess    string

	r        *ring
	wake     chan struct{}
	done     chan struct{}
	closeOne sync.Once
}

// NewInProcessChannel starts the drain goroutine and returns a ready
// channel. sessionID is used only for telemetry attribution.
func NewInProcessChannel(sessionID string, handler Handler) *InProcessChannel {
	c := &InProcessChannel{
		handler: handler,
		sess:    sessionID,
		r:       newRing(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go c.drainLoop()
	return c
}

func (c *InProcessChannel) drainLoop() {
	ctx := context.Background()
	for {
		for {
			env, ok := c.r.pop()
			if !ok {
				break
			}
			c.handler.HandleFireAndForget(ctx, env)
		}
		select {
		case <-c.wake:
		case <-c.done:
			return
		}
	}
}

func (c *InProcessChannel) Send(ctx context.Context, env Envelope) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	if !c.r.push(env) {
		telemetry.Default().RecordDroppedEvent(ctx, c.sess)
		return nil
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

func (c *InProcessChannel) Request(ctx context.Context, env Envelope, timeout time.Duration) (Response, error) {
	select {
	case <-c.done:
		return Response{}, ErrChannelClosed
	default:
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan Response, 1)
	go func() {
		resultCh <- c.handler.HandleRequest(reqCtx, env)
	}()

	select {
	case resp := <-resultCh:
		return resp, nil
	case <-reqCtx.Done():
		return Response{Kind: KindMemoryError, RequestID: env.RequestID, ErrorMessage: "request timed out"}, reqCtx.Err()
	}
}

func (c *InProcessChannel) Close() error {
	c.closeOne.Do(func() { close(c.done) })
	return nil
}
