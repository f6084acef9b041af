package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []Envelope
	reply    Response
}

func (h *recordingHandler) HandleFireAndForget(_ context.Context, env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, env)
}

func (h *recordingHandler) HandleRequest(_ context.Context, env Envelope) Response {
	resp := h.reply
	resp.RequestID = env.RequestID
	return resp
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func TestInProcessChannel_SendDeliversToHandler(t *testing.T) {
	h := &recordingHandler{}
	ch := NewInProcessChannel("s1", h)
	defer ch.Close()

	err := ch.Send(context.Background(), Envelope{Kind: KindToolCall, ToolName: "Read", Step: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.count() == 1 }, time.Second, time.Millisecond)
}

func TestInProcessChannel_RequestReturnsHandlerReply(t *testing.T) {
	h := &recordingHandler{reply: Response{Kind: KindMemorySearchResult, Results: []SearchResultItem{{MemoryID: "m1"}}}}
	ch := NewInProcessChannel("s1", h)
	defer ch.Close()

	resp, err := ch.Request(context.Background(), Envelope{Kind: KindMemorySearch, RequestID: "r1"}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "r1", resp.RequestID)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "m1", resp.Results[0].MemoryID)
}

func TestInProcessChannel_CloseRejectsFurtherSends(t *testing.T) {
	h := &recordingHandler{}
	ch := NewInProcessChannel("s1", h)
	require.NoError(t, ch.Close())

	err := ch.Send(context.Background(), Envelope{Kind: KindToolCall})
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestRing_DropsOnFull(t *testing.T) {
	r := newRing()
	for i := 0; i < ringCapacity; i++ {
		require.True(t, r.push(Envelope{Step: i}))
	}
	require.False(t, r.push(Envelope{Step: ringCapacity}))

	env, ok := r.pop()
	require.True(t, ok)
	require.Equal(t, 0, env.Step)
}
