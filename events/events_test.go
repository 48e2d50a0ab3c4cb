package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_BasicEmitInvokesHandler(t *testing.T) {
	e := New(Options{})
	called := false
	e.On("tick", func(data any) error {
		called = true
		assert.Equal(t, 42, data)
		return nil
	}, SubscribeOptions{})

	ok, err := e.Emit("tick", 42, EmitOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, called)
}

func TestEmitter_PriorityOrdering(t *testing.T) {
	e := New(Options{})
	var order []string

	e.On("go", func(data any) error { order = append(order, "normal"); return nil }, SubscribeOptions{Priority: PriorityNormal})
	e.On("go", func(data any) error { order = append(order, "low"); return nil }, SubscribeOptions{Priority: PriorityLow})
	e.On("go", func(data any) error { order = append(order, "high"); return nil }, SubscribeOptions{Priority: PriorityHigh})

	_, err := e.Emit("go", nil, EmitOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "normal", "low"}, order)
}

func TestEmitter_OnceRemovedAfterInvocation(t *testing.T) {
	e := New(Options{})
	count := 0
	e.Once("fire", func(data any) error { count++; return nil }, SubscribeOptions{})

	e.Emit("fire", nil, EmitOptions{})
	e.Emit("fire", nil, EmitOptions{})
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, e.ListenerCount("fire"))
}

func TestEmitter_OffRemovesAll(t *testing.T) {
	e := New(Options{})
	e.On("x", func(data any) error { return nil }, SubscribeOptions{})
	e.On("x", func(data any) error { return nil }, SubscribeOptions{})
	removed, err := e.Off("x")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, e.ListenerCount("x"))
}

func TestEmitter_SubscriptionUnsubscribe(t *testing.T) {
	e := New(Options{})
	sub := e.On("x", func(data any) error { return nil }, SubscribeOptions{})
	assert.True(t, sub.Unsubscribe())
	assert.Equal(t, 0, e.ListenerCount("x"))
	assert.False(t, sub.Unsubscribe())
}

func TestEmitter_CaptureRejectionsRoutesToErrorEvent(t *testing.T) {
	e := New(Options{CaptureRejections: true})
	var gotErr error
	e.On("error", func(data any) error {
		herr := data.(*HandlerError)
		gotErr = herr.Original
		return nil
	}, SubscribeOptions{})

	boom := errors.New("boom")
	e.On("risky", func(data any) error { return boom }, SubscribeOptions{})

	_, err := e.Emit("risky", nil, EmitOptions{})
	require.NoError(t, err)
	assert.Equal(t, boom, gotErr)
}

func TestEmitter_PropagatesFirstErrorWithoutCapture(t *testing.T) {
	e := New(Options{})
	boom := errors.New("boom")
	invokedSecond := false
	e.On("risky", func(data any) error { return boom }, SubscribeOptions{Priority: PriorityHigh})
	e.On("risky", func(data any) error { invokedSecond = true; return nil }, SubscribeOptions{Priority: PriorityLow})

	_, err := e.Emit("risky", nil, EmitOptions{})
	require.Error(t, err)
	assert.False(t, invokedSecond)
}

func TestEmitter_PauseBuffersThenResumeDispatches(t *testing.T) {
	e := New(Options{})
	var order []int
	e.On("tick", func(data any) error { order = append(order, data.(int)); return nil }, SubscribeOptions{})

	e.Pause()
	ok, err := e.Emit("tick", 1, EmitOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.Emit("tick", 2, EmitOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, e.GetPendingCount(""))

	e.Resume()
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 0, e.GetPendingCount(""))
}

func TestEmitter_BufferFullFails(t *testing.T) {
	e := New(Options{BufferSize: 1})
	e.Pause()
	_, err := e.Emit("x", nil, EmitOptions{})
	require.NoError(t, err)
	_, err = e.Emit("x", nil, EmitOptions{})
	require.Error(t, err)
}

func TestEmitter_ClearBufferByEvent(t *testing.T) {
	e := New(Options{})
	e.Pause()
	e.Emit("a", 1, EmitOptions{})
	e.Emit("b", 2, EmitOptions{})
	e.Emit("a", 3, EmitOptions{})

	removed := e.ClearBuffer("a")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, e.GetPendingCount(""))
}

func TestEmitter_FlushSingleEvent(t *testing.T) {
	e := New(Options{})
	var got []string
	e.On("a", func(data any) error { got = append(got, "a"); return nil }, SubscribeOptions{})
	e.On("b", func(data any) error { got = append(got, "b"); return nil }, SubscribeOptions{})

	e.Pause()
	e.Emit("a", nil, EmitOptions{})
	e.Emit("b", nil, EmitOptions{})

	e.Flush("a")
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 1, e.GetPendingCount(""))
}

func TestEmitter_GetQueuedEventsOrder(t *testing.T) {
	e := New(Options{})
	e.Pause()
	e.Emit("low", nil, EmitOptions{Priority: PriorityLow})
	e.Emit("high", nil, EmitOptions{Priority: PriorityHigh})
	e.Emit("normal", nil, EmitOptions{Priority: PriorityNormal})

	snap := e.GetQueuedEvents()
	require.Len(t, snap, 3)
	assert.Equal(t, "high", snap[0].Event)
	assert.Equal(t, "normal", snap[1].Event)
	assert.Equal(t, "low", snap[2].Event)
	assert.Equal(t, 3, e.GetPendingCount(""), "GetQueuedEvents must not mutate the buffer")
}

func TestEmitter_BatchSubscribeAndUnsubscribe(t *testing.T) {
	e := New(Options{})
	count := 0
	handlers := []Handler{
		func(data any) error { count++; return nil },
		func(data any) error { count++; return nil },
	}
	subs := e.BatchSubscribe("multi", handlers, SubscribeOptions{})
	assert.Equal(t, 2, e.ListenerCount("multi"))

	e.Emit("multi", nil, EmitOptions{})
	assert.Equal(t, 2, count)

	removed := BatchUnsubscribe(subs)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, e.ListenerCount("multi"))
}

func TestEmitter_MaxListenersWarns(t *testing.T) {
	warned := false
	e := New(Options{MaxListeners: 1, Logger: warnSpy(&warned)})
	e.On("x", func(data any) error { return nil }, SubscribeOptions{})
	e.On("x", func(data any) error { return nil }, SubscribeOptions{})
	assert.True(t, warned)
}

func TestEmitter_WeakReferenceUnsubscribeRemovesListener(t *testing.T) {
	e := New(Options{WeakReferences: true})
	sub := e.On("x", func(data any) error { return nil }, SubscribeOptions{})
	sub.Unsubscribe() // invalidates the token and removes via Off

	assert.Equal(t, 0, e.ListenerCount("x"))
}

func TestEmitter_Dispose(t *testing.T) {
	e := New(Options{})
	e.On("x", func(data any) error { return nil }, SubscribeOptions{})
	e.Pause()
	e.Emit("x", nil, EmitOptions{})

	e.Dispose()
	assert.Equal(t, 0, e.ListenerCount("x"))
	assert.Equal(t, 0, e.GetPendingCount(""))
}

func TestEmitter_MetricsRecordHandlerTiming(t *testing.T) {
	e := New(Options{})
	e.On("x", func(data any) error { time.Sleep(time.Millisecond); return nil }, SubscribeOptions{})
	e.On("x", func(data any) error { return nil }, SubscribeOptions{})
	e.Emit("x", nil, EmitOptions{})

	snap := e.Snapshot()
	assert.Equal(t, int64(1), snap.Emissions, "one dispatch is one emission, however many handlers ran")
	assert.Equal(t, int64(2), snap.HandlerExecutions)
	assert.Greater(t, snap.HandlerTiming.Total, time.Duration(0))
	assert.Greater(t, snap.EmissionTiming.Total, time.Duration(0))
}

type spyLogger struct{ warned *bool }

func warnSpy(flag *bool) *spyLogger { return &spyLogger{warned: flag} }

func (s *spyLogger) DebugEnabled() bool       { return false }
func (s *spyLogger) SetDebug(bool)            {}
func (s *spyLogger) Debugf(string, ...any)    {}
func (s *spyLogger) Infof(string, ...any)     {}
func (s *spyLogger) Warnf(string, ...any)     { *s.warned = true }
func (s *spyLogger) Errorf(string, ...any)    {}
