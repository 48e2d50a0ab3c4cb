package events

import (
	"time"

	"github.com/gekko3d/simcore/pqueue"
	"github.com/gekko3d/simcore/simerr"
)

// EmitOptions configures a single Emit call.
type EmitOptions struct {
	Priority Priority
}

// Emit publishes event with data. While paused (or when ImmediateDispatch
// is false), the event is buffered into the priority queue instead of
// dispatched; if that would exceed BufferSize, it fails with
// EventQueueFullError. Returns whether at least one handler ran (dispatch
// mode) or at least one event was buffered (deferred mode).
func (e *EventEmitter) Emit(event string, data any, opts EmitOptions) (bool, error) {
	e.mu.Lock()
	deferred := e.state == StatePaused || !e.opts.ImmediateDispatch
	if deferred {
		if e.pendingCount >= e.opts.BufferSize {
			e.mu.Unlock()
			return false, simerr.New("EventEmitter.Emit", simerr.QueueFull, "event", event)
		}
		e.nextSeq++
		qe := queuedEvent{event: event, data: data, priority: opts.Priority, timestamp: e.nowNano(), seq: e.nextSeq}
		e.buffer.Enqueue(qe, queueKey{rank: opts.Priority.rank(), timestamp: qe.timestamp, seq: qe.seq})
		e.pendingCount++
		e.mu.Unlock()
		return true, nil
	}
	order := e.dispatchOrder(event)
	e.mu.Unlock()

	return e.runHandlers(event, data, order)
}

// EmitSync dispatches event synchronously regardless of pause state,
// bypassing the buffer entirely.
func (e *EventEmitter) EmitSync(event string, data any) (bool, error) {
	e.mu.Lock()
	order := e.dispatchOrder(event)
	e.mu.Unlock()
	return e.runHandlers(event, data, order)
}

// BatchItem is one (event, data) pair for EmitBatch.
type BatchItem struct {
	Event string
	Data  any
}

// EmitBatch performs one Emit per item in order and returns the
// per-element results.
func (e *EventEmitter) EmitBatch(items []BatchItem, opts EmitOptions) []bool {
	out := make([]bool, len(items))
	for i, it := range items {
		ok, _ := e.Emit(it.Event, it.Data, opts)
		out[i] = ok
	}
	return out
}

func (e *EventEmitter) acquireSem() {
	if e.sem != nil {
		e.sem <- struct{}{}
	}
}

func (e *EventEmitter) releaseSem() {
	if e.sem != nil {
		<-e.sem
	}
}

// runHandlers invokes order in sequence, honoring once-removal,
// CaptureRejections, and ConcurrencyLimit. Counts one emission (with its
// end-to-end latency) per call and one handler execution per callback.
// Returns true iff at least one handler ran.
func (e *EventEmitter) runHandlers(event string, data any, order []*subscription) (invoked bool, err error) {
	emissionStart := time.Now()
	defer func() {
		e.mu.Lock()
		e.metrics.Emissions++
		e.metrics.EmissionTiming.observe(time.Since(emissionStart))
		e.mu.Unlock()
	}()

	for _, s := range order {
		if s.token != nil && s.token.isDropped() {
			continue
		}
		if s.once {
			e.Off(event, s.id)
		}

		e.acquireSem()
		start := time.Now()
		herr := safeCall(s.handler, data)
		elapsed := time.Since(start)
		e.releaseSem()

		invoked = true
		e.mu.Lock()
		s.execCount++
		s.lastExecuted = e.nowNano()
		e.metrics.HandlerExecutions++
		e.metrics.HandlerTiming.observe(elapsed)
		if herr != nil {
			e.metrics.HandlerErrors++
		}
		e.mu.Unlock()

		if herr != nil {
			if e.opts.CaptureRejections {
				e.emitError(event, herr)
				continue
			}
			return invoked, herr
		}
	}
	return invoked, nil
}

func safeCall(h Handler, data any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = simerr.New("EventEmitter.handler", simerr.HandlerError, "panic", r)
		}
	}()
	return h(data)
}

// HandlerError pairs the failing event name with its underlying cause,
// the payload routed to the "error" event when CaptureRejections is set.
type HandlerError struct {
	Event    string
	Original error
}

func (h *HandlerError) Error() string { return h.Original.Error() }
func (h *HandlerError) Unwrap() error { return h.Original }

func (e *EventEmitter) emitError(event string, cause error) {
	e.mu.Lock()
	order := e.dispatchOrder("error")
	e.mu.Unlock()
	_, _ = e.runHandlers("error", &HandlerError{Event: event, Original: cause}, order)
}

// Pause transitions the emitter to the paused state; subsequent emits are
// buffered instead of dispatched.
func (e *EventEmitter) Pause() {
	e.mu.Lock()
	e.state = StatePaused
	e.mu.Unlock()
}

// Resume transitions back to active and dispatches every buffered event
// in queue order.
func (e *EventEmitter) Resume() {
	e.mu.Lock()
	e.state = StateActive
	e.mu.Unlock()
	e.drainAll()
}

// Drain processes the queue to empty regardless of state, without
// changing the pause/active state.
func (e *EventEmitter) Drain() {
	e.drainAll()
}

func (e *EventEmitter) drainAll() {
	for {
		e.mu.Lock()
		qe, ok := e.buffer.TryDequeue()
		if ok {
			e.pendingCount--
		}
		var order []*subscription
		if ok {
			order = e.dispatchOrder(qe.event)
		}
		e.mu.Unlock()
		if !ok {
			return
		}
		e.runHandlers(qe.event, qe.data, order)
	}
}

// Dispose releases all subscriptions and buffered events and stops the
// background GC sweep, if any.
func (e *EventEmitter) Dispose() {
	e.mu.Lock()
	e.subs = make(map[string][]*subscription)
	e.buffer.Clear()
	e.pendingCount = 0
	e.mu.Unlock()
	if e.gcStop != nil {
		close(e.gcStop)
		e.gcStop = nil
	}
}

// QueuedEvent is a snapshot of one buffered event.
type QueuedEvent struct {
	Event     string
	Data      any
	Priority  Priority
	Timestamp int64
	Sequence  int64
}

// GetQueuedEvents returns an ordered snapshot of the pause buffer in
// dispatch order, without mutating it.
func (e *EventEmitter) GetQueuedEvents() []QueuedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	it := e.buffer.Iterate()
	var out []QueuedEvent
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, QueuedEvent{Event: v.event, Data: v.data, Priority: v.priority, Timestamp: v.timestamp, Sequence: v.seq})
	}
	return out
}

// GetPendingCount returns the number of buffered events across all events,
// or for a single event when event is non-empty.
func (e *EventEmitter) GetPendingCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if event == "" {
		return e.pendingCount
	}
	count := 0
	it := e.buffer.Iterate()
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		if v.event == event {
			count++
		}
	}
	return count
}

func newBuffer() *pqueue.PriorityQueue[queuedEvent, queueKey] {
	return pqueue.New(pqueue.Options[queuedEvent, queueKey]{Comparator: queueCmp})
}

func keyOf(qe queuedEvent) queueKey {
	return queueKey{rank: qe.priority.rank(), timestamp: qe.timestamp, seq: qe.seq}
}

// ClearBuffer removes queued events (all, or only matching event when
// non-empty) and returns the count removed.
func (e *EventEmitter) ClearBuffer(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if event == "" {
		n := e.pendingCount
		e.buffer.Clear()
		e.pendingCount = 0
		return n
	}
	remaining := newBuffer()
	removed := 0
	for {
		qe, ok := e.buffer.TryDequeue()
		if !ok {
			break
		}
		if qe.event == event {
			removed++
			e.pendingCount--
			continue
		}
		remaining.Enqueue(qe, keyOf(qe))
	}
	e.buffer = remaining
	return removed
}

// Flush dispatches queued events for a single event name while remaining
// in the current pause/active state.
func (e *EventEmitter) Flush(event string) {
	for {
		e.mu.Lock()
		remaining := newBuffer()
		var qe queuedEvent
		found := false
		for {
			item, ok := e.buffer.TryDequeue()
			if !ok {
				break
			}
			if !found && item.event == event {
				qe = item
				found = true
				e.pendingCount--
				continue
			}
			remaining.Enqueue(item, keyOf(item))
		}
		e.buffer = remaining
		var order []*subscription
		if found {
			order = e.dispatchOrder(qe.event)
		}
		e.mu.Unlock()
		if !found {
			return
		}
		e.runHandlers(qe.event, qe.data, order)
	}
}
