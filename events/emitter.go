// Package events implements a typed publish/subscribe emitter with
// priority-ordered dispatch, pause/resume buffering, and batch operations.
// While paused, emissions are held in a pqueue.PriorityQueue ordered by
// (priority rank, enqueue timestamp, sequence), so Resume replays them in
// the same order a live dispatch would have used.
package events

import (
	"sync"
	"time"

	"github.com/gekko3d/simcore/pqueue"
	"github.com/gekko3d/simcore/xlog"
)

// Priority is a subscription or emission's dispatch class. Lower rank
// dispatches first: high < normal < low.
type Priority int

// PriorityNormal is the zero value so a zero-valued SubscribeOptions or
// EmitOptions defaults to "normal" priority.
const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityLow
)

// rank maps a Priority to its dispatch order: high first, then normal,
// then low, independent of the enum's declaration order.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// State is the emitter's pause/resume state machine.
type State int

const (
	StateActive State = iota
	StatePaused
)

// Handler processes one emitted event's payload. A non-nil return is
// treated as a handler failure subject to CaptureRejections.
type Handler func(data any) error

// Options configures an EventEmitter. All fields have the defaults named
// in their doc comment when left zero.
type Options struct {
	// CaptureRejections routes handler failures to the "error" event
	// instead of propagating them. Default false.
	CaptureRejections bool
	// MaxListeners is a soft per-event cap; exceeding it logs a warning.
	// Default 10.
	MaxListeners int
	// WeakReferences holds subscriptions via an explicit drop token
	// instead of an emitter-owned strong reference.
	WeakReferences bool
	// ImmediateDispatch, when true, dispatches emit() synchronously
	// through the subscriber list; when false, always enqueues. Default
	// true.
	ImmediateDispatch bool
	immediateSet      bool
	// ConcurrencyLimit bounds in-flight handler executions across all
	// events. 0 means unbounded.
	ConcurrencyLimit int
	// BufferSize bounds total queued events while paused. Default 1000.
	BufferSize int
	// GCIntervalMs is the period of the sweep that drops invalidated weak
	// subscriptions and empty per-event subscriber lists; the sweep runs
	// only when WeakReferences is set. Default 60000.
	GCIntervalMs int

	Logger xlog.Logger
}

// SetImmediateDispatch lets callers express "false" explicitly, since the
// zero value of a bool can't distinguish "default true" from "set false".
func (o *Options) SetImmediateDispatch(v bool) {
	o.ImmediateDispatch = v
	o.immediateSet = true
}

func (o Options) withDefaults() Options {
	if o.MaxListeners <= 0 {
		o.MaxListeners = 10
	}
	if !o.immediateSet {
		o.ImmediateDispatch = true
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.GCIntervalMs <= 0 {
		o.GCIntervalMs = 60000
	}
	if o.Logger == nil {
		o.Logger = xlog.Nop()
	}
	return o
}

type dropToken struct {
	mu      sync.Mutex
	dropped bool
}

func (t *dropToken) Invalidate() {
	t.mu.Lock()
	t.dropped = true
	t.mu.Unlock()
}

func (t *dropToken) isDropped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

type subscription struct {
	id        int64
	event     string
	handler   Handler
	priority  Priority
	once      bool
	createdAt int64
	seq       int64

	execCount    int64
	lastExecuted int64

	token *dropToken // non-nil only when WeakReferences is set
}

// Subscription identifies one registration and lets the caller remove it.
type Subscription struct {
	ID      int64
	Event   string
	emitter *EventEmitter
	token   *dropToken
}

// Unsubscribe removes this subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() bool {
	if s.token != nil {
		s.token.Invalidate()
	}
	removed, _ := s.emitter.Off(s.Event, s.ID)
	return removed
}

// EventEmitter is a priority-dispatching, pausable publish/subscribe hub.
type EventEmitter struct {
	mu    sync.Mutex
	opts  Options
	state State

	subs    map[string][]*subscription
	nextID  int64
	nextSeq int64

	buffer       *pqueue.PriorityQueue[queuedEvent, queueKey]
	pendingCount int

	sem chan struct{} // concurrency gate; nil when unbounded

	metrics Metrics

	gcStop chan struct{}
}

type queuedEvent struct {
	event     string
	data      any
	priority  Priority
	timestamp int64
	seq       int64
}

type queueKey struct {
	rank      int
	timestamp int64
	seq       int64
}

func queueCmp(a, b queueKey) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	if a.timestamp != b.timestamp {
		return a.timestamp < b.timestamp
	}
	return a.seq < b.seq
}

// New constructs an EventEmitter with the given options.
func New(opts Options) *EventEmitter {
	opts = opts.withDefaults()
	e := &EventEmitter{
		opts: opts,
		subs: make(map[string][]*subscription),
		buffer: pqueue.New(pqueue.Options[queuedEvent, queueKey]{
			Comparator: queueCmp,
		}),
	}
	if opts.ConcurrencyLimit > 0 {
		e.sem = make(chan struct{}, opts.ConcurrencyLimit)
	}
	if opts.GCIntervalMs > 0 && opts.WeakReferences {
		e.gcStop = make(chan struct{})
		go e.gcLoop(time.Duration(opts.GCIntervalMs) * time.Millisecond)
	}
	return e
}

func (e *EventEmitter) gcLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			e.sweep()
		case <-e.gcStop:
			return
		}
	}
}

// sweep drops subscriptions whose weak token was invalidated and removes
// empty per-event subscriber slices.
func (e *EventEmitter) sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := 0
	for event, list := range e.subs {
		kept := list[:0]
		for _, s := range list {
			if s.token != nil && s.token.isDropped() {
				dropped++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(e.subs, event)
		} else {
			e.subs[event] = kept
		}
	}
	if dropped > 0 {
		e.opts.Logger.Debugf("events: gc sweep dropped %d invalidated subscriptions", dropped)
	}
}
