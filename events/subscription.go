package events

import (
	"sort"
	"time"
)

// SubscribeOptions configures a single On/Once registration.
type SubscribeOptions struct {
	Priority Priority
	Once     bool
}

func (e *EventEmitter) nowNano() int64 { return time.Now().UnixNano() }

// On registers handler for event and returns a Subscription whose
// Unsubscribe method removes it.
func (e *EventEmitter) On(event string, handler Handler, opts SubscribeOptions) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.nextSeq++

	s := &subscription{
		id:        id,
		event:     event,
		handler:   handler,
		priority:  opts.Priority,
		once:      opts.Once,
		createdAt: e.nowNano(),
		seq:       e.nextSeq,
	}
	var tok *dropToken
	if e.opts.WeakReferences {
		tok = &dropToken{}
		s.token = tok
	}

	e.subs[event] = append(e.subs[event], s)
	if len(e.subs[event]) > e.opts.MaxListeners {
		e.opts.Logger.Warnf("events: event %q has %d listeners, exceeding MaxListeners=%d", event, len(e.subs[event]), e.opts.MaxListeners)
	}

	return &Subscription{ID: id, Event: event, emitter: e, token: tok}
}

// Once is On with Once=true forced.
func (e *EventEmitter) Once(event string, handler Handler, opts SubscribeOptions) *Subscription {
	opts.Once = true
	return e.On(event, handler, opts)
}

// Off removes subscriptions for event. With no ids given, every
// subscription for event is removed; with ids given, only matching ones
// are. Returns whether any removal occurred.
func (e *EventEmitter) Off(event string, ids ...int64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	list, ok := e.subs[event]
	if !ok || len(list) == 0 {
		return false, nil
	}
	if len(ids) == 0 {
		delete(e.subs, event)
		return true, nil
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	removed := false
	kept := list[:0]
	for _, s := range list {
		if want[s.id] {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		delete(e.subs, event)
	} else {
		e.subs[event] = kept
	}
	return removed, nil
}

// ListenerCount returns the number of live subscriptions for event.
func (e *EventEmitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs[event])
}

// BatchSubscribe registers every handler in handlers for event, in order.
func (e *EventEmitter) BatchSubscribe(event string, handlers []Handler, opts SubscribeOptions) []*Subscription {
	out := make([]*Subscription, len(handlers))
	for i, h := range handlers {
		out[i] = e.On(event, h, opts)
	}
	return out
}

// BatchUnsubscribe unsubscribes every given subscription and returns the
// count actually removed.
func BatchUnsubscribe(subs []*Subscription) int {
	count := 0
	for _, s := range subs {
		if s.Unsubscribe() {
			count++
		}
	}
	return count
}

// dispatchOrder returns a priority-ordered, insertion-stable copy of
// event's subscriber list, per (priority_rank, insertion_order).
func (e *EventEmitter) dispatchOrder(event string) []*subscription {
	src := e.subs[event]
	out := make([]*subscription, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].priority.rank() != out[j].priority.rank() {
			return out[i].priority.rank() < out[j].priority.rank()
		}
		return out[i].seq < out[j].seq
	})
	return out
}
