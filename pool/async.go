package pool

import (
	"context"
	"time"

	"github.com/gekko3d/simcore/simerr"
)

// AcquireAsync blocks until a slot becomes available, the pool is disposed,
// or ctx is done.
func (p *Pool[T]) AcquireAsync(ctx context.Context) (T, error) {
	for {
		obj, err := p.Acquire()
		if err == nil {
			return obj, nil
		}
		if !isKind(err, simerr.PoolDepleted) {
			return obj, err
		}

		p.mu.Lock()
		ch := p.waitCh
		p.mu.Unlock()

		select {
		case <-ch:
			// a slot was released or the pool was disposed/expanded; retry
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryAcquireAsync waits up to timeout for a free slot. It returns
// (obj, true, nil) on success, (zero, false, nil) on timeout, or a non-nil
// error for disposal/validation failures.
func (p *Pool[T]) TryAcquireAsync(ctx context.Context, timeout time.Duration) (T, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		obj, err := p.Acquire()
		if err == nil {
			return obj, true, nil
		}
		if !isKind(err, simerr.PoolDepleted) {
			var zero T
			return zero, false, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, false, nil
		}

		p.mu.Lock()
		ch := p.waitCh
		p.mu.Unlock()

		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			var zero T
			return zero, false, nil
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, false, ctx.Err()
		}
	}
}

func isKind(err error, kind simerr.Kind) bool {
	type kinder interface{ Is(error) bool }
	if k, ok := err.(kinder); ok {
		return k.Is(kind)
	}
	return false
}
