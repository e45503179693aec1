// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"context"
	"sync"
	"time"
)

// TokenBucketConfig configures a [TokenBucket].
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens the bucket can hold.
	Capacity float64

	// FlowRate is the refill rate in tokens per second. Must be > 0.
	FlowRate float64

	// MaxQueueTime is the limiter's own cap on projected wait time; a
	// grant whose projected wait exceeds this fails with
	// [ErrRateLimitExceeded]. Zero means unlimited.
	MaxQueueTime time.Duration

	// MaxQueueSize is the maximum number of waiters allowed to queue.
	// Zero means unlimited.
	MaxQueueSize int

	// TimeNow returns the current time. Defaults to [time.Now].
	TimeNow func() time.Time
}

// GrantOptions customizes a single [TokenBucket.Grant] call.
type GrantOptions struct {
	// MaxWaitTime caps how long this particular caller is willing to
	// queue; if the projected wait exceeds it, Grant fails with
	// [ErrRateLimitExceeded] instead of enqueuing. Zero means the caller
	// defers entirely to the bucket's own MaxQueueTime.
	MaxWaitTime time.Duration

	// AllowPartial permits a grant smaller than the requested amount
	// when the bucket holds less than that amount and no waiter is
	// queued ahead: the
	// caller receives whatever is immediately available instead of
	// waiting for the full amount.
	AllowPartial bool
}

// GrantResult is the outcome of a successful [TokenBucket.Grant].
type GrantResult struct {
	// Granted is the number of tokens actually granted (may be less
	// than requested if AllowPartial was set).
	Granted float64

	// WaitTime is how long the caller was suspended before the grant.
	WaitTime time.Duration
}

type waiter struct {
	amount      float64
	scheduledAt time.Time
	resched     chan struct{}
}

// TokenBucket is a flow-controlled limiter over a monotonic time source,
// used for connection-, request-, and byte-rate control (see
// [TokenBucketRateLimiter]). The zero value is not ready to use;
// construct with [NewTokenBucket].
//
// Invariant: available <= capacity; available is refilled at flowRate
// tokens/second. A queued waiter reserves its amount when it enqueues,
// so available is negative while waiters are queued. Waiters are released strictly in
// FIFO (enqueue) order: the bucket never hands a later waiter a grant
// that would overtake an earlier one.
type TokenBucket struct {
	mu           sync.Mutex
	capacity     float64
	flowRate     float64
	maxQueueTime time.Duration
	maxQueueSize int
	available    float64
	lastFilledAt time.Time
	timeNow      func() time.Time
	queue        []*waiter
}

// NewTokenBucket returns a [*TokenBucket], starting full (available ==
// capacity).
func NewTokenBucket(cfg TokenBucketConfig) *TokenBucket {
	timeNow := cfg.TimeNow
	if timeNow == nil {
		timeNow = time.Now
	}
	return &TokenBucket{
		capacity:     cfg.Capacity,
		flowRate:     cfg.FlowRate,
		maxQueueTime: cfg.MaxQueueTime,
		maxQueueSize: cfg.MaxQueueSize,
		available:    cfg.Capacity,
		lastFilledAt: timeNow(),
		timeNow:      timeNow,
	}
}

// refill must be called with mu held.
func (b *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastFilledAt).Seconds()
	if elapsed > 0 {
		b.available = min(b.capacity, b.available+elapsed*b.flowRate)
		b.lastFilledAt = now
	}
}

// Grant requests amount tokens, suspending the caller if necessary.
// See the package-level TokenBucket documentation and spec §4.2 for the
// full decision procedure.
func (b *TokenBucket) Grant(ctx context.Context, amount float64, opts GrantOptions) (GrantResult, error) {
	b.mu.Lock()

	now := b.timeNow()
	b.refill(now)

	if b.available >= amount {
		b.available -= amount
		b.mu.Unlock()
		return GrantResult{Granted: amount}, nil
	}

	if opts.AllowPartial && len(b.queue) == 0 {
		granted := b.available
		b.available = 0
		b.mu.Unlock()
		return GrantResult{Granted: granted}, nil
	}

	deficit := amount - b.available
	projectedWait := time.Duration(deficit / b.flowRate * float64(time.Second))

	effectiveMax := b.maxQueueTime
	if opts.MaxWaitTime > 0 && (effectiveMax <= 0 || opts.MaxWaitTime < effectiveMax) {
		effectiveMax = opts.MaxWaitTime
	}
	if effectiveMax > 0 && projectedWait > effectiveMax {
		b.mu.Unlock()
		return GrantResult{}, NewError(KindRateLimitExceeded, "projected wait exceeds maxQueueTime", nil)
	}
	if b.maxQueueSize > 0 && len(b.queue) >= b.maxQueueSize {
		b.mu.Unlock()
		return GrantResult{}, NewError(KindRateLimitExceeded, "queue length exceeds maxQueueSize", nil)
	}

	w := &waiter{
		amount:      amount,
		scheduledAt: b.lastFilledAt.Add(time.Duration(deficit / b.flowRate * float64(time.Second))),
		resched:     make(chan struct{}, 1),
	}
	// Reserve immediately so subsequent callers see a deeper deficit and
	// are scheduled strictly after this waiter.
	b.available -= amount
	b.queue = append(b.queue, w)
	b.mu.Unlock()

	for {
		b.mu.Lock()
		deadline := w.scheduledAt
		b.mu.Unlock()

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-timer.C:
			b.mu.Lock()
			b.dequeue(w)
			b.mu.Unlock()
			return GrantResult{Granted: amount, WaitTime: time.Since(now)}, nil
		case <-ctx.Done():
			timer.Stop()
			b.mu.Lock()
			b.cancelWaiter(w)
			b.mu.Unlock()
			return GrantResult{}, ctx.Err()
		case <-w.resched:
			timer.Stop()
			// scheduledAt moved earlier (a prior waiter was cancelled);
			// loop around and re-arm against the new deadline.
		}
	}
}

// dequeue removes w from the queue once it has fired normally.
func (b *TokenBucket) dequeue(w *waiter) {
	for i, q := range b.queue {
		if q == w {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			return
		}
	}
}

// cancelWaiter releases w's reservation back to the bucket and
// recomputes every later-queued waiter's scheduled time, preserving
// strict FIFO ordering among the remainder.
func (b *TokenBucket) cancelWaiter(w *waiter) {
	idx := -1
	for i, q := range b.queue {
		if q == w {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	b.queue = append(b.queue[:idx], b.queue[idx+1:]...)
	b.available += w.amount

	// b.available currently equals the baseline (refilled-to-lastFilledAt)
	// pool minus every remaining waiter's reservation. Recover that
	// baseline, then replay reservations in FIFO order to recompute each
	// remaining waiter's scheduled time against it.
	var reserved float64
	for _, q := range b.queue {
		reserved += q.amount
	}
	pool := b.available + reserved

	var cumulative float64
	for _, q := range b.queue {
		needed := cumulative + q.amount
		if pool >= needed {
			q.scheduledAt = b.lastFilledAt
		} else {
			deficit := needed - pool
			wait := time.Duration(deficit / b.flowRate * float64(time.Second))
			q.scheduledAt = b.lastFilledAt.Add(wait)
		}
		cumulative += q.amount

		select {
		case q.resched <- struct{}{}:
		default:
		}
	}
}

// Available returns a snapshot of the currently available tokens
// (after refilling to now), for diagnostics and tests.
func (b *TokenBucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(b.timeNow())
	return b.available
}

// QueueLen returns the number of waiters currently queued, for
// diagnostics and tests.
func (b *TokenBucket) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
