// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "sync"

// future runs fn at most once, on first [future.Get], and caches the
// result for every subsequent (or concurrent) caller. Generalizes the
// source's "async-initialized singleton" idiom (design note in spec.md
// §9) into a small reusable primitive: concurrent callers racing with
// the first one block on the same [sync.Once] rather than triggering
// redundant work, which is exactly the "concurrent lookups during
// generation share the same promise" guarantee the Host Manager's
// self-signed certificate cache needs (§4.4).
type future[T any] struct {
	once sync.Once
	fn   func() (T, error)
	val  T
	err  error
}

// newFuture returns a [*future] that will invoke fn on first Get.
func newFuture[T any](fn func() (T, error)) *future[T] {
	return &future[T]{fn: fn}
}

// Get returns the cached result, computing it via fn on the first call.
// Concurrent calls block until the first completes and then observe the
// same result.
func (f *future[T]) Get() (T, error) {
	f.once.Do(func() {
		f.val, f.err = f.fn()
	})
	return f.val, f.err
}
