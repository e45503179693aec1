//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: config.go (teacher's Config/NewConfig dependency bag)
//

package webhouse

import "time"

// Runtime holds the process-wide dependencies every component is wired
// with: the error classifier used for structured logging, and the clock.
// This generalizes the teacher's Config struct (which pre-wired a Dialer,
// ErrClassifier, and TimeNow for its Func primitives) to the handful of
// ambient dependencies the component hierarchy needs; component-specific
// typed configuration is a separate concept, see [BaseConfig].
//
// All fields have sensible defaults set by [NewRuntime]. A *Runtime is
// safe to share across the whole component tree; individual fields must
// not be mutated after [Warehouse.Start].
type Runtime struct {
	// ErrClassifier classifies transport errors for structured logging.
	//
	// Set by [NewRuntime] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewRuntime] to [time.Now]. Tests substitute a virtual clock
	// here to drive the request id generator and connection timestamps
	// deterministically; a [TokenBucket] takes its clock from
	// [TokenBucketConfig.TimeNow] instead.
	TimeNow func() time.Time
}

// NewRuntime creates a [*Runtime] with sensible defaults.
func NewRuntime() *Runtime {
	return &Runtime{
		ErrClassifier: DefaultErrClassifier,
		TimeNow:       time.Now,
	}
}
