// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "github.com/webhouse/webhouse/errclass"

// ErrClassifier classifies errors into categorical strings for structured
// logging (the errClass field emitted alongside most *Done events).
//
// This is distinct from [Kind]: Kind is the system's closed abstract error
// taxonomy used for HTTP status mapping, while ErrClassifier produces the
// finer-grained wire-level labels ("ETIMEDOUT", "ECONNRESET", ...) useful
// for operational triage of [KindTransport] errors.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using [errclass.New].
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
