// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "context"

// Func is a single pipeline operation taking an I and producing an O,
// following the teacher's convention for composable connection-pipeline
// stages (cancellation watching, I/O observation, ...). Generalized here
// to whatever stage shape a given pipeline needs, rather than tied to
// one concrete I/O type.
type Func[I, O any] interface {
	Call(ctx context.Context, in I) (O, error)
}
