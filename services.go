// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"context"
	"io"
)

// RateLimiter is the external collaborator contract an endpoint
// consults for connection-, request-, and byte-rate control (§4.5,
// §4.10). A false result from AllowConnection/AllowRequest causes the
// connection/request to be rejected.
//
// Per the source's ambiguity over whether a single rate limiter charges
// one fused bucket or two independent ones for connections versus
// requests (§9 design note), implementations are free to treat the two
// calls as entirely independent; [TokenBucketRateLimiter] always does
// so and has no option to fuse them.
type RateLimiter interface {
	Component

	// AllowConnection is called once per accepted connection, before the
	// connection context is handed to the protocol server.
	AllowConnection(ctx context.Context, originAddr string) (bool, error)

	// AllowRequest is called once per dispatched request.
	AllowRequest(ctx context.Context, req *Request) (bool, error)

	// WrapWriter wraps an outgoing response body writer so that body
	// bytes flow through a byte-rate limit. Implementations that do not
	// limit bytes return w unchanged.
	WrapWriter(ctx context.Context, w io.Writer) io.Writer
}

// RequestLogger is the external collaborator contract for access
// logging (§4.10). Per §5's ordering guarantee, a given request's
// RequestStarted is always delivered before its RequestEnded, and
// RequestEnded fires exactly once even on connection abort.
type RequestLogger interface {
	Component

	// RequestStarted is called as soon as a request has been parsed and
	// assigned an id, before dispatch.
	RequestStarted(req *Request)

	// RequestEnded is called exactly once per request, whether it
	// completed normally or the connection aborted. errorCodes is
	// non-empty when the response was not cleanly sent.
	RequestEnded(req *Request, statusCode int, errorCodes []string)
}
