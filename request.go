// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"net/textproto"
	"strings"
)

// Header is a case-insensitive multi-value header set, preserving
// multiple values for a single name (e.g. repeated Set-Cookie) the way
// [net/http.Header] does, keyed by [textproto.CanonicalMIMEHeaderKey].
type Header map[string][]string

// NewHeader returns an empty [Header].
func NewHeader() Header { return make(Header) }

// Get returns the first value for key, or "" if absent.
func (h Header) Get(key string) string {
	v := h[textproto.CanonicalMIMEHeaderKey(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns every value for key, in insertion order.
func (h Header) Values(key string) []string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

// Add appends value to key's value list.
func (h Header) Add(key, value string) {
	k := textproto.CanonicalMIMEHeaderKey(key)
	h[k] = append(h[k], value)
}

// Set replaces key's value list with a single value.
func (h Header) Set(key, value string) {
	h[textproto.CanonicalMIMEHeaderKey(key)] = []string{value}
}

// Del removes key entirely.
func (h Header) Del(key string) {
	delete(h, textproto.CanonicalMIMEHeaderKey(key))
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Request is an immutable view over a parsed HTTP request (§3), built by
// the endpoint's protocol wrangler from the low-level protocol-library
// request plus the accepted [*Connection]'s context and an allocated
// request id.
type Request struct {
	// ID is the request's unique correlation id, minted by
	// [RequestIDGenerator.Next].
	ID string

	// EndpointAddr is the listening address (interface:port) that
	// accepted the underlying connection.
	EndpointAddr string

	// OriginAddr is the client's remote address, per
	// [Connection.OriginAddr].
	OriginAddr string

	// Protocol is the wire protocol that produced this request:
	// "http-1.1" or "http-2".
	Protocol string

	// Method is the HTTP request method.
	Method string

	// Path is the request target's path component, unparsed (the
	// caller splits it into a [PathKey] via [ParsePath]).
	Path string

	// Pseudo holds HTTP/2 pseudo-headers (":method", ":path", ":scheme",
	// ":authority"); empty for HTTP/1.1 requests.
	Pseudo map[string]string

	// Headers are the request headers, case-insensitive.
	Headers Header

	// Host is the request's hostname, parsed to a reversed-label
	// [PathKey] via [ParseHostname].
	Host PathKey

	// Body is the request body reader, or nil if none.
	Body []byte
}

// HostnameString returns the request's dotted hostname, as parsed into
// Host.
func (r *Request) HostnameString() string {
	return r.Host.HostString()
}

// Response is what an [Application] returns for a handled request:
// status, headers, and body. A nil *Response from [Application.HandleRequest]
// means "not handled, try next" (§4.6).
type Response struct {
	StatusCode int
	Headers    Header
	Body       []byte
}

// NewResponse returns a [*Response] with the given status and body and
// an empty header set.
func NewResponse(statusCode int, body []byte) *Response {
	return &Response{StatusCode: statusCode, Headers: NewHeader(), Body: body}
}

// textResponse is a small helper used by the built-in routing
// applications (§4.6) to produce plain-text error/redirect bodies.
func textResponse(statusCode int, text string) *Response {
	resp := NewResponse(statusCode, []byte(text))
	resp.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	return resp
}

// joinPath concatenates a target base (e.g. a Redirector's configured
// target) with a dispatch extra path, using exactly one slash between
// them regardless of how either side is already slashed.
func joinPath(base, extra string) string {
	base = strings.TrimSuffix(base, "/")
	extra = strings.TrimPrefix(extra, "/")
	if extra == "" {
		return base
	}
	return base + "/" + extra
}
