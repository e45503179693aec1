// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhouse implements a configurable, reloadable, multi-endpoint
// HTTP/HTTPS/HTTP2 web server whose behavior is entirely defined by a
// user-supplied configuration tree: hostnames and their TLS material,
// services (rate limiters, request loggers), applications (request
// handlers), and endpoints (TCP listeners bound to a protocol).
//
// # Component hierarchy
//
// Every live piece of the system is a [Component]. Components are created
// from typed [ConfigRecord] values (built on [BaseConfig]), attached to a [ControlContext] that records
// their place in the tree, and driven through a fixed lifecycle by the
// framework: NEW -> INITIALIZED -> STARTED -> STOPPED (see [State]).
// A reload is a soft stop-then-start carrying isReload=true through both
// transitions. Named lookup by dotted path is available from the root
// context via [ControlContext.GetComponent].
//
// # Hostnames and routing
//
// [PathMap] is the ordered, wildcard-aware map used both by the
// [HostManager] (hostname -> TLS context, for SNI) and by each [Endpoint]
// (hostname+path -> [Application], for request dispatch). Both domains
// share the same [PathKey] trie with exact-beats-wildcard, longest-prefix
// semantics.
//
// # Endpoints
//
// An [Endpoint] is the protocol wrangler: it accepts TCP connections, optionally
// performs a TLS handshake using certificates from the [HostManager], and
// feeds the result to an HTTP/1.1 or HTTP/2 protocol server. Requests are
// wrapped as immutable [Request] values and dispatched through the
// endpoint's mount [PathMap] to an [Application]. Connection and session
// bookkeeping supports graceful shutdown with a bounded grace period.
//
// # Rate limiting
//
// [TokenBucket] is a monotonic-time flow limiter used for connection,
// request, and response-byte rate control, exposed to endpoints through
// the [RateLimiter] service interface and its reference implementation,
// [TokenBucketRateLimiter].
//
// # Observability
//
// All components log through the [Logger] interface (`with`/`event`/
// `newId`, see [Logger]), generalizing the teacher convention of accepting
// any structured-logging backend: both a [log/slog] adapter and a
// zerolog-backed adapter are provided. Errors carry a [Kind] from a fixed
// taxonomy that decides HTTP status mapping; the errClass log field is a
// separate label produced by an [ErrClassifier].
//
// # Out of scope
//
// The access-log file sink format and static file application internals
// are not provided here; they are reached only via interfaces
// ([RequestLogger], [Application]). Configuration loading ([LoadConfig],
// [LoadConfigFile], [LoadConfigURL]) and certificate generation (the
// [CertGenerator] interface, with [DefaultCertGenerator] producing
// self-signed certificates) are included.
package webhouse
