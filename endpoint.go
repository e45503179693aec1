// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Protocol is the wire protocol a [EndpointConfig] serves.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTP2 Protocol = "http2"
	ProtocolHTTPS Protocol = "https"
)

// MountConfig binds an [Application], identified by its component name,
// at a `//<host-pattern>/<path…>/` mount spec (§4.6).
type MountConfig struct {
	Application string
	At          string
}

// EndpointServices names the optional [RateLimiter]/[RequestLogger]
// components an endpoint consults.
type EndpointServices struct {
	RateLimiter   string
	RequestLogger string
}

// EndpointConfig configures an [Endpoint]: `{protocol, interface, port,
// hostnames, mounts, services}` per §4.5.
type EndpointConfig struct {
	BaseConfig

	Protocol  Protocol
	Interface string
	Port      int
	Hostnames []string
	Mounts    []MountConfig
	Services  EndpointServices

	// RequestTimeout bounds a single request's handling. Zero disables it.
	RequestTimeout time.Duration

	// HeadersTimeout bounds reading request headers. Zero means the
	// underlying protocol library's own default.
	HeadersTimeout time.Duration

	// GracePeriod bounds how long Stop waits for in-flight connections
	// to drain before force-closing them (§4.5 step 3). Defaults to 5s.
	GracePeriod time.Duration
}

// Validate implements [ConfigRecord].
func (c *EndpointConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	switch c.Protocol {
	case ProtocolHTTP, ProtocolHTTP2, ProtocolHTTPS:
	default:
		return NewError(KindConfiguration, "endpoint protocol must be one of http, http2, https", nil)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return NewError(KindConfiguration, "endpoint port out of range", nil)
	}
	if len(c.Hostnames) == 0 {
		return NewError(KindConfiguration, "endpoint requires at least one hostname pattern", nil)
	}
	if len(c.Mounts) == 0 {
		return NewError(KindConfiguration, "endpoint requires at least one mount", nil)
	}
	return nil
}

// Endpoint is the protocol wrangler (§4.5): it binds a TCP listener,
// wraps each accepted connection in a [Connection] context, runs it
// through an HTTP/1.1, HTTP/2 (h2c), or HTTPS (TLS+ALPN h2/http1.1)
// server, and dispatches requests through a [MountTable].
type Endpoint struct {
	NoopImpl
	*BaseComponent

	cfg       *EndpointConfig
	rt        *Runtime
	connFunc  *ConnectionFunc
	cancelWat *CancelWatchFunc
	reqIDGen  *RequestIDGenerator

	hostManager *HostManager

	mounts      *MountTable
	hostnames   *PathMap[struct{}]
	rateLimiter RateLimiter
	reqLogger   RequestLogger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	cancel   context.CancelFunc
	serveErr chan error
}

var _ Component = &Endpoint{}

// NewEndpoint returns a [*Endpoint] for cfg. hostManager supplies TLS
// material for the "https" protocol and is ignored otherwise (may be
// nil for "http"/"http2" endpoints).
func NewEndpoint(cfg *EndpointConfig, rt *Runtime, hostManager *HostManager) (*Endpoint, error) {
	if err := CheckClass(cfg.Class, "Endpoint"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rt == nil {
		rt = NewRuntime()
	}

	e := &Endpoint{
		cfg:         cfg,
		rt:          rt,
		cancelWat:   NewCancelWatchFunc(),
		reqIDGen:    NewRequestIDGenerator(rt.TimeNow),
		hostManager: hostManager,
		hostnames:   NewPathMap[struct{}](),
	}
	for _, h := range cfg.Hostnames {
		if err := e.hostnames.Add(ParseHostname(h), struct{}{}); err != nil {
			return nil, err
		}
	}
	mounts := NewMountTable()
	e.BaseComponent = NewBaseComponent("Endpoint", e)
	e.mounts = mounts
	return e, nil
}

// NewEndpointComponent is the [Constructor] registered for class
// "Endpoint". Note: unlike the other built-in classes, an Endpoint also
// needs a [*Runtime] and the tree's [*HostManager], which the
// [Registry]'s `func(ConfigRecord) (Component, error)` shape has no
// room for; [Warehouse] constructs endpoints directly via [NewEndpoint]
// rather than through the registry.
func NewEndpointComponent(cfg ConfigRecord) (Component, error) {
	return nil, NewError(KindConfiguration, "Endpoint is constructed directly by Warehouse, not via the class registry", nil)
}

// ImplInit resolves the endpoint's logger-backed [ConnectionFunc] now
// that the component context (and its scoped [Logger]) is available.
func (e *Endpoint) ImplInit(ctx *ControlContext) error {
	e.connFunc = NewConnectionFunc(e.rt, ctx.Logger())
	return nil
}

// ImplStart resolves mounted applications and optional services, binds
// the TCP listener, and begins serving (§4.5 step 1).
func (e *Endpoint) ImplStart(isReload bool) error {
	e.mounts = NewMountTable()
	for _, m := range e.cfg.Mounts {
		comp, err := e.Context().GetComponent(applicationPath(m.Application), "")
		if err != nil {
			return err
		}
		app, ok := comp.(Application)
		if !ok {
			return NewError(KindWrongClass, m.Application+" is not an Application", nil)
		}
		if err := e.mounts.Add(m.At, app); err != nil {
			return err
		}
	}

	if name := e.cfg.Services.RateLimiter; name != "" {
		comp, err := e.Context().GetComponent(servicePath(name), "")
		if err != nil {
			return err
		}
		rl, ok := comp.(RateLimiter)
		if !ok {
			return NewError(KindWrongClass, name+" is not a RateLimiter", nil)
		}
		e.rateLimiter = rl
	}
	if name := e.cfg.Services.RequestLogger; name != "" {
		comp, err := e.Context().GetComponent(servicePath(name), "")
		if err != nil {
			return err
		}
		rl, ok := comp.(RequestLogger)
		if !ok {
			return NewError(KindWrongClass, name+" is not a RequestLogger", nil)
		}
		e.reqLogger = rl
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Interface, e.cfg.Port)
	rawListener, err := net.Listen("tcp", addr)
	if err != nil {
		return NewError(KindTransport, "failed to bind "+addr, err)
	}

	acceptCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	wrapped := newConnectionListener(rawListener, acceptCtx, e.cancelWat, e.connFunc, e.rateLimiter)

	server := &http.Server{
		Handler:           http.HandlerFunc(e.serveHTTP),
		ReadHeaderTimeout: e.cfg.HeadersTimeout,
	}

	var listener net.Listener = wrapped
	switch e.cfg.Protocol {
	case ProtocolHTTPS:
		if e.hostManager == nil {
			cancel()
			rawListener.Close()
			return NewError(KindConfiguration, "https endpoint requires a host manager", nil)
		}
		tlsConfig := e.hostManager.TLSConfig()
		tlsConfig.NextProtos = []string{"h2", "http/1.1"}
		server.TLSConfig = tlsConfig
		if err := http2.ConfigureServer(server, &http2.Server{}); err != nil {
			cancel()
			rawListener.Close()
			return NewError(KindInternal, "failed to configure http2 over TLS", err)
		}
		listener = tlsListenerOver(wrapped, server.TLSConfig)
	case ProtocolHTTP2:
		server.Handler = h2c.NewHandler(http.HandlerFunc(e.serveHTTP), &http2.Server{})
	case ProtocolHTTP:
		// HTTP/1.1 only, no further configuration needed.
	}

	e.mu.Lock()
	e.listener = listener
	e.server = server
	e.serveErr = make(chan error, 1)
	e.mu.Unlock()

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.serveErr <- err
		}
		close(e.serveErr)
	}()

	return nil
}

// ImplStop stops accepting new connections and attempts a graceful
// close within the endpoint's grace period, force-closing any
// remaining connections afterward (§4.5 step 3). Per the §9 open
// question, both HTTP/1.1 and HTTP/2 force-close after the same grace
// deadline.
func (e *Endpoint) ImplStop(willReload bool) error {
	e.mu.Lock()
	server := e.server
	cancel := e.cancel
	grace := e.cfg.GracePeriod
	e.mu.Unlock()

	if server == nil {
		return nil
	}
	if grace <= 0 {
		grace = 5 * time.Second
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), grace)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	if cancel != nil {
		cancel()
	}
	if err != nil {
		server.Close()
	}
	return nil
}

// serveHTTP is the endpoint's top-level HTTP handler: it parses the
// request into webhouse's own [Request] shape, resolves the mount,
// dispatches to the [Application], and writes the response (§4.6).
func (e *Endpoint) serveHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}

	protocol := "http-1.1"
	if r.ProtoMajor == 2 {
		protocol = "http-2"
	}

	hostname := stripPort(r.Host)
	hostKey := ParseHostname(hostname)
	if _, ok := e.hostnames.Find(hostKey); !ok {
		e.writeResponse(w, textResponse(http.StatusBadRequest, "unknown host: "+hostname))
		return
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			e.writeResponse(w, textResponse(HTTPStatus(KindTransport), "failed to read request body"))
			return
		}
	}

	req := &Request{
		ID:           e.reqIDGen.Next(),
		EndpointAddr: fmt.Sprintf("%s:%d", e.cfg.Interface, e.cfg.Port),
		OriginAddr:   r.RemoteAddr,
		Protocol:     protocol,
		Method:       r.Method,
		Path:         r.URL.Path,
		Headers:      Header(r.Header),
		Host:         hostKey,
		Body:         body,
	}
	if r.ProtoMajor == 2 {
		scheme := "http"
		if e.cfg.Protocol == ProtocolHTTPS || r.TLS != nil {
			scheme = "https"
		}
		req.Pseudo = map[string]string{
			":method":    r.Method,
			":path":      r.URL.RequestURI(),
			":scheme":    scheme,
			":authority": r.Host,
		}
	}

	if e.rateLimiter != nil {
		allowed, err := e.rateLimiter.AllowRequest(ctx, req)
		if err != nil {
			e.writeResponse(w, textResponse(http.StatusInternalServerError, "rate limiter error"))
			return
		}
		if !allowed {
			e.writeResponse(w, textResponse(http.StatusTooManyRequests, "rate limited"))
			return
		}
	}

	if e.reqLogger != nil {
		e.reqLogger.RequestStarted(req)
	}

	resp, errorCodes := e.dispatch(ctx, req)

	if e.reqLogger != nil {
		e.reqLogger.RequestEnded(req, resp.StatusCode, errorCodes)
	}

	e.writeResponse(w, resp)
}

// dispatch resolves the mount and invokes the application, applying
// §4.6's failure semantics and the conditional-GET short-circuit (§6).
func (e *Endpoint) dispatch(ctx context.Context, req *Request) (*Response, []string) {
	app, dispatchInfo, err := e.mounts.Resolve(req.Host, req.Path)
	if err != nil {
		return textResponse(http.StatusBadRequest, "unknown host"), []string{"UnknownHost"}
	}

	resp, err := func() (resp *Response, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = NewError(KindInternal, fmt.Sprintf("handler panic: %v", r), nil)
			}
		}()
		return app.HandleRequest(ctx, req, dispatchInfo)
	}()

	if err != nil {
		if AsKindIs(err, KindTimeout) {
			return textResponse(http.StatusRequestTimeout, "request timeout"), []string{"Timeout"}
		}
		return textResponse(http.StatusInternalServerError, "internal error"), []string{"Internal"}
	}
	if resp == nil {
		return textResponse(http.StatusNotFound, "not found"), nil
	}
	return applyConditionalGet(req, resp), nil
}

// writeResponse emits resp, restoring classic header-name case for
// HTTP/1.1 (handled automatically by [net/http]'s writer) and wrapping
// the body writer through the rate limiter's byte-rate bucket, if any
// (§4.5's "wraps writers" clause).
func (e *Endpoint) writeResponse(w http.ResponseWriter, resp *Response) {
	for name, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) == 0 {
		return
	}
	var out io.Writer = w
	if e.rateLimiter != nil {
		out = e.rateLimiter.WrapWriter(context.Background(), w)
	}
	out.Write(resp.Body)
}

// stripPort removes a trailing ":port" from a host header value, if
// present.
func stripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}
	return host
}

// connectionListener wraps a [net.Listener] so that every accepted
// [net.Conn] is gated by the endpoint's rate limiter, watched for
// context cancellation, then wrapped in a logged [Connection] context,
// before being handed to the HTTP server (§4.5 step 2).
//
// The raw accept loop and the admission work run on separate
// goroutines: [http.Server.Serve] calls Accept from a single goroutine,
// serially, so any blocking admission check done inline there (the
// rate limiter's [TokenBucket.Grant] can suspend the caller for its
// full projected wait, §4.10) would serialize every connection's wait
// behind the one before it instead of running them concurrently.
// Decoupling the two means connection N+1's admission starts as soon
// as it is accepted off the socket, not once connection N's wait ends.
type connectionListener struct {
	net.Listener
	ctx         context.Context
	cancel      *CancelWatchFunc
	conn        *ConnectionFunc
	rateLimiter RateLimiter

	ready     chan acceptResult
	done      chan struct{}
	closeOnce sync.Once
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// newConnectionListener wraps listener and starts its background
// accept loop.
func newConnectionListener(listener net.Listener, ctx context.Context, cancel *CancelWatchFunc, conn *ConnectionFunc, rateLimiter RateLimiter) *connectionListener {
	l := &connectionListener{
		Listener:    listener,
		ctx:         ctx,
		cancel:      cancel,
		conn:        conn,
		rateLimiter: rateLimiter,
		ready:       make(chan acceptResult),
		done:        make(chan struct{}),
	}
	go l.acceptLoop()
	return l
}

// acceptLoop pulls raw connections off the socket as fast as the
// kernel offers them and spawns a goroutine per connection to run
// admission, so a slow admission never holds up the next accept.
func (l *connectionListener) acceptLoop() {
	for {
		raw, err := l.Listener.Accept()
		if err != nil {
			select {
			case l.ready <- acceptResult{err: err}:
			case <-l.done:
			}
			return
		}
		go l.admit(raw)
	}
}

// admit runs raw through the rate limiter, cancel-watch, and logging
// wrappers, delivering the result to Accept (or discarding it if the
// listener closed first).
func (l *connectionListener) admit(raw net.Conn) {
	if l.rateLimiter != nil {
		allowed, err := l.rateLimiter.AllowConnection(l.ctx, raw.RemoteAddr().String())
		if err != nil || !allowed {
			raw.Close()
			return
		}
	}
	watched, err := l.cancel.Call(l.ctx, raw)
	if err != nil {
		raw.Close()
		return
	}
	logged, err := l.conn.Call(l.ctx, watched)
	if err != nil {
		watched.Close()
		return
	}
	select {
	case l.ready <- acceptResult{conn: logged}:
	case <-l.done:
		logged.Close()
	}
}

// Accept implements [net.Listener]. Connections rejected by the
// endpoint's rate limiter (§4.10, testable scenario 4) are closed and
// never handed to the protocol server.
func (l *connectionListener) Accept() (net.Conn, error) {
	select {
	case res := <-l.ready:
		return res.conn, res.err
	case <-l.done:
		return nil, net.ErrClosed
	}
}

// Close implements [net.Listener], unblocking any goroutine waiting to
// deliver a connection through Accept.
func (l *connectionListener) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return l.Listener.Close()
}

// tlsListenerOver wraps listener so that accepted connections perform
// a TLS server handshake (lazily, on first Read/Write) before being
// handed to the HTTP server, propagating the already-wrapped
// [Connection] context through the handshake per §4.5 step 2.
func tlsListenerOver(listener net.Listener, config *tls.Config) net.Listener {
	return tls.NewListener(listener, config)
}

// applicationPath builds the dotted name path under which an
// application registered under name lives in the component tree (see
// [Warehouse]).
func applicationPath(name string) []string {
	return []string{"applications", name}
}

// servicePath builds the dotted name path under which a service
// registered under name lives in the component tree.
func servicePath(name string) []string {
	return []string{"services", name}
}
