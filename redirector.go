// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"context"
	"net/http"
)

// defaultRedirectMethods are the methods a [Redirector] answers when
// AcceptedMethods is not configured.
var defaultRedirectMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost,
	http.MethodPut, http.MethodDelete, http.MethodPatch,
}

// RedirectorConfig configures a [Redirector]: the target prefix,
// redirect status, and optional Cache-Control header (§4.6).
type RedirectorConfig struct {
	BaseConfig

	// Target is the base URL every matched request is redirected under.
	Target string

	// StatusCode is the redirect status, in [300,399]. Defaults to 301.
	StatusCode int

	// CacheControl, if non-empty, is emitted as the response's
	// Cache-Control header.
	CacheControl string

	// AcceptedMethods restricts which methods the redirector answers;
	// empty selects [defaultRedirectMethods].
	AcceptedMethods []string
}

// Validate implements [ConfigRecord].
func (c *RedirectorConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	if c.Target == "" {
		return NewError(KindConfiguration, "Redirector requires a target", nil)
	}
	if c.StatusCode != 0 && (c.StatusCode < 300 || c.StatusCode > 399) {
		return NewError(KindConfiguration, "Redirector statusCode must be in [300,399]", nil)
	}
	return nil
}

// Redirector answers every matched request with a redirect to
// `<target><dispatch.extra path-string>` (§4.6).
type Redirector struct {
	NoopImpl
	*BaseComponent

	target       string
	statusCode   int
	cacheControl string
	methods      map[string]bool
}

var _ Component = &Redirector{}
var _ Application = &Redirector{}

// NewRedirector returns a [*Redirector] for cfg.
func NewRedirector(cfg *RedirectorConfig) (*Redirector, error) {
	if err := CheckClass(cfg.Class, "Redirector"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	statusCode := mergeDefault(cfg.StatusCode, http.StatusMovedPermanently)
	methodList := cfg.AcceptedMethods
	if len(methodList) == 0 {
		methodList = defaultRedirectMethods
	}
	methods := make(map[string]bool, len(methodList))
	for _, m := range methodList {
		methods[m] = true
	}

	r := &Redirector{
		target:       cfg.Target,
		statusCode:   statusCode,
		cacheControl: cfg.CacheControl,
		methods:      methods,
	}
	r.BaseComponent = NewBaseComponent("Redirector", r)
	return r, nil
}

// NewRedirectorComponent is the [Constructor] registered for class
// "Redirector".
func NewRedirectorComponent(cfg ConfigRecord) (Component, error) {
	rCfg, ok := cfg.(*RedirectorConfig)
	if !ok {
		return nil, NewError(KindConfiguration, "Redirector requires a *RedirectorConfig", nil)
	}
	return NewRedirector(rCfg)
}

// HandleRequest implements [Application].
func (r *Redirector) HandleRequest(ctx context.Context, req *Request, dispatch Dispatch) (*Response, error) {
	if !r.methods[req.Method] {
		return textResponse(http.StatusMethodNotAllowed, "method not allowed"), nil
	}
	location := joinPath(r.target, dispatch.ExtraString())
	resp := NewResponse(r.statusCode, nil)
	resp.Headers.Set("Location", location)
	if r.cacheControl != "" {
		resp.Headers.Set("Cache-Control", r.cacheControl)
	}
	return resp, nil
}
