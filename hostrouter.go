// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "context"

// HostRouterConfig configures a [HostRouter]: a hostname pattern to
// application-name mapping, resolved against the root component
// context at start.
type HostRouterConfig struct {
	BaseConfig

	// Hosts maps a hostname pattern (as accepted by [ParseHostname]) to
	// the name of a previously-registered [Application] component.
	Hosts map[string]string
}

// Validate implements [ConfigRecord].
func (c *HostRouterConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	if len(c.Hosts) == 0 {
		return NewError(KindConfiguration, "HostRouter requires at least one host mapping", nil)
	}
	return nil
}

// HostRouter dispatches by the request's hostname to one of a set of
// named applications (§4.6). Each configured app name is resolved once,
// at start, via the root component context.
type HostRouter struct {
	NoopImpl
	*BaseComponent

	cfg   *HostRouterConfig
	hosts *PathMap[Application]
}

var _ Component = &HostRouter{}
var _ Application = &HostRouter{}

// NewHostRouter returns a [*HostRouter] for cfg. App names are not
// resolved until [HostRouter.ImplStart].
func NewHostRouter(cfg *HostRouterConfig) (*HostRouter, error) {
	if err := CheckClass(cfg.Class, "HostRouter"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hr := &HostRouter{cfg: cfg, hosts: NewPathMap[Application]()}
	hr.BaseComponent = NewBaseComponent("HostRouter", hr)
	return hr, nil
}

// NewHostRouterComponent is the [Constructor] registered for class
// "HostRouter".
func NewHostRouterComponent(cfg ConfigRecord) (Component, error) {
	hrCfg, ok := cfg.(*HostRouterConfig)
	if !ok {
		return nil, NewError(KindConfiguration, "HostRouter requires a *HostRouterConfig", nil)
	}
	return NewHostRouter(hrCfg)
}

// ImplStart resolves every configured app name against the root
// component context, per the component framework's ImplStart hook.
func (hr *HostRouter) ImplStart(isReload bool) error {
	hosts := NewPathMap[Application]()
	for pattern, appName := range hr.cfg.Hosts {
		comp, err := hr.Context().GetComponent(applicationPath(appName), "")
		if err != nil {
			return err
		}
		app, ok := comp.(Application)
		if !ok {
			return NewError(KindWrongClass, appName+" is not an Application", nil)
		}
		if err := hosts.Add(ParseHostname(pattern), app); err != nil {
			return err
		}
	}
	hr.hosts = hosts
	return nil
}

// HandleRequest implements [Application]: selects the application bound
// to the request's hostname, or returns nil (⇒ 404 at the top level) if
// none matches.
func (hr *HostRouter) HandleRequest(ctx context.Context, req *Request, dispatch Dispatch) (*Response, error) {
	result, ok := hr.hosts.Find(req.Host)
	if !ok {
		return nil, nil
	}
	return result.Value.HandleRequest(ctx, req, dispatch)
}
