// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "context"

// SerialRouterConfig configures a [SerialRouter]: an ordered chain of
// application names, resolved against the root component context at
// start.
type SerialRouterConfig struct {
	BaseConfig

	// Applications is the ordered list of application names to try.
	Applications []string
}

// Validate implements [ConfigRecord].
func (c *SerialRouterConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	if len(c.Applications) == 0 {
		return NewError(KindConfiguration, "SerialRouter requires at least one application", nil)
	}
	return nil
}

// SerialRouter invokes a fixed chain of applications in order, returning
// the first non-nil result (§4.6). If every application returns nil, so
// does the router.
type SerialRouter struct {
	NoopImpl
	*BaseComponent

	cfg   *SerialRouterConfig
	chain []Application
}

var _ Component = &SerialRouter{}
var _ Application = &SerialRouter{}

// NewSerialRouter returns a [*SerialRouter] for cfg. App names are not
// resolved until [SerialRouter.ImplStart].
func NewSerialRouter(cfg *SerialRouterConfig) (*SerialRouter, error) {
	if err := CheckClass(cfg.Class, "SerialRouter"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sr := &SerialRouter{cfg: cfg}
	sr.BaseComponent = NewBaseComponent("SerialRouter", sr)
	return sr, nil
}

// NewSerialRouterComponent is the [Constructor] registered for class
// "SerialRouter".
func NewSerialRouterComponent(cfg ConfigRecord) (Component, error) {
	srCfg, ok := cfg.(*SerialRouterConfig)
	if !ok {
		return nil, NewError(KindConfiguration, "SerialRouter requires a *SerialRouterConfig", nil)
	}
	return NewSerialRouter(srCfg)
}

// ImplStart resolves every configured app name against the root
// component context, in configured order.
func (sr *SerialRouter) ImplStart(isReload bool) error {
	chain := make([]Application, 0, len(sr.cfg.Applications))
	for _, appName := range sr.cfg.Applications {
		comp, err := sr.Context().GetComponent(applicationPath(appName), "")
		if err != nil {
			return err
		}
		app, ok := comp.(Application)
		if !ok {
			return NewError(KindWrongClass, appName+" is not an Application", nil)
		}
		chain = append(chain, app)
	}
	sr.chain = chain
	return nil
}

// HandleRequest implements [Application]: tries each chained
// application in order, returning the first non-nil response.
func (sr *SerialRouter) HandleRequest(ctx context.Context, req *Request, dispatch Dispatch) (*Response, error) {
	for _, app := range sr.chain {
		resp, err := app.HandleRequest(ctx, req, dispatch)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, nil
}
