// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"time"
)

// ComponentSpec names one registry-built service or application entry:
// the name it is bound under (for [applicationPath]/[servicePath]
// lookups), the registered class to build, and its typed configuration.
type ComponentSpec struct {
	Name   string
	Class  string
	Config ConfigRecord
}

// WarehouseConfig is the top-level configuration (§6 External
// Interfaces): hosts, services, applications, and endpoints.
type WarehouseConfig struct {
	Hosts        *HostManagerConfig
	Services     []ComponentSpec
	Applications []ComponentSpec
	Endpoints    []*EndpointConfig
}

// container is a plain grouping [Component] with no lifecycle work of
// its own: [BaseComponent]'s default concurrent-children-then-self
// discipline is exactly what a same-kind group of services,
// applications, or endpoints wants.
type container struct {
	NoopImpl
	*BaseComponent
}

func newContainer(class string) *container {
	c := &container{}
	c.BaseComponent = NewBaseComponent(class, c)
	return c
}

// Warehouse is the top-level root component (§2, §4.9): it constructs
// the host manager, service manager, application manager, and endpoint
// manager from configuration and starts/stops them in the ordering §5
// mandates (services, then applications, then endpoints; reverse for
// stop, with a bounded overlap between endpoint-stop and
// application-stop).
type Warehouse struct {
	NoopImpl
	*BaseComponent

	hosts        *HostManager
	services     *container
	applications *container
	endpoints    *container

	stopOverlap time.Duration
}

var _ Component = &Warehouse{}

// NewWarehouse builds the full component tree from cfg: a
// [*HostManager], a services [container], an applications [container],
// and an endpoints [container]. registry resolves the Class field of
// each [ComponentSpec]; rt and logger are the process-wide ambient
// dependencies threaded through every endpoint.
func NewWarehouse(cfg *WarehouseConfig, registry *Registry, rt *Runtime, logger Logger) (*Warehouse, error) {
	if rt == nil {
		rt = NewRuntime()
	}
	if logger == nil {
		logger = DefaultLogger()
	}
	if registry == nil {
		registry = DefaultRegistry()
	}

	w := &Warehouse{stopOverlap: 250 * time.Millisecond}
	w.BaseComponent = NewBaseComponent("Warehouse", w)
	rootCtx := NewRootContext(logger)
	if err := w.BaseComponent.Init(rootCtx); err != nil {
		return nil, err
	}

	hostManagerCfg := cfg.Hosts
	if hostManagerCfg == nil {
		hostManagerCfg = &HostManagerConfig{}
	}
	hosts, err := NewHostManager(hostManagerCfg, nil)
	if err != nil {
		return nil, err
	}
	if err := w.AddChild(hosts, "hosts"); err != nil {
		return nil, err
	}
	w.hosts = hosts

	services := newContainer("ServiceContainer")
	if err := w.AddChild(services, "services"); err != nil {
		return nil, err
	}
	w.services = services
	for _, spec := range cfg.Services {
		comp, err := registry.Build(spec.Class, spec.Config)
		if err != nil {
			return nil, err
		}
		if err := services.AddChild(comp, spec.Name); err != nil {
			return nil, err
		}
	}

	applications := newContainer("ApplicationContainer")
	if err := w.AddChild(applications, "applications"); err != nil {
		return nil, err
	}
	w.applications = applications
	for _, spec := range cfg.Applications {
		comp, err := registry.Build(spec.Class, spec.Config)
		if err != nil {
			return nil, err
		}
		if err := applications.AddChild(comp, spec.Name); err != nil {
			return nil, err
		}
	}

	endpoints := newContainer("EndpointContainer")
	if err := w.AddChild(endpoints, "endpoints"); err != nil {
		return nil, err
	}
	w.endpoints = endpoints
	for _, epCfg := range cfg.Endpoints {
		ep, err := NewEndpoint(epCfg, rt, hosts)
		if err != nil {
			return nil, err
		}
		if err := endpoints.AddChild(ep, epCfg.Name); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// DefaultRegistry returns a [*Registry] with every built-in class
// ("HostRouter", "SerialRouter", "Redirector",
// "TokenBucketRateLimiter", "MetricsRequestLogger") registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("HostRouter", NewHostRouterComponent)
	_ = r.Register("SerialRouter", NewSerialRouterComponent)
	_ = r.Register("Redirector", NewRedirectorComponent)
	_ = r.Register("TokenBucketRateLimiter", NewTokenBucketRateLimiterComponent)
	_ = r.Register("MetricsRequestLogger", NewMetricsRequestLoggerComponent)
	return r
}

// Start overrides [BaseComponent.Start]'s default concurrent-children
// discipline with the strict ordering §5 requires between groups:
// hosts, then services, then applications, then endpoints. Start is
// still concurrent within each group (the group container's own
// BaseComponent.Start handles that).
func (w *Warehouse) Start(isReload bool) error {
	for _, c := range []Component{w.hosts, w.services, w.applications, w.endpoints} {
		if err := c.Start(isReload); err != nil {
			return err
		}
	}
	return nil
}

// Stop overrides [BaseComponent.Stop] to allow endpoint-stop and
// application-stop to overlap within [Warehouse.stopOverlap] (default
// 250ms), after which services-stop (and host-manager-stop) proceeds
// regardless (§5).
func (w *Warehouse) Stop(willReload bool) error {
	type result struct {
		from string
		err  error
	}
	results := make(chan result, 2)
	go func() { results <- result{"endpoints", w.endpoints.Stop(willReload)} }()
	go func() { results <- result{"applications", w.applications.Stop(willReload)} }()

	var firstErr error
	received := 0
	timeout := time.After(w.stopOverlap)
loop:
	for received < 2 {
		select {
		case r := <-results:
			received++
			if r.err != nil && firstErr == nil {
				firstErr = r.err
			}
		case <-timeout:
			// Grace period elapsed; proceed regardless. Any late result is
			// drained and logged, never blocking the remaining stop steps.
			go func(remaining int) {
				for i := 0; i < remaining; i++ {
					if r := <-results; r.err != nil {
						w.Context().Logger().Event("stopOverlapTimeout", "component", r.from, "err", r.err)
					}
				}
			}(2 - received)
			break loop
		}
	}

	servicesErr := w.services.Stop(willReload)
	hostsErr := w.hosts.Stop(willReload)

	if firstErr != nil {
		return firstErr
	}
	if servicesErr != nil {
		return servicesErr
	}
	return hostsErr
}

// Reload performs a soft stop-then-start sharing the same
// configuration source (§1, GLOSSARY "Reload"): isReload=true is
// threaded through both halves.
func (w *Warehouse) Reload() error {
	if err := w.Stop(true); err != nil {
		return err
	}
	return w.Start(true)
}
