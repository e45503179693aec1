// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "crypto/tls"

// HostManagerConfig configures a [HostManager]: the set of hostname
// groups it resolves to TLS contexts.
type HostManagerConfig struct {
	BaseConfig

	Hosts []*HostItemConfig
}

// Validate implements [ConfigRecord].
func (c *HostManagerConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	for _, h := range c.Hosts {
		if err := h.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HostManager resolves a requested hostname (SNI, or the request's
// `host`/`:authority`) to a [*HostItem], per §4.4. Internally a PathMap
// keyed by reversed-label hostname [PathKey]s so `*.example.com`-style
// entries and the bare `*` universal entry both resolve by the same
// best-match rule request routing uses.
type HostManager struct {
	NoopImpl
	*BaseComponent

	certGen CertGenerator
	hosts   *PathMap[*HostItem]
}

var _ Component = &HostManager{}

// NewHostManager returns a [*HostManager] for cfg. certGen is used for
// any self-signed entries; nil selects [DefaultCertGenerator].
func NewHostManager(cfg *HostManagerConfig, certGen CertGenerator) (*HostManager, error) {
	if err := CheckClass(cfg.Class, "HostManager"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if certGen == nil {
		certGen = DefaultCertGenerator()
	}

	hm := &HostManager{certGen: certGen, hosts: NewPathMap[*HostItem]()}
	hm.BaseComponent = NewBaseComponent("HostManager", hm)

	for _, entryCfg := range cfg.Hosts {
		item, err := newHostItem(entryCfg, certGen)
		if err != nil {
			return nil, err
		}
		for _, hostname := range entryCfg.Hostnames {
			key := ParseHostname(hostname)
			if err := hm.hosts.Add(key, item); err != nil {
				return nil, err
			}
		}
	}
	return hm, nil
}

// NewHostManagerComponent is the [Constructor] registered for class
// "HostManager".
func NewHostManagerComponent(cfg ConfigRecord) (Component, error) {
	hmCfg, ok := cfg.(*HostManagerConfig)
	if !ok {
		return nil, NewError(KindConfiguration, "HostManager requires a *HostManagerConfig", nil)
	}
	return NewHostManager(hmCfg, nil)
}

// FindItem resolves name (a concrete hostname, never a pattern) to its
// best-match [*HostItem] using [PathMap.Find]'s exact-beats-wildcard,
// longest-wildcard-prefix-wins rule. Fails with [ErrUnknownHost] if no
// entry (not even the universal `*`) matches.
func (hm *HostManager) FindItem(name string) (*HostItem, error) {
	result, ok := hm.hosts.Find(ParseHostname(name))
	if !ok {
		return nil, NewError(KindUnknownHost, "no host entry matches "+name, nil)
	}
	return result.Value, nil
}

// TLSConfig returns a [*tls.Config] whose GetCertificate callback
// resolves SNI names via [HostManager.FindItem], the source of
// `getSecureServerOptions` for TLS-protocol endpoints (§4.4).
func (hm *HostManager) TLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			item, err := hm.FindItem(hello.ServerName)
			if err != nil {
				return nil, err
			}
			return item.Certificate()
		},
	}
}
