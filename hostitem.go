// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"crypto/tls"

	"github.com/bassosimone/runtimex"
)

// HostItemConfig configures one entry of a [HostManager]: a group of
// hostnames sharing either a loaded PEM certificate/key pair or a
// request to self-sign.
type HostItemConfig struct {
	BaseConfig

	// Hostnames is the set of hostname patterns this entry serves,
	// parsed with [ParseHostname] when bound into the manager's PathMap.
	// Must be non-empty.
	Hostnames []string

	// Certificate and PrivateKey are a PEM certificate/key pair. Mutually
	// exclusive with SelfSigned.
	Certificate string
	PrivateKey  string

	// SelfSigned requests a lazily generated, cached self-signed
	// certificate instead of a loaded one.
	SelfSigned bool
}

// Validate implements [ConfigRecord].
func (c *HostItemConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	if len(c.Hostnames) == 0 {
		return NewError(KindConfiguration, "host entry requires at least one hostname", nil)
	}
	hasPEM := c.Certificate != "" || c.PrivateKey != ""
	if hasPEM == c.SelfSigned {
		return NewError(KindConfiguration,
			"host entry must set exactly one of {certificate+privateKey, selfSigned}", nil)
	}
	if hasPEM && (c.Certificate == "" || c.PrivateKey == "") {
		return NewError(KindConfiguration, "host entry certificate and privateKey must both be set", nil)
	}
	return nil
}

// HostItem is a validated [HostItemConfig] plus its [*tls.Certificate]
// source: either already loaded, or a [future] that self-signs on first
// demand and caches the result for the item's lifetime (§4.4).
type HostItem struct {
	hostnames []string
	loaded    *tls.Certificate
	selfSign  *future[*tls.Certificate]
}

// newHostItem builds a [*HostItem] from a validated config entry.
// certGen is only consulted for self-signed entries.
func newHostItem(cfg *HostItemConfig, certGen CertGenerator) (*HostItem, error) {
	runtimex.Assert(cfg != nil)

	if cfg.SelfSigned {
		primary := cfg.Hostnames[0]
		alts := cfg.Hostnames
		return &HostItem{
			hostnames: cfg.Hostnames,
			selfSign: newFuture(func() (*tls.Certificate, error) {
				certPEM, keyPEM, err := certGen.Generate(primary, alts)
				if err != nil {
					return nil, err
				}
				cert, err := tls.X509KeyPair(certPEM, keyPEM)
				if err != nil {
					return nil, NewError(KindConfiguration, "self-signed certificate is malformed", err)
				}
				return &cert, nil
			}),
		}, nil
	}

	cert, err := tls.X509KeyPair([]byte(cfg.Certificate), []byte(cfg.PrivateKey))
	if err != nil {
		return nil, NewError(KindConfiguration, "invalid certificate/privateKey pair", err)
	}
	return &HostItem{hostnames: cfg.Hostnames, loaded: &cert}, nil
}

// Certificate returns the item's [*tls.Certificate], triggering
// self-sign generation (once, shared across concurrent callers) on the
// first call for a self-signed item.
func (h *HostItem) Certificate() (*tls.Certificate, error) {
	if h.loaded != nil {
		return h.loaded, nil
	}
	return h.selfSign.Get()
}

// Hostnames returns the patterns this item was configured with.
func (h *HostItem) Hostnames() []string {
	return append([]string(nil), h.hostnames...)
}
