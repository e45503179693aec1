// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// rawComponentSpec is the YAML-level shape of a [ComponentSpec]: its
// Config field is decoded a second time, into the concrete config type
// named by Class, once the class is known. Fetching/parsing
// configuration is explicitly out of spec.md's scope (§2.3); this is
// the CLI's own minimal loader, only as complete as `cmd/webhouse`
// needs to be runnable.
type rawComponentSpec struct {
	Name   string    `yaml:"name"`
	Class  string    `yaml:"class"`
	Config yaml.Node `yaml:"config"`
}

// rawWarehouseConfig is the top-level YAML document shape accepted by
// `--config`/`--config-url` (§6 External Interfaces).
type rawWarehouseConfig struct {
	Hosts        *HostManagerConfig `yaml:"hosts"`
	Services     []rawComponentSpec `yaml:"services"`
	Applications []rawComponentSpec `yaml:"applications"`
	Endpoints    []*EndpointConfig  `yaml:"endpoints"`
}

// configConstructors maps a class name to a zero-value factory for its
// concrete config type, so rawComponentSpec.Config can be decoded into
// the right Go type before being handed to the [Registry].
var configConstructors = map[string]func() ConfigRecord{
	"HostRouter":             func() ConfigRecord { return &HostRouterConfig{} },
	"SerialRouter":           func() ConfigRecord { return &SerialRouterConfig{} },
	"Redirector":             func() ConfigRecord { return &RedirectorConfig{} },
	"TokenBucketRateLimiter": func() ConfigRecord { return &TokenBucketRateLimiterConfig{} },
	"MetricsRequestLogger":   func() ConfigRecord { return &MetricsRequestLoggerConfig{} },
}

// RegisterConfigClass lets a caller extend [configConstructors] with a
// custom class's zero-value factory, so `LoadConfig` can decode it too.
func RegisterConfigClass(class string, zero func() ConfigRecord) {
	configConstructors[class] = zero
}

// decodeSpecs converts a slice of [rawComponentSpec] into [ComponentSpec],
// decoding each Config node into the concrete type registered for its
// Class, with earlyErrors controlling whether the first decode failure
// aborts immediately (false) or is logged on logger and the record skipped
// (true), per the `--early-errors` flag (§4 Supplemented Features).
func decodeSpecs(raws []rawComponentSpec, earlyErrors bool, logger Logger) ([]ComponentSpec, error) {
	out := make([]ComponentSpec, 0, len(raws))
	for _, raw := range raws {
		zero, ok := configConstructors[raw.Class]
		if !ok {
			err := NewError(KindConfiguration, "no config type registered for class "+raw.Class, nil)
			if earlyErrors {
				logger.Event("configDecodeError", "class", raw.Class, "err", err)
				continue
			}
			return nil, err
		}
		cfg := zero()
		if err := raw.Config.Decode(cfg); err != nil {
			err = NewError(KindConfiguration, "failed to decode config for "+raw.Name, err)
			if earlyErrors {
				logger.Event("configDecodeError", "name", raw.Name, "err", err)
				continue
			}
			return nil, err
		}
		out = append(out, ComponentSpec{Name: raw.Name, Class: raw.Class, Config: cfg})
	}
	return out, nil
}

// LoadConfig reads and parses a YAML [WarehouseConfig] from data.
// earlyErrors controls per-record vs fail-fast validation reporting.
func LoadConfig(data []byte, earlyErrors bool, logger Logger) (*WarehouseConfig, error) {
	if logger == nil {
		logger = DefaultLogger()
	}
	var raw rawWarehouseConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, NewError(KindConfiguration, "failed to parse configuration", err)
	}

	services, err := decodeSpecs(raw.Services, earlyErrors, logger)
	if err != nil {
		return nil, err
	}
	applications, err := decodeSpecs(raw.Applications, earlyErrors, logger)
	if err != nil {
		return nil, err
	}

	return &WarehouseConfig{
		Hosts:        raw.Hosts,
		Services:     services,
		Applications: applications,
		Endpoints:    raw.Endpoints,
	}, nil
}

// LoadConfigFile reads path from the local filesystem and parses it via
// [LoadConfig].
func LoadConfigFile(path string, earlyErrors bool, logger Logger) (*WarehouseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewError(KindConfiguration, "failed to read config file "+path, err)
	}
	return LoadConfig(data, earlyErrors, logger)
}

// LoadConfigURL fetches url over HTTP(S) and parses the response via
// [LoadConfig].
func LoadConfigURL(url string, earlyErrors bool, logger Logger) (*WarehouseConfig, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, NewError(KindConfiguration, "failed to fetch config url "+url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, NewError(KindConfiguration, fmt.Sprintf("config url %s returned status %d", url, resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindConfiguration, "failed to read config url response", err)
	}
	return LoadConfig(data, earlyErrors, logger)
}
