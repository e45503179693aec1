// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// freePort finds an ephemeral TCP port by binding and immediately
// releasing it; there is an inherent (and in practice negligible) race
// with whatever binds the port next.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func buildTestWarehouse(t *testing.T, port int) *Warehouse {
	t.Helper()
	cfg := &WarehouseConfig{
		Applications: []ComponentSpec{
			{Name: "greeter", Class: "TestApp"},
		},
		Endpoints: []*EndpointConfig{
			{
				BaseConfig: BaseConfig{Name: "e1"},
				Protocol:   ProtocolHTTP,
				Interface:  "127.0.0.1",
				Port:       port,
				Hostnames:  []string{"example.test"},
				Mounts:     []MountConfig{{Application: "greeter", At: "//*/"}},
			},
		},
	}
	registry := NewRegistry()
	require.NoError(t, registry.Register("TestApp", func(ConfigRecord) (Component, error) {
		return newTestApp("hello"), nil
	}))

	w, err := NewWarehouse(cfg, registry, nil, DefaultLogger())
	require.NoError(t, err)
	return w
}

func TestEndpointServesPlainHTTP(t *testing.T) {
	port := freePort(t)
	w := buildTestWarehouse(t, port)
	require.NoError(t, w.Start(false))
	defer func() { require.NoError(t, w.Stop(false)) }()

	waitForDial(t, port)

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/", port), nil)
	require.NoError(t, err)
	req.Host = "example.test"

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
}

func TestEndpointRejectsUnknownHost(t *testing.T) {
	port := freePort(t)
	w := buildTestWarehouse(t, port)
	require.NoError(t, w.Start(false))
	defer func() { require.NoError(t, w.Stop(false)) }()

	waitForDial(t, port)

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/", port), nil)
	require.NoError(t, err)
	req.Host = "other.test"

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// waitForDial retries a TCP dial for up to a second, as a readiness check
// that the endpoint's listener (bound before Start returns) accepts.
func waitForDial(t *testing.T, port int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("endpoint never started listening")
}
