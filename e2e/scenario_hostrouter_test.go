// SPDX-License-Identifier: GPL-3.0-or-later

package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webhouse/webhouse"
)

// tagApp answers every request with a fixed body, used to distinguish
// which branch of a router a request reached.
type tagApp struct {
	webhouse.NoopImpl
	*webhouse.BaseComponent
	tag string
}

func newTagApp(class, tag string) *tagApp {
	a := &tagApp{tag: tag}
	a.BaseComponent = webhouse.NewBaseComponent(class, a)
	return a
}

func (a *tagApp) HandleRequest(ctx context.Context, req *webhouse.Request, dispatch webhouse.Dispatch) (*webhouse.Response, error) {
	return webhouse.NewResponse(http.StatusOK, []byte(a.tag)), nil
}

func registerTagApp(registry *webhouse.Registry, class, tag string) {
	Expect(registry.Register(class, func(cfg webhouse.ConfigRecord) (webhouse.Component, error) {
		return newTagApp(class, tag), nil
	})).To(Succeed())
}

var _ = Describe("HostRouter", func() {
	It("dispatches by request Host", func() {
		port := freePort()
		registry := webhouse.NewRegistry()
		registerTagApp(registry, "AppA", "A")
		registerTagApp(registry, "AppB", "B")
		Expect(registry.Register("HostRouter", webhouse.NewHostRouterComponent)).To(Succeed())

		cfg := &webhouse.WarehouseConfig{
			Applications: []webhouse.ComponentSpec{
				{Name: "a", Class: "AppA"},
				{Name: "b", Class: "AppB"},
				{Name: "router", Class: "HostRouter", Config: &webhouse.HostRouterConfig{
					Hosts: map[string]string{
						"a.test":   "a",
						"*.b.test": "b",
					},
				}},
			},
			Endpoints: []*webhouse.EndpointConfig{
				{
					BaseConfig: webhouse.BaseConfig{Name: "e1"},
					Protocol:   webhouse.ProtocolHTTP,
					Interface:  "127.0.0.1",
					Port:       port,
					Hostnames:  []string{"a.test", "*.b.test", "c.test"},
					Mounts: []webhouse.MountConfig{
						{Application: "router", At: "//*/"},
					},
				},
			},
		}

		wh, err := webhouse.NewWarehouse(cfg, registry, nil, webhouse.DefaultLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(wh.Start(false)).To(Succeed())
		defer func() { Expect(wh.Stop(false)).To(Succeed()) }()
		waitForDial(port)

		client := &http.Client{Timeout: 2 * time.Second}
		get := func(host string) (*http.Response, string) {
			req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/", port), nil)
			Expect(err).NotTo(HaveOccurred())
			req.Host = host
			resp, err := client.Do(req)
			Expect(err).NotTo(HaveOccurred())
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			Expect(err).NotTo(HaveOccurred())
			return resp, string(body)
		}

		resp, body := get("a.test")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).To(Equal("A"))

		resp, body = get("x.b.test")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).To(Equal("B"))

		resp, _ = get("c.test")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
