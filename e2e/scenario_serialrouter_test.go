// SPDX-License-Identifier: GPL-3.0-or-later

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webhouse/webhouse"
)

// delayerApp sleeps briefly and always declines (returns nil), so a
// chaining application can be observed trying it first.
type delayerApp struct {
	webhouse.NoopImpl
	*webhouse.BaseComponent
}

func newDelayerApp() *delayerApp {
	a := &delayerApp{}
	a.BaseComponent = webhouse.NewBaseComponent("Delayer", a)
	return a
}

func (a *delayerApp) HandleRequest(ctx context.Context, req *webhouse.Request, dispatch webhouse.Dispatch) (*webhouse.Response, error) {
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

var _ = Describe("SerialRouter", func() {
	It("falls through a declining application to a redirector", func() {
		port := freePort()
		registry := webhouse.NewRegistry()
		Expect(registry.Register("Delayer", func(cfg webhouse.ConfigRecord) (webhouse.Component, error) {
			return newDelayerApp(), nil
		})).To(Succeed())
		Expect(registry.Register("Redirector", webhouse.NewRedirectorComponent)).To(Succeed())
		Expect(registry.Register("SerialRouter", webhouse.NewSerialRouterComponent)).To(Succeed())

		cfg := &webhouse.WarehouseConfig{
			Applications: []webhouse.ComponentSpec{
				{Name: "delayer", Class: "Delayer"},
				{Name: "redirector", Class: "Redirector", Config: &webhouse.RedirectorConfig{
					Target: "https://new.test/",
				}},
				{Name: "chain", Class: "SerialRouter", Config: &webhouse.SerialRouterConfig{
					Applications: []string{"delayer", "redirector"},
				}},
			},
			Endpoints: []*webhouse.EndpointConfig{
				{
					BaseConfig: webhouse.BaseConfig{Name: "e1"},
					Protocol:   webhouse.ProtocolHTTP,
					Interface:  "127.0.0.1",
					Port:       port,
					Hostnames:  []string{"chain.test"},
					Mounts: []webhouse.MountConfig{
						{Application: "chain", At: "//*/"},
					},
				},
			},
		}

		wh, err := webhouse.NewWarehouse(cfg, registry, nil, webhouse.DefaultLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(wh.Start(false)).To(Succeed())
		defer func() { Expect(wh.Stop(false)).To(Succeed()) }()
		waitForDial(port)

		client := &http.Client{
			Timeout: 2 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/page", port), nil)
		Expect(err).NotTo(HaveOccurred())
		req.Host = "chain.test"

		resp, err := client.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusMovedPermanently))
		Expect(resp.Header.Get("Location")).To(Equal("https://new.test/page"))
	})
})
