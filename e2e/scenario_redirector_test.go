// SPDX-License-Identifier: GPL-3.0-or-later

package e2e

import (
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webhouse/webhouse"
)

var _ = Describe("Redirector path concatenation", func() {
	It("joins the configured target with the unmatched mount suffix", func() {
		port := freePort()
		registry := webhouse.NewRegistry()
		Expect(registry.Register("Redirector", webhouse.NewRedirectorComponent)).To(Succeed())

		cfg := &webhouse.WarehouseConfig{
			Applications: []webhouse.ComponentSpec{
				{Name: "redirector", Class: "Redirector", Config: &webhouse.RedirectorConfig{
					Target: "https://new/base/",
				}},
			},
			Endpoints: []*webhouse.EndpointConfig{
				{
					BaseConfig: webhouse.BaseConfig{Name: "e1"},
					Protocol:   webhouse.ProtocolHTTP,
					Interface:  "127.0.0.1",
					Port:       port,
					Hostnames:  []string{"old.test"},
					Mounts: []webhouse.MountConfig{
						{Application: "redirector", At: "//*/old/"},
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
		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/old/a/b", port), nil)
		Expect(err).NotTo(HaveOccurred())
		req.Host = "old.test"

		resp, err := client.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusMovedPermanently))
		Expect(resp.Header.Get("Location")).To(Equal("https://new/base/a/b"))
	})
})
