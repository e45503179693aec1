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

var _ = Describe("Reload preserves names", func() {
	It("re-wires the tree and resumes serving without a port-reuse error", func() {
		port := freePort()
		registry := webhouse.NewRegistry()
		Expect(registry.Register("Greeter", func(cfg webhouse.ConfigRecord) (webhouse.Component, error) {
			return newTagApp("Greeter", "hi"), nil
		})).To(Succeed())

		cfg := &webhouse.WarehouseConfig{
			Applications: []webhouse.ComponentSpec{
				{Name: "greeter", Class: "Greeter"},
			},
			Endpoints: []*webhouse.EndpointConfig{
				{
					BaseConfig: webhouse.BaseConfig{Name: "e1"},
					Protocol:   webhouse.ProtocolHTTP,
					Interface:  "127.0.0.1",
					Port:       port,
					Hostnames:  []string{"reload.test"},
					Mounts: []webhouse.MountConfig{
						{Application: "greeter", At: "//*/"},
					},
				},
			},
		}

		wh, err := webhouse.NewWarehouse(cfg, registry, nil, webhouse.DefaultLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(wh.Start(false)).To(Succeed())
		defer func() { Expect(wh.Stop(false)).To(Succeed()) }()
		waitForDial(port)

		before, err := wh.Context().GetComponent([]string{"applications", "greeter"}, "")
		Expect(err).NotTo(HaveOccurred())

		Expect(wh.Reload()).To(Succeed())
		waitForDial(port)

		after, err := wh.Context().GetComponent([]string{"applications", "greeter"}, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(after).To(BeIdenticalTo(before))

		client := &http.Client{Timeout: 2 * time.Second}
		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/", port), nil)
		Expect(err).NotTo(HaveOccurred())
		req.Host = "reload.test"
		resp, err := client.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})
})
