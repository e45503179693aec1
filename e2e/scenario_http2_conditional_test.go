// SPDX-License-Identifier: GPL-3.0-or-later

package e2e

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webhouse/webhouse"
)

// etagApp is a minimal stand-in for the static-file application (its
// internals are explicitly out of scope per spec.md §1): it always
// answers GET / with a fixed body plus an Etag/Last-Modified pair, so
// the endpoint's own conditional-GET downgrade (testable property 7)
// can be exercised over a real HTTP/2 listener.
type etagApp struct {
	webhouse.NoopImpl
	*webhouse.BaseComponent
}

func newEtagApp() *etagApp {
	a := &etagApp{}
	a.BaseComponent = webhouse.NewBaseComponent("EtagApp", a)
	return a
}

func (a *etagApp) HandleRequest(ctx context.Context, req *webhouse.Request, dispatch webhouse.Dispatch) (*webhouse.Response, error) {
	resp := webhouse.NewResponse(http.StatusOK, []byte("hello, tls"))
	resp.Headers.Set("Etag", `"v1"`)
	resp.Headers.Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
	resp.Headers.Set("Cache-Control", "max-age=60")
	resp.Headers.Set("Accept-Ranges", "bytes")
	return resp, nil
}

var _ = Describe("HTTP/2 self-signed conditional GET", func() {
	It("serves 200 with an etag, then 304 with a matching If-None-Match", func() {
		port := freePort()
		registry := webhouse.NewRegistry()
		Expect(registry.Register("EtagApp", func(cfg webhouse.ConfigRecord) (webhouse.Component, error) {
			return newEtagApp(), nil
		})).To(Succeed())

		cfg := &webhouse.WarehouseConfig{
			Hosts: &webhouse.HostManagerConfig{
				Hosts: []*webhouse.HostItemConfig{
					{Hostnames: []string{"localhost"}, SelfSigned: true},
				},
			},
			Applications: []webhouse.ComponentSpec{
				{Name: "static", Class: "EtagApp"},
			},
			Endpoints: []*webhouse.EndpointConfig{
				{
					BaseConfig: webhouse.BaseConfig{Name: "e1"},
					Protocol:   webhouse.ProtocolHTTPS,
					Interface:  "127.0.0.1",
					Port:       port,
					Hostnames:  []string{"localhost"},
					Mounts: []webhouse.MountConfig{
						{Application: "static", At: "//*/"},
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
			Transport: &http.Transport{
				TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
				ForceAttemptHTTP2: true,
			},
			Timeout: 5 * time.Second,
		}

		url := fmt.Sprintf("https://localhost:%d/", port)
		req, err := http.NewRequest(http.MethodGet, url, nil)
		Expect(err).NotTo(HaveOccurred())
		req.Host = "localhost"

		resp, err := client.Do(req)
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal("hello, tls"))
		etag := resp.Header.Get("Etag")
		Expect(etag).To(Equal(`"v1"`))
		Expect(resp.Header.Get("Last-Modified")).NotTo(BeEmpty())

		req2, err := http.NewRequest(http.MethodGet, url, nil)
		Expect(err).NotTo(HaveOccurred())
		req2.Host = "localhost"
		req2.Header.Set("If-None-Match", etag)

		resp2, err := client.Do(req2)
		Expect(err).NotTo(HaveOccurred())
		body2, err := io.ReadAll(resp2.Body)
		resp2.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp2.StatusCode).To(Equal(http.StatusNotModified))
		Expect(body2).To(BeEmpty())

		var retained []string
		for name := range resp2.Header {
			retained = append(retained, name)
		}
		sort.Strings(retained)
		Expect(retained).To(ContainElement("Etag"))
		Expect(retained).To(ContainElement("Cache-Control"))
		Expect(retained).NotTo(ContainElement("Content-Type"))
	})
})
