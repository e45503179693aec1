// SPDX-License-Identifier: GPL-3.0-or-later

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webhouse/webhouse"
)

func buildRateLimitedWarehouse(port int, maxQueueSize int) *webhouse.Warehouse {
	registry := webhouse.NewRegistry()
	ExpectWithOffset(1, registry.Register("Greeter", func(cfg webhouse.ConfigRecord) (webhouse.Component, error) {
		return newTagApp("Greeter", "hi"), nil
	})).To(Succeed())
	ExpectWithOffset(1, registry.Register("TokenBucketRateLimiter", webhouse.NewTokenBucketRateLimiterComponent)).To(Succeed())

	cfg := &webhouse.WarehouseConfig{
		Services: []webhouse.ComponentSpec{
			{Name: "limiter", Class: "TokenBucketRateLimiter", Config: &webhouse.TokenBucketRateLimiterConfig{
				Connection: webhouse.TokenBucketConfig{
					Capacity:     2,
					FlowRate:     2,
					MaxQueueTime: 5 * time.Second,
					MaxQueueSize: maxQueueSize,
				},
				MaxWaitTime: 5 * time.Second,
			}},
		},
		Applications: []webhouse.ComponentSpec{
			{Name: "greeter", Class: "Greeter"},
		},
		Endpoints: []*webhouse.EndpointConfig{
			{
				BaseConfig: webhouse.BaseConfig{Name: "e1"},
				Protocol:   webhouse.ProtocolHTTP,
				Interface:  "127.0.0.1",
				Port:       port,
				Hostnames:  []string{"rl.test"},
				Mounts: []webhouse.MountConfig{
					{Application: "greeter", At: "//*/"},
				},
				Services: webhouse.EndpointServices{RateLimiter: "limiter"},
			},
		},
	}

	wh, err := webhouse.NewWarehouse(cfg, registry, nil, webhouse.DefaultLogger())
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return wh
}

var _ = Describe("Rate-limited connection", func() {
	It("delays but never rejects connections within an unlimited queue", func() {
		port := freePort()
		wh := buildRateLimitedWarehouse(port, 0 /* unlimited, per tokenbucket.go's convention */)
		Expect(wh.Start(false)).To(Succeed())
		defer func() { Expect(wh.Stop(false)).To(Succeed()) }()
		waitForDial(port)

		client := &http.Client{Timeout: 5 * time.Second}
		statuses := make([]int, 4)
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
					fmt.Sprintf("http://127.0.0.1:%d/", port), nil)
				Expect(err).NotTo(HaveOccurred())
				req.Host = "rl.test"
				resp, err := client.Do(req)
				if err != nil {
					statuses[i] = -1
					return
				}
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}(i)
		}
		wg.Wait()

		for i := 0; i < 4; i++ {
			Expect(statuses[i]).To(Equal(http.StatusOK), "connection %d should not be rejected", i)
		}
	})

	It("rejects immediately once a small queue fills", func() {
		port := freePort()
		// capacity 2, no refill headroom by the time a 4th caller
		// arrives, and only one waiter slot: the connections beyond
		// capacity+queue are rejected rather than made to wait.
		wh := buildRateLimitedWarehouse(port, 1)
		Expect(wh.Start(false)).To(Succeed())
		defer func() { Expect(wh.Stop(false)).To(Succeed()) }()
		waitForDial(port)

		client := &http.Client{Timeout: 1 * time.Second}
		get := func() (int, error) {
			req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/", port), nil)
			Expect(err).NotTo(HaveOccurred())
			req.Host = "rl.test"
			resp, err := client.Do(req)
			if err != nil {
				return 0, err
			}
			defer resp.Body.Close()
			return resp.StatusCode, nil
		}

		var wg sync.WaitGroup
		results := make([]struct {
			status int
			err    error
		}, 4)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				status, err := get()
				results[i].status = status
				results[i].err = err
			}(i)
		}
		wg.Wait()

		var rejected int
		for _, r := range results {
			if r.err != nil {
				rejected++
				continue
			}
			Expect(r.status).To(Equal(http.StatusOK))
		}
		Expect(rejected).To(BeNumerically(">", 0))
	})
})
