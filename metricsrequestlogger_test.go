// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRequestLoggerRecordsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	l, err := NewMetricsRequestLogger(&MetricsRequestLoggerConfig{Namespace: "test"}, registry)
	require.NoError(t, err)

	req := &Request{ID: "r1", Method: "GET"}
	l.RequestStarted(req)
	l.RequestEnded(req, 200, nil)

	mfs, err := registry.Gather()
	require.NoError(t, err)

	var total *io_prometheus_client.MetricFamily
	for _, mf := range mfs {
		if mf.GetName() == "test_requests_total" {
			total = mf
		}
	}
	require.NotNil(t, total)
	require.Len(t, total.Metric, 1)
	assert.Equal(t, float64(1), total.Metric[0].Counter.GetValue())
}

func TestMetricsRequestLoggerRecordsErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	l, err := NewMetricsRequestLogger(&MetricsRequestLoggerConfig{Namespace: "test2"}, registry)
	require.NoError(t, err)

	req := &Request{ID: "r2", Method: "GET"}
	l.RequestStarted(req)
	l.RequestEnded(req, 500, []string{"Internal"})

	mfs, err := registry.Gather()
	require.NoError(t, err)

	var errs *io_prometheus_client.MetricFamily
	for _, mf := range mfs {
		if mf.GetName() == "test2_request_errors_total" {
			errs = mf
		}
	}
	require.NotNil(t, errs)
	require.Len(t, errs.Metric, 1)
	assert.Equal(t, float64(1), errs.Metric[0].Counter.GetValue())
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(500))
	assert.Equal(t, "xxx", statusClass(999))
}
