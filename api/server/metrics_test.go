// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistrationFailure(t *testing.T) {
	require := require.New(t)
	reg := metric.NewRegistry()

	_, err := newMetrics(reg)
	require.NoError(err)

	metrics, err := newMetrics(reg)
	require.Error(err)
	require.Nil(metrics)
}

func TestWrapHandler(t *testing.T) {
	require := require.New(t)

	metrics, err := newMetrics(metric.NewRegistry())
	require.NoError(err)

	var inflight float64
	handler := metrics.wrapHandler("carbonvm", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		inflight = testutil.ToFloat64(metrics.inflight)
	}))
	for range 3 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(float64(1), inflight)
	require.Zero(testutil.ToFloat64(metrics.inflight))
	require.Equal(float64(3), testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodPost, "carbonvm")))
	require.Equal(float64(1), testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "carbonvm")))
	require.Equal(2, testutil.CollectAndCount(metrics.duration))
}
