package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/internal/classifier"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

func newPrometheusServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPrometheusSource_FetchLatency(t *testing.T) {
	srv := newPrometheusServer(t, `{"status":"success","data":{"resultType":"vector","result":[
		{"metric":{"region":"europe-west2"},"value":[1700000000,"100"]},
		{"metric":{"region":"us-south1"},"value":[1700000000,"200"]},
		{"metric":{"region":"asia-southeast1"},"value":[1700000000,"900"]}
	]}}`)

	src, err := NewPrometheusSource(PrometheusConfig{
		Address:    srv.URL,
		HotRegions: []string{"europe-west2", "us-south1"},
	})
	require.NoError(t, err)

	snapshot, err := src.FetchLatency(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 150.0, snapshot.HotRegionsAvgLatencyMs)
}

func TestPrometheusSource_FetchTraffic(t *testing.T) {
	srv := newPrometheusServer(t, `{"status":"success","data":{"resultType":"vector","result":[
		{"metric":{"country":"Singapore"},"value":[1700000000,"59.6"]},
		{"metric":{"country":"Germany"},"value":[1700000000,"150"]}
	]}}`)

	src, err := NewPrometheusSource(PrometheusConfig{
		Address: srv.URL,
		Tagger:  classifier.New(nil),
	})
	require.NoError(t, err)

	snapshot, err := src.FetchTraffic(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(60), snapshot.Origins["Singapore"].Requests)
	assert.Equal(t, models.RegionAsia, snapshot.Origins["Singapore"].Region)
	assert.Equal(t, models.RegionEurope, snapshot.Origins["Germany"].Region)
}

func TestPrometheusSource_NonVectorResult(t *testing.T) {
	srv := newPrometheusServer(t, `{"status":"success","data":{"resultType":"scalar","result":[1700000000,"1"]}}`)

	src, err := NewPrometheusSource(PrometheusConfig{Address: srv.URL})
	require.NoError(t, err)

	_, err = src.FetchLatency(context.Background())

	assert.ErrorIs(t, err, ErrTelemetryUnavailable)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestPrometheusSource_QueryError(t *testing.T) {
	srv := newPrometheusServer(t, `{"status":"error","errorType":"bad_data","error":"parse error"}`)

	src, err := NewPrometheusSource(PrometheusConfig{Address: srv.URL})
	require.NoError(t, err)

	_, err = src.FetchTraffic(context.Background())

	assert.ErrorIs(t, err, ErrTelemetryUnavailable)
}
