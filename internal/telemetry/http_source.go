package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// LatencyResponse is the body served on {endpoint}/latency.
type LatencyResponse struct {
	CapturedAt time.Time          `json:"captured_at"`
	Backends   map[string]float64 `json:"backends"`
}

type HTTPSource struct {
	client     *http.Client
	endpoint   string
	hotRegions []string
}

type HTTPSourceConfig struct {
	Endpoint   string
	Timeout    time.Duration
	HotRegions []string
}

func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSource{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		hotRegions: cfg.HotRegions,
	}
}

func (s *HTTPSource) FetchTraffic(ctx context.Context) (models.TrafficSnapshot, error) {
	var snapshot models.TrafficSnapshot
	if err := s.get(ctx, "/traffic", &snapshot); err != nil {
		return models.TrafficSnapshot{}, unavailable("traffic", err)
	}
	if err := validateTraffic(snapshot); err != nil {
		return models.TrafficSnapshot{}, unavailable("traffic", err)
	}
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now()
	}
	if snapshot.Source == "" {
		snapshot.Source = "http"
	}

	logger.Debugf("Fetched traffic for %d origins from %s", len(snapshot.Origins), s.endpoint)
	return snapshot, nil
}

func (s *HTTPSource) FetchLatency(ctx context.Context) (models.LatencySnapshot, error) {
	var resp LatencyResponse
	if err := s.get(ctx, "/latency", &resp); err != nil {
		return models.LatencySnapshot{}, unavailable("latency", err)
	}
	for backend, ms := range resp.Backends {
		if ms < 0 {
			return models.LatencySnapshot{}, unavailable("latency",
				fmt.Errorf("%w: negative latency for %q", ErrInvalidResponse, backend))
		}
	}

	snapshot := models.NewLatencySnapshot(resp.Backends, s.hotRegions)
	if !resp.CapturedAt.IsZero() {
		snapshot.CapturedAt = resp.CapturedAt
	}
	return snapshot, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, out interface{}) error {
	url := s.endpoint + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
