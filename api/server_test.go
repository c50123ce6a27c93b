package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/api/handlers"
	"github.com/OldStager01/cold-autoscaler/api/websocket"
	"github.com/OldStager01/cold-autoscaler/internal/auth"
	"github.com/OldStager01/cold-autoscaler/internal/metrics"
	"github.com/OldStager01/cold-autoscaler/internal/orchestrator"
	"github.com/OldStager01/cold-autoscaler/pkg/config"
)

const (
	adminUser     = "admin"
	adminPassword = "Adm1n!secret"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.App.Mode = "test"
	cfg.Loop.AutoStart = false
	cfg.Cluster.ProvisionDelay = 0
	cfg.Telemetry.RetryAttempts = 1
	cfg.API.JWTSecret = "test-secret"

	orch, err := orchestrator.New(context.Background(), cfg, nil, orchestrator.Options{
		Metrics: metrics.New(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	require.NoError(t, orch.Start())
	t.Cleanup(orch.Stop)

	users := auth.NewStaticUsers()
	require.NoError(t, users.Add(adminUser, adminPassword))

	srv := NewServer(cfg, orch, nil, users)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, srv *Server) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/auth/login", "",
		`{"username":"`+adminUser+`","password":"`+adminPassword+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handlers.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestServer_PublicRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/health", http.StatusOK, `"telemetry":"healthy"`},
		{"/health/live", http.StatusOK, "alive"},
		{"/health/ready", http.StatusOK, "ready"},
		{"/swagger/doc.json", http.StatusOK, "/autoscaler/run"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, srv, http.MethodGet, tt.path, "", "")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		})
	}
}

func TestServer_ProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/autoscaler/status", "/autoscaler/history"} {
		w := do(t, srv, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := do(t, srv, http.MethodPost, "/autoscaler/run", "not-a-token", `{"action":"auto"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestServer_ManualRunScalesUpOnMockTraffic(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	w := do(t, srv, http.MethodPost, "/autoscaler/run", token, `{"action":"auto"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run handlers.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.True(t, run.ShouldScale)
	assert.Equal(t, "geographic_traffic", run.Trigger)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 0, run.Failed)
	assert.Contains(t, run.Reason, "85")

	w = do(t, srv, http.MethodPost, "/autoscaler/run", token, `{"action":"auto"}`)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, 0, run.Succeeded)
	assert.Equal(t, 1, run.Unchanged)

	w = do(t, srv, http.MethodGet, "/autoscaler/status", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var status handlers.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "stopped", status.Status)
	require.NotNil(t, status.LastCycle)
	assert.Equal(t, 1, status.LastCycle.Unchanged)

	w = do(t, srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cold_autoscaler_cycles_total")
}

func TestServer_HistoryWithoutDatabase(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	w := do(t, srv, http.MethodGet, "/autoscaler/history", token, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_WebSocketStreamsCycleEvents(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.WebSocketHub().ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	w := do(t, srv, http.MethodPost, "/autoscaler/run", token, `{"action":"down"}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	seen := map[websocket.MessageType]bool{}
	for !seen[websocket.MessageTypeCycle] {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		// Queued messages may share one frame.
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			var msg websocket.OutgoingMessage
			require.NoError(t, json.Unmarshal(line, &msg))
			seen[msg.Type] = true
		}
	}

	assert.True(t, seen[websocket.MessageTypeDecision])
	assert.True(t, seen[websocket.MessageTypeRegionUpdate])
}
