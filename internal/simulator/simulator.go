package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type Config struct {
	Port    int
	Pattern string
	Traffic TrafficSimConfig
}

// Simulator serves synthetic telemetry in the shape the HTTP telemetry
// source consumes.
type Simulator struct {
	config     Config
	sim        *TrafficSim
	httpServer *http.Server
}

func New(cfg Config) (*Simulator, error) {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.Traffic.Origins == nil {
		cfg.Traffic = DefaultTrafficSimConfig()
	}

	pattern, err := ParsePattern(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	sim := NewTrafficSim(cfg.Traffic)
	sim.SetPattern(pattern)

	return &Simulator{config: cfg, sim: sim}, nil
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Handler exposes the routes without starting a listener.
func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", cors(s.healthHandler))
	mux.HandleFunc("/traffic", cors(s.trafficHandler))
	mux.HandleFunc("/latency", cors(s.latencyHandler))
	mux.HandleFunc("/status", cors(s.statusHandler))
	mux.HandleFunc("/spike", cors(s.spikeHandler))
	mux.HandleFunc("/pattern", cors(s.patternHandler))
	return mux
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Telemetry simulator listening on %s (pattern %s)", addr, s.sim.Pattern())

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) Traffic() *TrafficSim {
	return s.sim
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "telemetry-simulator",
	})
}

func (s *Simulator) trafficHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.sim.Traffic())
}

func (s *Simulator) latencyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.sim.Latency())
}

func (s *Simulator) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Status())
}

type SpikeRequest struct {
	Region       string  `json:"region"`
	Multiplier   float64 `json:"multiplier"`
	ExtraLatency float64 `json:"extra_latency_ms"`
	Duration     string  `json:"duration"`
	RampUp       string  `json:"ramp_up"`
}

func (s *Simulator) spikeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SpikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	region := models.ParseRegion(req.Region)
	if req.Region == "" {
		region = models.RegionAsia
	}
	if !region.IsKnown() {
		http.Error(w, "unknown region", http.StatusBadRequest)
		return
	}
	if req.Multiplier <= 0 {
		req.Multiplier = 3
	}

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 5 * time.Minute
	}
	rampUp, err := time.ParseDuration(req.RampUp)
	if err != nil {
		rampUp = 30 * time.Second
	}

	s.sim.InjectSpike(Spike{
		Region:       region,
		Multiplier:   req.Multiplier,
		ExtraLatency: req.ExtraLatency,
		Duration:     duration,
		RampUp:       rampUp,
	})

	logger.Infof("Injected %s spike: x%.1f, +%.0fms, duration=%s", region, req.Multiplier, req.ExtraLatency, duration)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "spike injected",
		"region":           region,
		"multiplier":       req.Multiplier,
		"extra_latency_ms": req.ExtraLatency,
		"duration":         duration.String(),
		"ramp_up":          rampUp.String(),
	})
}

type PatternRequest struct {
	Pattern string `json:"pattern"` // steady, daily, asia_peak, random, gradual_rise
}

func (s *Simulator) patternHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"pattern": s.sim.Pattern()})
		return
	case http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pattern, err := ParsePattern(req.Pattern)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.sim.SetPattern(pattern)

	logger.Infof("Traffic pattern set to %s", pattern.Name())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "pattern set",
		"pattern": pattern.Name(),
	})
}
