// Command simulator serves synthetic regional traffic and hot-region latency
// for local runs of the autoscaler with telemetry.provider=http.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/simulator"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9000, "listen port")
	pattern := flag.String("pattern", "steady", "traffic pattern: steady, daily, asia_peak, random, gradual_rise")
	variance := flag.Float64("variance", 0.1, "relative jitter applied to every value")
	seed := flag.Int64("seed", 0, "random seed, 0 picks one from the clock")
	spikeRegion := flag.String("spike", "", "inject a spike for this region at startup (asia, americas, europe)")
	spikeFor := flag.Duration("spike-duration", 5*time.Minute, "duration of the startup spike")
	statusEvery := flag.Duration("status-interval", time.Minute, "how often to log the current snapshot, 0 disables")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.SetStaticFields(map[string]interface{}{"service": "telemetry-simulator"})

	traffic := simulator.DefaultTrafficSimConfig()
	traffic.Variance = *variance
	traffic.Seed = *seed

	sim, err := simulator.New(simulator.Config{
		Port:    *port,
		Pattern: *pattern,
		Traffic: traffic,
	})
	if err != nil {
		return err
	}

	if *spikeRegion != "" {
		region := models.ParseRegion(*spikeRegion)
		if !region.IsKnown() {
			return fmt.Errorf("unknown spike region %q", *spikeRegion)
		}
		sim.Traffic().InjectSpike(simulator.Spike{
			Region:       region,
			Multiplier:   3,
			ExtraLatency: 250,
			Duration:     *spikeFor,
			RampUp:       30 * time.Second,
		})
		logger.Infof("Startup %s spike for %s", region, *spikeFor)
	}

	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	logger.Infof("Serving %s traffic on :%d", *pattern, *port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *statusEvery > 0 {
		go logStatus(ctx, sim.Traffic(), *statusEvery)
	}

	<-ctx.Done()
	logger.Info("Shutting down simulator")
	return sim.Stop()
}

func logStatus(ctx context.Context, sim *simulator.TrafficSim, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.WithFields(sim.Status()).Info("Simulator status")
		}
	}
}
