package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OldStager01/cold-autoscaler/api"
	"github.com/OldStager01/cold-autoscaler/internal/auth"
	"github.com/OldStager01/cold-autoscaler/internal/autoscaler"
	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/metrics"
	"github.com/OldStager01/cold-autoscaler/internal/orchestrator"
	"github.com/OldStager01/cold-autoscaler/internal/policy"
	"github.com/OldStager01/cold-autoscaler/pkg/config"
	"github.com/OldStager01/cold-autoscaler/pkg/database"
	"github.com/OldStager01/cold-autoscaler/pkg/database/queries"
	"github.com/OldStager01/cold-autoscaler/pkg/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	once := flag.String("once", "", "run a single iteration (up, down or auto) and exit")
	targetNodes := flag.Int("target-nodes", 0, "node ceiling for -once up")
	flag.Parse()

	var trigger autoscaler.Trigger
	if *once != "" {
		t, err := onceTrigger(*once, *targetNodes)
		if err != nil {
			return fmt.Errorf("invalid -once run: %w", err)
		}
		trigger = t
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.SetStaticFields(map[string]interface{}{
		"service": cfg.App.Name,
		"project": cfg.Regions.ProjectID,
	})
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Database.Enabled || *migrate {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		timeout := cfg.Database.MigrationTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		logger.Info("Running database migrations")
		applied, err := database.NewMigrator(db).Run(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Infof("Migrations completed successfully (%d applied)", applied)
		return nil
	}

	logBanner(cfg)

	if *once != "" {
		cfg.Loop.AutoStart = false
	}

	orch, err := orchestrator.New(context.Background(), cfg, db, orchestrator.Options{})
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}
	if err := orch.Start(); err != nil {
		orch.Stop()
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	if *once != "" {
		return runOnce(orch, trigger, cfg.API.RunTimeout)
	}

	users, err := userStore(cfg, db)
	if err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.Prometheus.Enabled {
		metricsServer = metrics.StartServer(cfg.Prometheus.Port)
	}

	server := api.NewServer(cfg, orch, db, users)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Metrics server shutdown: %v", err)
		}
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// userStore seeds the configured admin account. With a database the account
// is upserted there; otherwise it lives in memory.
func userStore(cfg *config.Config, db *database.DB) (auth.UserStore, error) {
	if cfg.API.AdminPassword == "" {
		logger.Warn("api.admin_password is empty, login is disabled")
		if db != nil {
			return queries.NewUserRepository(db.DB), nil
		}
		return auth.NewStaticUsers(), nil
	}

	if db == nil {
		users := auth.NewStaticUsers()
		if err := users.Add(cfg.API.AdminUser, cfg.API.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to register admin user: %w", err)
		}
		return users, nil
	}

	hash, err := auth.HashPassword(cfg.API.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	repo := queries.NewUserRepository(db.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := repo.Upsert(ctx, cfg.API.AdminUser, hash); err != nil {
		return nil, fmt.Errorf("failed to store admin user: %w", err)
	}
	return repo, nil
}

// onceTrigger checks the -once flags the same way the run endpoint checks
// its request body.
func onceTrigger(action string, targetNodes int) (autoscaler.Trigger, error) {
	a, err := policy.ParseAction(action)
	if err != nil {
		return autoscaler.Trigger{}, err
	}
	if err := validation.ValidateNodeCount(targetNodes); err != nil {
		return autoscaler.Trigger{}, err
	}
	return autoscaler.Trigger{
		Action:      a,
		TargetNodes: targetNodes,
	}, nil
}

func runOnce(orch *orchestrator.Orchestrator, trigger autoscaler.Trigger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cycle, err := orch.Loop().RunOnce(ctx, trigger)
	if err != nil {
		return err
	}

	fmt.Println(cycle.Summary())
	for _, r := range cycle.Results {
		line := fmt.Sprintf("  %-20s %-10s %s", r.Region, r.Status, r.Message)
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}
		fmt.Println(line)
	}

	if cycle.Skipped || cycle.HasFailures() {
		return errors.New("iteration did not complete cleanly")
	}
	return nil
}

func logBanner(cfg *config.Config) {
	th := cfg.Thresholds.ToModel()
	logger.WithFields(map[string]interface{}{
		"project":     cfg.Regions.ProjectID,
		"hot_regions": strings.Join(cfg.Regions.Hot, ","),
		"cold":        strings.Join(cfg.Regions.Cold, ","),
		"interval":    cfg.Loop.Interval.String(),
		"telemetry":   cfg.Telemetry.Provider,
		"cluster":     cfg.Cluster.Provider,
	}).Info("Cold-region autoscaler configuration")

	logger.Infof("Upper thresholds: asia_requests>=%d asia_percentage>=%.1f%% (min_total=%d) latency>=%.0fms",
		th.Upper.AsiaRequests, th.Upper.AsiaPercentage, th.Upper.MinTotalRequests, th.Upper.LatencyMs)
	logger.Infof("Lower thresholds: asia_requests<%d asia_percentage<%.1f%% latency<%.0fms",
		th.Lower.AsiaRequests, th.Lower.AsiaPercentage, th.Lower.LatencyMs)
	logger.Infof("Scale-up node ceiling: %d", th.ScaleUpNodes)
}
