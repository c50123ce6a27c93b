package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/cold-autoscaler/pkg/database"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

var ErrCycleNotFound = errors.New("cycle not found")

// DecisionRepository stores autoscaler iterations and their per-region
// outcomes.
type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

type CycleRecord struct {
	ID             string         `json:"id"`
	StartedAt      time.Time      `json:"started_at"`
	DurationMs     int64          `json:"duration_ms"`
	Action         string         `json:"action"`
	Skipped        bool           `json:"skipped"`
	SkipReason     string         `json:"skip_reason,omitempty"`
	ShouldScale    bool           `json:"should_scale"`
	Trigger        string         `json:"trigger"`
	Reason         string         `json:"reason"`
	TargetNodes    int            `json:"target_nodes"`
	AsiaRequests   int64          `json:"asia_requests"`
	AsiaPercentage float64        `json:"asia_percentage"`
	TotalRequests  int64          `json:"total_requests"`
	HotLatencyMs   float64        `json:"hot_latency_ms"`
	Succeeded      int            `json:"succeeded"`
	Unchanged      int            `json:"unchanged"`
	Failed         int            `json:"failed"`
	Actions        []RegionAction `json:"actions,omitempty"`
}

type RegionAction struct {
	Region      string `json:"region"`
	Cluster     string `json:"cluster"`
	NodePool    string `json:"node_pool"`
	Status      string `json:"status"`
	PreviousMin *int   `json:"previous_min,omitempty"`
	PreviousMax *int   `json:"previous_max,omitempty"`
	TargetMin   int    `json:"target_min"`
	TargetMax   int    `json:"target_max"`
	Woken       bool   `json:"woken"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
}

type DecisionStats struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	TotalCycles    int       `json:"total_cycles"`
	SkippedCycles  int       `json:"skipped_cycles"`
	ScaleUpCount   int       `json:"scale_up_count"`
	ScaleDownCount int       `json:"scale_down_count"`
	RegionsUpdated int       `json:"regions_updated"`
	RegionsFailed  int       `json:"regions_failed"`
}

// SaveCycle writes the cycle and its region actions in one transaction.
func (r *DecisionRepository) SaveCycle(ctx context.Context, cycle *models.CycleResult) error {
	rec := recordFromCycle(cycle)

	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO autoscaler_cycles
				(id, started_at, duration_ms, action, skipped, skip_reason, should_scale,
				 trigger, reason, target_nodes, asia_requests, asia_percentage,
				 total_requests, hot_latency_ms, succeeded, unchanged, failed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.StartedAt, rec.DurationMs, rec.Action, rec.Skipped, rec.SkipReason,
			rec.ShouldScale, rec.Trigger, rec.Reason, rec.TargetNodes, rec.AsiaRequests,
			rec.AsiaPercentage, rec.TotalRequests, rec.HotLatencyMs,
			rec.Succeeded, rec.Unchanged, rec.Failed,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cycle: %w", err)
		}

		for _, a := range rec.Actions {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO region_actions
					(cycle_id, region, cluster, node_pool, status, previous_min, previous_max,
					 target_min, target_max, woken, message, error)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				rec.ID, a.Region, a.Cluster, a.NodePool, a.Status, a.PreviousMin, a.PreviousMax,
				a.TargetMin, a.TargetMax, a.Woken, a.Message, a.Error,
			)
			if err != nil {
				return fmt.Errorf("failed to insert action for %s: %w", a.Region, err)
			}
		}
		return nil
	})
}

const cycleColumns = `id, started_at, duration_ms, action, skipped, skip_reason, should_scale,
			trigger, reason, target_nodes, asia_requests, asia_percentage,
			total_requests, hot_latency_ms, succeeded, unchanged, failed`

// List returns cycles newest first, without region actions.
func (r *DecisionRepository) List(ctx context.Context, from, to time.Time, limit, offset int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + cycleColumns + `
		FROM autoscaler_cycles
		WHERE started_at >= $1 AND started_at <= $2
		ORDER BY started_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []CycleRecord{}
	for rows.Next() {
		rec, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetByID returns one cycle including its region actions.
func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*CycleRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM autoscaler_cycles WHERE id = $1`, id)
	rec, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCycleNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT region, cluster, node_pool, status, previous_min, previous_max,
			   target_min, target_max, woken, message, error
		FROM region_actions
		WHERE cycle_id = $1
		ORDER BY region`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a RegionAction
		if err := rows.Scan(
			&a.Region, &a.Cluster, &a.NodePool, &a.Status, &a.PreviousMin, &a.PreviousMax,
			&a.TargetMin, &a.TargetMax, &a.Woken, &a.Message, &a.Error,
		); err != nil {
			return nil, err
		}
		rec.Actions = append(rec.Actions, a)
	}

	return &rec, rows.Err()
}

func (r *DecisionRepository) GetStats(ctx context.Context, from, to time.Time) (*DecisionStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE skipped),
			COUNT(*) FILTER (WHERE should_scale AND target_nodes > 0),
			COUNT(*) FILTER (WHERE should_scale AND target_nodes = 0),
			COALESCE(SUM(succeeded), 0),
			COALESCE(SUM(failed), 0)
		FROM autoscaler_cycles
		WHERE started_at >= $1 AND started_at <= $2`

	stats := DecisionStats{From: from, To: to}
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&stats.TotalCycles, &stats.SkippedCycles,
		&stats.ScaleUpCount, &stats.ScaleDownCount,
		&stats.RegionsUpdated, &stats.RegionsFailed,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(s scanner) (CycleRecord, error) {
	var rec CycleRecord
	err := s.Scan(
		&rec.ID, &rec.StartedAt, &rec.DurationMs, &rec.Action, &rec.Skipped, &rec.SkipReason,
		&rec.ShouldScale, &rec.Trigger, &rec.Reason, &rec.TargetNodes,
		&rec.AsiaRequests, &rec.AsiaPercentage, &rec.TotalRequests, &rec.HotLatencyMs,
		&rec.Succeeded, &rec.Unchanged, &rec.Failed,
	)
	return rec, err
}

func recordFromCycle(cycle *models.CycleResult) CycleRecord {
	rec := CycleRecord{
		ID:         cycle.ID,
		StartedAt:  cycle.StartedAt,
		DurationMs: cycle.DurationMs,
		Action:     cycle.Action,
		Skipped:    cycle.Skipped,
		SkipReason: cycle.SkipReason,
		Succeeded:  cycle.Succeeded,
		Unchanged:  cycle.Unchanged,
		Failed:     cycle.Failed,
	}
	if d := cycle.Decision; d != nil {
		rec.ShouldScale = d.ShouldScale
		rec.Trigger = string(d.Trigger)
		rec.Reason = d.Reason
		rec.TargetNodes = d.TargetNodeCount
		rec.AsiaRequests = d.Observed.AsiaRequests
		rec.AsiaPercentage = d.Observed.AsiaPercentage
		rec.TotalRequests = d.Observed.TotalRequests
		rec.HotLatencyMs = d.Observed.HotLatencyMs
	}

	for _, res := range cycle.Results {
		a := RegionAction{
			Region:    res.Region,
			Cluster:   res.Cluster,
			NodePool:  res.NodePool,
			Status:    string(res.Status),
			TargetMin: res.TargetBounds.Min,
			TargetMax: res.TargetBounds.Max,
			Woken:     res.Woken,
			Message:   res.Message,
			Error:     res.Error,
		}
		if res.PreviousBounds != nil {
			prevMin, prevMax := res.PreviousBounds.Min, res.PreviousBounds.Max
			a.PreviousMin, a.PreviousMax = &prevMin, &prevMax
		}
		rec.Actions = append(rec.Actions, a)
	}

	return rec
}
