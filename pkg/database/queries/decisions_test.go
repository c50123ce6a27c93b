package queries

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

func newMockRepo(t *testing.T) (*DecisionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDecisionRepository(db), mock
}

func scaleUpCycle() *models.CycleResult {
	cycle := models.NewCycleResult("auto")
	cycle.Decision = &models.ScaleDecision{
		ShouldScale:     true,
		TargetRegions:   []string{"asia-southeast1"},
		TargetNodeCount: 1,
		Trigger:         models.TriggerGeographicTraffic,
		Reason:          "High Asia requests (85 >= 50)",
		Observed:        models.DecisionInputs{AsiaRequests: 85, AsiaPercentage: 15.1, TotalRequests: 565, HotLatencyMs: 150},
	}
	cycle.Results = []models.ClusterActionResult{{
		Region:         "asia-southeast1",
		Cluster:        "uporto-cd-gke-asia-southeast1",
		NodePool:       "cold-pool",
		Status:         models.ActionUpdated,
		PreviousBounds: &models.Bounds{},
		TargetBounds:   models.Bounds{Max: 1},
		Woken:          true,
	}}
	cycle.Finish()
	return cycle
}

func TestSaveCycle(t *testing.T) {
	repo, mock := newMockRepo(t)
	cycle := scaleUpCycle()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO autoscaler_cycles").
		WithArgs(cycle.ID, cycle.StartedAt, cycle.DurationMs, "auto", false, "", true,
			"geographic_traffic", "High Asia requests (85 >= 50)", 1, int64(85), 15.1, int64(565), 150.0, 1, 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO region_actions").
		WithArgs(cycle.ID, "asia-southeast1", "uporto-cd-gke-asia-southeast1", "cold-pool", "updated",
			sqlmock.AnyArg(), sqlmock.AnyArg(), 0, 1, true, "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveCycle(context.Background(), cycle))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCycle_RollsBackOnActionFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO autoscaler_cycles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO region_actions").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveCycle(context.Background(), scaleUpCycle())

	assert.ErrorContains(t, err, "asia-southeast1")
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCycle_SkippedCycleHasNoActions(t *testing.T) {
	repo, mock := newMockRepo(t)
	cycle := models.NewCycleResult("auto")
	cycle.Skipped = true
	cycle.SkipReason = "telemetry unavailable"
	cycle.Finish()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO autoscaler_cycles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveCycle(context.Background(), cycle))
	assert.NoError(t, mock.ExpectationsWereMet())
}

var cycleRowColumns = []string{
	"id", "started_at", "duration_ms", "action", "skipped", "skip_reason", "should_scale",
	"trigger", "reason", "target_nodes", "asia_requests", "asia_percentage",
	"total_requests", "hot_latency_ms", "succeeded", "unchanged", "failed",
}

func TestList(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows(cycleRowColumns).
		AddRow("c2", now, 12, "down", false, "", true, "manual", "Manual down to 0 nodes", 0, 0, 0.0, 0, 0.0, 1, 0, 0).
		AddRow("c1", now.Add(-time.Minute), 30, "auto", true, "traffic unavailable", false, "", "", 0, 0, 0.0, 0, 0.0, 0, 0, 0)
	mock.ExpectQuery("FROM autoscaler_cycles").
		WithArgs(now.Add(-time.Hour), now, 20, 0).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), now.Add(-time.Hour), now, 0, 0)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c2", records[0].ID)
	assert.Equal(t, "manual", records[0].Trigger)
	assert.True(t, records[1].Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM autoscaler_cycles WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrCycleNotFound)
}

func TestGetByID_WithActions(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM autoscaler_cycles WHERE id").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(cycleRowColumns).
			AddRow("c1", now, 40, "auto", false, "", true, "latency", "High latency to hot clusters (620ms >= 500ms)", 1, 10, 3.2, 310, 620.0, 1, 0, 0))
	mock.ExpectQuery("FROM region_actions").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{
			"region", "cluster", "node_pool", "status", "previous_min", "previous_max",
			"target_min", "target_max", "woken", "message", "error",
		}).AddRow("asia-southeast1", "uporto-cd-gke-asia-southeast1", "cold-pool", "updated", 0, 0, 0, 1, true, "ok", ""))

	rec, err := repo.GetByID(context.Background(), "c1")

	require.NoError(t, err)
	assert.Equal(t, "latency", rec.Trigger)
	require.Len(t, rec.Actions, 1)
	require.NotNil(t, rec.Actions[0].PreviousMax)
	assert.Equal(t, 0, *rec.Actions[0].PreviousMax)
	assert.Equal(t, 1, rec.Actions[0].TargetMax)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStats(t *testing.T) {
	repo, mock := newMockRepo(t)
	from, to := time.Now().Add(-24*time.Hour), time.Now()

	mock.ExpectQuery("FROM autoscaler_cycles").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"total", "skipped", "up", "down", "updated", "failed"}).
			AddRow(288, 3, 4, 2, 6, 1))

	stats, err := repo.GetStats(context.Background(), from, to)

	require.NoError(t, err)
	assert.Equal(t, 288, stats.TotalCycles)
	assert.Equal(t, 3, stats.SkippedCycles)
	assert.Equal(t, 4, stats.ScaleUpCount)
	assert.Equal(t, 2, stats.ScaleDownCount)
	assert.Equal(t, 1, stats.RegionsFailed)
}
