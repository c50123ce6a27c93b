package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/OldStager01/cold-autoscaler/api/middleware"
	"github.com/OldStager01/cold-autoscaler/internal/autoscaler"
	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/policy"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
	"github.com/OldStager01/cold-autoscaler/pkg/validation"
	"github.com/gin-gonic/gin"
)

// LoopController is the part of the autoscaler loop the API drives.
type LoopController interface {
	RunOnce(ctx context.Context, trigger autoscaler.Trigger) (*models.CycleResult, error)
	Start() error
	Stop()
	Status() autoscaler.Status
	StartedAt() time.Time
	Interval() time.Duration
	Schedule() autoscaler.Schedule
	LastCycle() *models.CycleResult
}

// CircuitReporter exposes the telemetry breaker states.
type CircuitReporter interface {
	CircuitStates() map[string]string
}

type AutoscalerSettings struct {
	Thresholds  models.ScalingThresholds
	HotRegions  []string
	ColdRegions []string
	RunTimeout  time.Duration
}

type AutoscalerHandler struct {
	loop     LoopController
	circuits CircuitReporter
	settings AutoscalerSettings
}

func NewAutoscalerHandler(loop LoopController, circuits CircuitReporter, settings AutoscalerSettings) *AutoscalerHandler {
	if settings.RunTimeout <= 0 {
		settings.RunTimeout = 10 * time.Minute
	}
	return &AutoscalerHandler{
		loop:     loop,
		circuits: circuits,
		settings: settings,
	}
}

type RunRequest struct {
	Action      string `json:"action" binding:"omitempty,oneof=up down auto" example:"auto"`
	TargetNodes int    `json:"target_nodes" binding:"gte=0" example:"1"`
	Reason      string `json:"reason" binding:"max=200"`
}

type RunResponse struct {
	CycleID     string                       `json:"cycle_id"`
	Action      string                       `json:"action"`
	Skipped     bool                         `json:"skipped"`
	SkipReason  string                       `json:"skip_reason,omitempty"`
	ShouldScale bool                         `json:"should_scale"`
	Trigger     string                       `json:"trigger,omitempty"`
	Reason      string                       `json:"reason,omitempty"`
	TargetNodes int                          `json:"target_nodes"`
	Succeeded   int                          `json:"succeeded"`
	Unchanged   int                          `json:"unchanged"`
	Failed      int                          `json:"failed"`
	Summary     string                       `json:"summary"`
	DurationMs  int64                        `json:"duration_ms"`
	Results     []models.ClusterActionResult `json:"results"`
}

func newRunResponse(cycle *models.CycleResult) RunResponse {
	resp := RunResponse{
		CycleID:    cycle.ID,
		Action:     cycle.Action,
		Skipped:    cycle.Skipped,
		SkipReason: cycle.SkipReason,
		Succeeded:  cycle.Succeeded,
		Unchanged:  cycle.Unchanged,
		Failed:     cycle.Failed,
		Summary:    cycle.Summary(),
		DurationMs: cycle.DurationMs,
		Results:    cycle.Results,
	}
	if d := cycle.Decision; d != nil {
		resp.ShouldScale = d.ShouldScale
		resp.Trigger = string(d.Trigger)
		resp.Reason = d.Reason
		resp.TargetNodes = d.TargetNodeCount
	}
	return resp
}

type StatusResponse struct {
	Status      string                   `json:"status"`
	StartedAt   *time.Time               `json:"started_at,omitempty"`
	Interval    string                   `json:"interval"`
	Schedule    string                   `json:"schedule"`
	HotRegions  []string                 `json:"hot_regions"`
	ColdRegions []string                 `json:"cold_regions"`
	Thresholds  models.ScalingThresholds `json:"thresholds"`
	Circuits    map[string]string        `json:"circuits,omitempty"`
	LastCycle   *RunResponse             `json:"last_cycle,omitempty"`
}

// Run godoc
// @Summary      Run one autoscaler iteration
// @Description  Runs synchronously. up and down bypass the policy; auto follows telemetry.
// @Tags         autoscaler
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      RunRequest  false  "Trigger"
// @Success      200      {object}  RunResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      503      {object}  RunResponse
// @Router       /autoscaler/run [post]
func (h *AutoscalerHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Details: err.Error()})
		return
	}

	action, err := policy.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := validation.ValidateNodeCount(req.TargetNodes); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.settings.RunTimeout)
	defer cancel()

	cycle, err := h.loop.RunOnce(ctx, autoscaler.Trigger{
		Action:      action,
		TargetNodes: req.TargetNodes,
		Reason:      validation.SanitizeString(req.Reason),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logger.FromContext(c.Request.Context()).
		WithField("operator", middleware.GetUsername(c)).
		Infof("Manual %s run: %s", action, cycle.Summary())

	status := http.StatusOK
	if cycle.Skipped {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, newRunResponse(cycle))
}

// Status godoc
// @Summary      Loop status, thresholds and last iteration
// @Tags         autoscaler
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /autoscaler/status [get]
func (h *AutoscalerHandler) Status(c *gin.Context) {
	resp := StatusResponse{
		Status:      string(h.loop.Status()),
		Interval:    h.loop.Interval().String(),
		Schedule:    string(h.loop.Schedule()),
		HotRegions:  h.settings.HotRegions,
		ColdRegions: h.settings.ColdRegions,
		Thresholds:  h.settings.Thresholds,
	}
	if started := h.loop.StartedAt(); !started.IsZero() {
		resp.StartedAt = &started
	}
	if h.circuits != nil {
		resp.Circuits = h.circuits.CircuitStates()
	}
	if last := h.loop.LastCycle(); last != nil {
		r := newRunResponse(last)
		resp.LastCycle = &r
	}

	c.JSON(http.StatusOK, resp)
}

// Start godoc
// @Summary      Start the scheduled loop
// @Tags         autoscaler
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MessageResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /autoscaler/start [post]
func (h *AutoscalerHandler) Start(c *gin.Context) {
	if h.loop.Status() == autoscaler.StatusRunning {
		c.JSON(http.StatusOK, MessageResponse{Message: "autoscaler already running"})
		return
	}
	if err := h.loop.Start(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, autoscaler.ErrStopping) {
			status = http.StatusConflict
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "autoscaler started"})
}

// Stop godoc
// @Summary      Stop the scheduled loop
// @Description  Waits for the in-flight iteration to finish.
// @Tags         autoscaler
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MessageResponse
// @Router       /autoscaler/stop [post]
func (h *AutoscalerHandler) Stop(c *gin.Context) {
	if h.loop.Status() != autoscaler.StatusRunning {
		c.JSON(http.StatusOK, MessageResponse{Message: "autoscaler already stopped"})
		return
	}
	h.loop.Stop()
	c.JSON(http.StatusOK, MessageResponse{Message: "autoscaler stopped"})
}
