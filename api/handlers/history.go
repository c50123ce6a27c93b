package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/config"
	"github.com/OldStager01/cold-autoscaler/pkg/database/queries"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DecisionStore reads persisted cycles.
type DecisionStore interface {
	List(ctx context.Context, from, to time.Time, limit, offset int) ([]queries.CycleRecord, error)
	GetByID(ctx context.Context, id string) (*queries.CycleRecord, error)
	GetStats(ctx context.Context, from, to time.Time) (*queries.DecisionStats, error)
}

// HistoryHandler serves persisted cycle decisions. Without a store every
// endpoint answers 503.
type HistoryHandler struct {
	store  DecisionStore
	config *config.APIConfig
}

func NewHistoryHandler(store DecisionStore, cfg *config.APIConfig) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		config: cfg,
	}
}

type HistoryResponse struct {
	From   time.Time             `json:"from"`
	To     time.Time             `json:"to"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Count  int                   `json:"count"`
	Data   []queries.CycleRecord `json:"data"`
}

func (h *HistoryHandler) getDefaultLimit() int {
	if h.config != nil && h.config.DefaultLimit > 0 {
		return h.config.DefaultLimit
	}
	return 20
}

func (h *HistoryHandler) getMaxLimit() int {
	if h.config != nil && h.config.MaxLimit > 0 {
		return h.config.MaxLimit
	}
	return 100
}

func (h *HistoryHandler) available(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "decision history requires a database"})
		return false
	}
	return true
}

// List godoc
// @Summary      List past autoscaler iterations
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Param        from    query     string  false  "RFC3339 start"
// @Param        to      query     string  false  "RFC3339 end"
// @Param        range   query     string  false  "Relative window such as 30m, 6h, 7d"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Page offset"
// @Success      200     {object}  HistoryResponse
// @Failure      503     {object}  ErrorResponse
// @Router       /autoscaler/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	if !h.available(c) {
		return
	}

	from, to := h.parseTimeRange(c)
	limit := h.parseLimit(c, h.getDefaultLimit())
	offset := h.parseInt(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	records, err := h.store.List(c.Request.Context(), from, to, limit, offset)
	if err != nil {
		logger.ErrorCtxf(c.Request.Context(), "Failed to list cycles: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: offset,
		Count:  len(records),
		Data:   records,
	})
}

// Get godoc
// @Summary      One iteration with its per-region actions
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Cycle ID"
// @Success      200  {object}  queries.CycleRecord
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /autoscaler/history/{id} [get]
func (h *HistoryHandler) Get(c *gin.Context) {
	if !h.available(c) {
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid cycle id"})
		return
	}

	record, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, queries.ErrCycleNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "cycle not found"})
			return
		}
		logger.ErrorCtxf(c.Request.Context(), "Failed to fetch cycle %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch cycle"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// Stats godoc
// @Summary      Aggregate decision counts over a window
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Param        from   query     string  false  "RFC3339 start"
// @Param        to     query     string  false  "RFC3339 end"
// @Param        range  query     string  false  "Relative window such as 30m, 6h, 7d"
// @Success      200    {object}  queries.DecisionStats
// @Failure      503    {object}  ErrorResponse
// @Router       /autoscaler/stats [get]
func (h *HistoryHandler) Stats(c *gin.Context) {
	if !h.available(c) {
		return
	}

	from, to := h.parseTimeRange(c)
	stats, err := h.store.GetStats(c.Request.Context(), from, to)
	if err != nil {
		logger.ErrorCtxf(c.Request.Context(), "Failed to compute stats: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// parseTimeRange defaults to the last 24 hours.
func (h *HistoryHandler) parseTimeRange(c *gin.Context) (time.Time, time.Time) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	if fromStr := c.Query("from"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = parsed
		}
	}

	if toStr := c.Query("to"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = parsed
		}
	}

	if rangeStr := c.Query("range"); rangeStr != "" {
		from = to.Add(-h.parseDuration(rangeStr))
	}

	return from, to
}

func (h *HistoryHandler) parseLimit(c *gin.Context, defaultLimit int) int {
	maxLimit := h.getMaxLimit()
	limit := defaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func (h *HistoryHandler) parseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if parsed, err := strconv.Atoi(s); err == nil {
		return parsed
	}
	return defaultVal
}

// parseDuration accepts m, h and d suffixes and falls back to one hour.
func (h *HistoryHandler) parseDuration(s string) time.Duration {
	if len(s) < 2 {
		return time.Hour
	}

	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return time.Hour
	}

	switch s[len(s)-1] {
	case 'm':
		return time.Duration(value) * time.Minute
	case 'h':
		return time.Duration(value) * time.Hour
	case 'd':
		return time.Duration(value) * 24 * time.Hour
	default:
		return time.Hour
	}
}
