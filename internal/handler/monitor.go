package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"polyedge/internal/refresh"
	"polyedge/internal/repository"
)

// RefreshService is the slice of the refresher the HTTP layer needs.
type RefreshService interface {
	Refresh(ctx context.Context, triggeredBy string) (*refresh.Snapshot, error)
	Current() *refresh.Snapshot
}

// MonitorHandler serves the pricing pipeline's output. Read endpoints work
// from the in-memory snapshot; run history comes from the repository.
type MonitorHandler struct {
	Refresher RefreshService
	Repo      repository.Repository
	Logger    *zap.Logger
}

func (h *MonitorHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.POST("/refresh", h.triggerRefresh)
	group.GET("/opportunities", h.listOpportunities)
	group.GET("/instruments", h.listInstruments)
	group.GET("/instruments/:ticker", h.getInstrument)
	group.GET("/runs", h.listRuns)
}

// @Summary Trigger a refresh cycle
// @Description Runs the full pipeline synchronously. Rejected with 409 while another cycle is in flight.
// @Tags refresh
// @Produce json
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/refresh [post]
func (h *MonitorHandler) triggerRefresh(c *gin.Context) {
	if h.Refresher == nil {
		Error(c, http.StatusInternalServerError, "refresher unavailable", nil)
		return
	}
	snap, err := h.Refresher.Refresh(c.Request.Context(), "manual")
	if err != nil {
		if errors.Is(err, refresh.ErrBusy) {
			Error(c, http.StatusConflict, "refresh already in progress", nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Error("manual refresh failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "refresh failed", nil)
		return
	}
	Ok(c, gin.H{
		"runId":         snap.RunID,
		"generatedAt":   snap.GeneratedAt,
		"durationMs":    snap.DurationMS,
		"instruments":   len(snap.Instruments),
		"failed":        snap.Failed,
		"opportunities": len(snap.Opportunities),
	}, nil)
}

// @Summary Ranked opportunities
// @Description Top opportunities of the last completed cycle, ROI descending, with change markers.
// @Tags opportunities
// @Produce json
// @Success 200 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/v1/opportunities [get]
func (h *MonitorHandler) listOpportunities(c *gin.Context) {
	snap := h.currentSnapshot()
	if snap == nil {
		Error(c, http.StatusServiceUnavailable, "no refresh cycle has completed yet", nil)
		return
	}
	Ok(c, snap.Opportunities, snapshotMeta(snap))
}

// @Summary Tracked instruments
// @Description Instruments of the last completed cycle without their contract lists.
// @Tags instruments
// @Produce json
// @Success 200 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/v1/instruments [get]
func (h *MonitorHandler) listInstruments(c *gin.Context) {
	snap := h.currentSnapshot()
	if snap == nil {
		Error(c, http.StatusServiceUnavailable, "no refresh cycle has completed yet", nil)
		return
	}
	out := make([]gin.H, 0, len(snap.Instruments))
	for _, iv := range snap.Instruments {
		out = append(out, gin.H{
			"ticker":           iv.Ticker,
			"name":             iv.Name,
			"eventSlug":        iv.EventSlug,
			"eventTitle":       iv.EventTitle,
			"spotPrice":        iv.SpotPrice,
			"volatility":       iv.Volatility,
			"volatilitySource": iv.VolatilitySource,
			"dividendYield":    iv.DividendYield,
			"timeToExpiry":     iv.TimeToExpiry,
			"contracts":        len(iv.Contracts),
		})
	}
	Ok(c, out, snapshotMeta(snap))
}

// @Summary One instrument with contracts
// @Tags instruments
// @Produce json
// @Param ticker path string true "Ticker symbol"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/v1/instruments/{ticker} [get]
func (h *MonitorHandler) getInstrument(c *gin.Context) {
	snap := h.currentSnapshot()
	if snap == nil {
		Error(c, http.StatusServiceUnavailable, "no refresh cycle has completed yet", nil)
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	for _, iv := range snap.Instruments {
		if iv.Ticker == ticker {
			Ok(c, iv, snapshotMeta(snap))
			return
		}
	}
	Error(c, http.StatusNotFound, "instrument not tracked: "+ticker, nil)
}

// @Summary Refresh run history
// @Tags runs
// @Produce json
// @Param limit query int false "Max rows" default(50)
// @Success 200 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/v1/runs [get]
func (h *MonitorHandler) listRuns(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusServiceUnavailable, "run history requires a database", nil)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	runs, err := h.Repo.ListRefreshRuns(c.Request.Context(), limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("list runs failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "failed to list runs", nil)
		return
	}
	Ok(c, runs, nil)
}

func (h *MonitorHandler) currentSnapshot() *refresh.Snapshot {
	if h.Refresher == nil {
		return nil
	}
	return h.Refresher.Current()
}

func snapshotMeta(snap *refresh.Snapshot) map[string]any {
	return map[string]any{
		"runId":       snap.RunID,
		"generatedAt": snap.GeneratedAt,
		"triggeredBy": snap.TriggeredBy,
	}
}
