package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"cryptoflow/internal/model"
	"cryptoflow/pkg/exception"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"service":     ServiceName,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.startedAt).Seconds(),
		"connections": h.opt.Hub.Len(),
		"ready":       h.opt.Status().Ready,
	})
}

func (h *Handler) LiveData(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	data := model.LiveData{Timestamp: time.Now()}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		data.Liquidations, err = h.opt.Source.FetchRecentLiquidations(ctx, defaultLiquidationsLimit)
		return err
	})
	eg.Go(func() (err error) {
		data.ClimacticMoves, err = h.opt.Source.FetchClimacticMoves(ctx, defaultClimacticLimit)
		return err
	})
	eg.Go(func() (err error) {
		data.VolumeAnalysis, err = h.opt.Source.FetchVolumeAnalysis(ctx, defaultVolumeLimit)
		return err
	})
	if err := eg.Wait(); err != nil {
		h.handleError(c, err)
		return
	}

	data.Liquidations = emptyIfNil(data.Liquidations)
	data.ClimacticMoves = emptyIfNil(data.ClimacticMoves)
	data.VolumeAnalysis = emptyIfNil(data.VolumeAnalysis)
	c.JSON(http.StatusOK, data)
}

func (h *Handler) Liquidations(c *gin.Context) {
	limit, ok := h.limit(c, defaultLiquidationsLimit)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	rows, err := h.opt.Source.FetchRecentLiquidations(ctx, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(rows))
}

func (h *Handler) ClimacticMoves(c *gin.Context) {
	limit, ok := h.limit(c, defaultClimacticLimit)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	rows, err := h.opt.Source.FetchClimacticMoves(ctx, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(rows))
}

func (h *Handler) VolumeAnalysis(c *gin.Context) {
	limit, ok := h.limit(c, defaultVolumeLimit)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	rows, err := h.opt.Source.FetchVolumeAnalysis(ctx, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(rows))
}

func (h *Handler) MarketMovers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	movers, err := h.opt.Source.FetchMarketMovers(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, movers.Normalize())
}

func (h *Handler) OptionsFlow(c *gin.Context) {
	rows, err := h.opt.Source.FetchOptionsFlow(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(rows))
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.opt.Status())
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"hub":     h.opt.Hub.Stats(),
		"metrics": h.opt.Metrics.Snapshot(),
	})
}

// limit reads ?limit, falling back to def. It writes a 400 when invalid.
func (h *Handler) limit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxLimit)})
		return 0, false
	}
	return n, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	logs.Errorf("api: %s %s request_id=%s, err: %+v", c.Request.Method, c.Request.URL.Path, c.GetString(RequestIDContextKey), err)

	status := http.StatusInternalServerError
	if errors.Is(err, exception.ErrSourceUnavailable) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": http.StatusText(status)})
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
