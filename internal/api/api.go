package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cryptoflow/internal/hub"
	"cryptoflow/internal/ingest"
	"cryptoflow/internal/obs"
)

const (
	DefaultTimeout      = 10 * time.Second
	ServiceName         = "cryptoflow"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"

	defaultLiquidationsLimit = 20
	defaultClimacticLimit    = 15
	defaultVolumeLimit       = 10
	maxLimit                 = 200
)

// StatusFunc reports the ingestion state.
type StatusFunc func() ingest.Status

type Option struct {
	Hub     *hub.Hub
	Source  hub.Source
	Status  StatusFunc
	Metrics *obs.Metrics
	// WS serves subscriber upgrades on /ws.
	WS   http.Handler
	Mode string
}

// Handler serves the read-only HTTP API and the websocket entry point.
type Handler struct {
	opt       Option
	startedAt time.Time
}

func NewHandler(opt Option) *Handler {
	if opt.Status == nil {
		opt.Status = func() ingest.Status { return ingest.Status{} }
	}
	return &Handler{opt: opt, startedAt: time.Now()}
}

func (h *Handler) Router() *gin.Engine {
	mode := h.opt.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	api := router.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/live-data", h.LiveData)
	api.GET("/liquidations", h.Liquidations)
	api.GET("/climactic-moves", h.ClimacticMoves)
	api.GET("/volume-analysis", h.VolumeAnalysis)
	api.GET("/market-movers", h.MarketMovers)
	api.GET("/options-flow", h.OptionsFlow)
	api.GET("/status", h.Status)
	api.GET("/stats", h.Stats)

	if h.opt.WS != nil {
		router.GET("/ws", gin.WrapH(h.opt.WS))
	}

	return router
}
