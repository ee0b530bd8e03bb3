package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"

	"cryptoflow/internal/alert"
	"cryptoflow/internal/analytics"
	"cryptoflow/internal/api"
	"cryptoflow/internal/config"
	"cryptoflow/internal/gateway"
	"cryptoflow/internal/hub"
	"cryptoflow/internal/ingest"
	"cryptoflow/internal/ingest/binance"
	"cryptoflow/internal/model"
	"cryptoflow/internal/model/enum"
	"cryptoflow/internal/obs"
	"cryptoflow/internal/storage"
	"cryptoflow/pkg/conn"
	"cryptoflow/pkg/websocket"
)

const (
	shutdownTimeout    = 5 * time.Second
	volumeRollInterval = time.Minute
	readHeaderTimeout  = 10 * time.Second
	restClientTimeout  = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("flow: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logs.SetDefault(logs.New(logLevel(cfg.Log.Level)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Infof("flow: shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Profiling.Enabled {
		profiler, err := startProfiler(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	metrics := obs.NewMetrics()

	store, closeStore, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer closeStore()

	mirror, closeMirror, err := openMirror(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeMirror()

	cache := hub.NewSnapshotCache(mirror)
	if n := cache.Warm(ctx); n > 0 {
		logs.Infof("flow: restored %d cached payloads", n)
	}

	rest := binance.NewClient(&http.Client{Timeout: restClientTimeout}, cfg.Binance.RestURL)
	source := storage.NewSource(store, rest, analytics.NewOptionsFlow(uint64(time.Now().UnixNano()), nil))
	sink := storage.NewSink(store, storage.SinkOption{Metrics: metrics})
	tracker := analytics.NewVolumeTracker()

	groups, err := binance.Groups(binance.GroupOption{
		SpotURL:      cfg.Binance.WSURL,
		FuturesURL:   cfg.Binance.FuturesWSURL,
		TradeSymbols: cfg.Binance.TradeSymbols,
		DepthSymbols: cfg.Binance.DepthSymbols,
	})
	if err != nil {
		return err
	}

	supervisor, err := ingest.New(ingest.Option{
		Groups: groups,
		Dialer: websocket.NewDialer(websocket.DialerOption{
			ReadTimeout: cfg.Ingest.ReadTimeout,
		}),
		Backoff: websocket.Backoff{
			Base:        cfg.Ingest.BackoffBase,
			Max:         cfg.Ingest.BackoffMax,
			MaxAttempts: cfg.Ingest.MaxReconnect,
		},
		Thresholds:     ingest.DefaultThresholds(),
		StartupTimeout: cfg.Ingest.StartupTimeout,
		PingInterval:   cfg.Ingest.PingInterval,
		Buffer:         cfg.Ingest.Buffer,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}

	broadcast := hub.New(hub.Option{
		QueueSize:         cfg.Hub.QueueSize,
		LivenessTimeout:   cfg.Hub.LivenessTimeout,
		HeartbeatInterval: cfg.Hub.HeartbeatInterval,
		Metrics:           metrics,
	}, cache)

	handlers := []struct {
		kind    enum.EventKind
		handler ingest.Handler
	}{
		{enum.EventTicker, broadcast.HandleEvent},
		{enum.EventLiquidationAlert, broadcast.HandleEvent},
		{enum.EventClimacticMove, broadcast.HandleEvent},
		{enum.EventAggTrade, tracker.HandleEvent},
		{enum.EventAggTrade, sink.HandleEvent},
		{enum.EventLiquidation, sink.HandleEvent},
		{enum.EventClimacticMove, sink.HandleEvent},
	}
	for _, h := range handlers {
		if err := supervisor.OnEvent(h.kind, h.handler); err != nil {
			return err
		}
	}

	if cfg.Kafka.Enabled {
		writer, err := conn.NewKafkaWriter(conn.KafkaOption{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			return err
		}
		defer func() { _ = writer.Close() }()

		publisher := alert.NewPublisher(writer)
		for _, kind := range publisher.Kinds() {
			if err := supervisor.OnEvent(kind, publisher.HandleEvent); err != nil {
				return err
			}
		}
		logs.Infof("flow: publishing alerts to kafka topic %s", cfg.Kafka.Topic)
	}

	router := api.NewHandler(api.Option{
		Hub:     broadcast,
		Source:  source,
		Status:  supervisor.Status,
		Metrics: metrics,
		WS:      gateway.New(broadcast),
		Mode:    cfg.App.Mode,
	}).Router()
	server := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return supervisor.Run(ctx)
	})
	eg.Go(func() error {
		return broadcast.Run(ctx, hub.Refreshers(source, cache, hub.DefaultRefreshOption()))
	})
	eg.Go(func() error {
		return sink.Run(ctx)
	})
	eg.Go(func() error {
		tracker.Run(ctx, volumeRollInterval, func(s model.VolumeSample) { _ = sink.RecordVolume(s) })
		return nil
	})
	eg.Go(func() error {
		return storage.Retention{Store: store, Days: cfg.Retention.Days}.Run(ctx)
	})
	eg.Go(func() error {
		select {
		case <-supervisor.Ready():
			logs.Infof("flow: ingestion ready, degraded groups: %v", supervisor.DegradedGroups())
		case <-ctx.Done():
		}
		return nil
	})
	eg.Go(func() error {
		logs.Infof("flow: listening on %s", cfg.App.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = eg.Wait()
	logs.Infof("flow: stopped")
	return err
}

func openStore(ctx context.Context, cfg config.DB) (storage.Store, func(), error) {
	if !cfg.Enabled {
		logs.Infof("flow: database disabled, keeping recent activity in memory")
		return storage.NewMemory(0), func() {}, nil
	}

	pg, err := conn.NewPostgres(ctx, conn.PostgresOption{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Name,
		SSLMode:  cfg.SSLMode,
	})
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewPostgres(pg.DB())
	if err := store.Migrate(ctx); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	return store, func() { _ = pg.Close() }, nil
}

func openMirror(ctx context.Context, cfg config.Redis) (hub.Mirror, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	rdb, err := conn.NewRedis(ctx, conn.RedisOption{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		return nil, nil, err
	}
	return storage.NewRedisMirror(rdb, 0), func() { _ = rdb.Close() }, nil
}

func startProfiler(cfg *config.Config) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.App.Name,
		ServerAddress:   cfg.Profiling.Server,
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}

type profilerLogger struct{}

func (profilerLogger) Infof(string, ...any)              {}
func (profilerLogger) Debugf(string, ...any)             {}
func (profilerLogger) Errorf(format string, args ...any) { logs.Errorf("pyroscope: "+format, args...) }

// logLevel maps the configured name to a level, defaulting to info.
func logLevel(level string) logs.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return logs.NewLevel(strings.TrimSpace(level))
	default:
		return logs.LevelInfo
	}
}
