package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"gridfeed/internal/config"
	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/application/usecase"
	"gridfeed/internal/modules/prices/domain"
	"gridfeed/internal/modules/prices/infrastructure"
	transport "gridfeed/internal/modules/prices/interface"
	"gridfeed/internal/platform/broker"
	"gridfeed/internal/shared/credentials"
	"gridfeed/internal/shared/httputil"
	"gridfeed/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.LogDir), slog.String("level", cfg.LogLevel), slog.String("format", cfg.LogFormat))
	slog.Info("boot config resolved", slog.Any("brokers", cfg.KafkaBrokers), slog.String("group", cfg.KafkaGroupID), slog.String("backend", cfg.CacheBackend))

	resolve := func() (credentials.Bundle, error) {
		return credentials.Resolve(cfg.CredentialSource())
	}
	open := func(ctx context.Context, bundle credentials.Bundle) (port.MessageSource, error) {
		tlsCfg, err := bundle.TLSConfig()
		if err != nil {
			return nil, err
		}
		return broker.Open(ctx, broker.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topics: map[domain.Topic]string{
				domain.TopicCables:    cfg.KafkaTopicCables,
				domain.TopicExchanges: cfg.KafkaTopicExchanges,
			},
			TLS:         tlsCfg,
			DialTimeout: cfg.KafkaDialTimeout,
			ReadMaxWait: cfg.KafkaReadMaxWait,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = httputil.JSONSerializer{}
	e.Logger.SetOutput(log.Writer())

	var (
		store    port.PriceStore
		status   *usecase.StatusAggregator
		consumer *usecase.StreamConsumer
	)

	switch cfg.CacheBackend {
	case config.BackendRedis:
		redisStore, err := infrastructure.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("redis store init failed", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		status = usecase.NewStatusAggregator(redisStore, nil, redisStore)

		syncJob := usecase.NewSyncJob(resolve, open, redisStore, redisStore, cfg.SyncSecret, cfg.SyncBudget)
		e.POST("/internal/sync", transport.NewSyncHandler(syncJob))
		slog.Info("durable topology ready", slog.String("redis", cfg.RedisAddr), slog.Duration("syncBudget", cfg.SyncBudget))
	default:
		memStore := infrastructure.NewMemoryStore()
		store = memStore
		consumer = usecase.NewStreamConsumer(resolve, open, memStore)
		consumer.Start(ctx)
		status = usecase.NewStatusAggregator(memStore, consumer, nil)
		slog.Info("streaming topology ready")
	}

	e.GET("/status", transport.NewStatusHandler(status))
	e.GET("/cables/:date", transport.NewPriceDayHandler(store, domain.TopicCables))
	e.GET("/exchanges/:date", transport.NewPriceDayHandler(store, domain.TopicExchanges))
	e.GET("/dates", transport.NewDatesHandler(store))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	// Esperar señales
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")

	cancel()
	if consumer != nil {
		consumer.Shutdown()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", slog.Any("error", err))
		e.Close()
	}
}

func setupLogging(cfg *config.Config) (*os.File, *slog.Logger, error) {
	dir := cfg.LogDir
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	fileName := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".log")
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	writer := io.MultiWriter(os.Stdout, file)
	logger := logging.New(writer, logging.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
	})
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")

	return file, logger, nil
}
