package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cityq/eticket-service/internal/broker"
	"cityq/eticket-service/internal/config"
	"cityq/eticket-service/internal/httpapi"
	"cityq/eticket-service/internal/kiosk"
	"cityq/eticket-service/internal/logging"
	"cityq/eticket-service/internal/signature"
	"cityq/eticket-service/internal/store/postgres"
	"cityq/eticket-service/internal/telemetry"
	"cityq/eticket-service/internal/ticketing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	shutdownTracing := telemetry.Setup("eticket-service", cfg.OTLPEndpoint, cfg.OTLPInsecure, logger)

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	kioskClient := kiosk.NewClient(cfg.KioskTimeout)
	codec := signature.NewCodec(cfg.SignatureSegments, cfg.SignatureSegmentLength)

	var publisher ticketing.Publisher
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := broker.NewPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			// Notifications are best effort; the engine runs without them.
			logger.Warn("notification broker unavailable", "error", err)
		} else {
			defer amqpPublisher.Close()
			publisher = amqpPublisher
		}
	}

	engine := ticketing.New(st, kioskClient, codec, publisher, logger, ticketing.Config{
		DailyQuota:      cfg.DailyQuota,
		ResetCutoffHour: cfg.ResetCutoffHour,
		FanoutLookahead: cfg.FanoutLookahead,
		Language:        cfg.Language,
	})
	handler := httpapi.NewHandler(engine, st)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:      cfg.RateLimitPerMinute,
		IPBurst:          cfg.RateLimitBurst,
		SessionPerMinute: cfg.SessionRateLimitPerMinute,
		SessionBurst:     cfg.SessionRateLimitBurst,
	})

	var root http.Handler = httpapi.AuthMiddleware(st, handler.Routes())
	root = httpapi.LoggingMiddleware(logger, root)
	root = httpapi.MetricsMiddleware(root)
	root = limiter.Middleware(root)
	root = otelhttp.NewHandler(root, "eticket-service")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("eticket-service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("tracing shutdown", "error", err)
	}
}
