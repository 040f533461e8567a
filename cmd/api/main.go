package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dmsapi/docs"
	"dmsapi/internal/audit"
	"dmsapi/internal/config"
	"dmsapi/internal/database"
	"dmsapi/internal/database/migration"
	"dmsapi/internal/decision"
	handlers "dmsapi/internal/http/handler"
	"dmsapi/internal/http/middleware"
	"dmsapi/internal/logging"
	"dmsapi/internal/metrics"
	"dmsapi/internal/naming"
	tracing "dmsapi/internal/otel"
	"dmsapi/internal/repository/postgres"
	"dmsapi/internal/resilience"
	"dmsapi/internal/service"
	"dmsapi/internal/storage"
	"dmsapi/internal/suggest"
)

const shutdownTimeout = 10 * time.Second

// @title DMS API
// @version 1.0
// @description Document management with DKC filename validation, versioning and quarantine.
// @BasePath /
func main() {
	// .env is auto-loaded if present; real environment variables win.
	cfg := config.Load()
	logger := logging.NewJSONLogger("dmsapi", cfg.LogLevel, cfg.Location())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server_failed", "error", err.Error())
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		return err
	}

	minioStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return err
	}
	objStore := storage.NewResilient(minioStore, resilience.NewExecutor(resilience.DefaultConfig(), logger.With("dependency", "minio")))

	classifier := naming.NewClassifier()
	if path := cfg.Upload.DocTypesFile; path != "" {
		if classifier, err = naming.LoadClassifier(path); err != nil {
			return err
		}
	}
	keys, err := naming.ParseKeyStrategy(cfg.Upload.DedupKey)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}
	uploadMetrics, err := metrics.NewUploadMetrics(reg)
	if err != nil {
		return err
	}

	docRepo := postgres.NewDocumentPostgres(db)
	quarantineRepo := postgres.NewQuarantinePostgres(db)
	tagRepo := postgres.NewTagPostgres(db)
	shareRepo := postgres.NewSharePostgres(db)
	auditRepo := postgres.NewAuditPostgres(db)

	sinks := []audit.Sink{audit.NewStoreSink(auditRepo)}
	if url := cfg.Audit.NATSURL; url != "" {
		nc, err := audit.ConnectNATS(url, logger)
		if err != nil {
			// Audit fan-out is optional; the database sink still records everything.
			logger.Warn("nats_unavailable", "component", "audit", "error", err.Error())
		} else {
			defer nc.Drain()
			natsExec := resilience.NewExecutor(resilience.DefaultConfig(), logger.With("dependency", "nats"))
			sinks = append(sinks, audit.NewNATSSink(nc, cfg.Audit.NATSSubject, natsExec))
		}
	}
	recorder := audit.NewAsyncLogger(logger, config.Seconds(cfg.Audit.TimeoutSec), cfg.Audit.QueueSize, sinks...)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := recorder.Close(sctx); err != nil {
			logger.Error("audit_flush_failed", "component", "audit", "error", err.Error())
		}
	}()

	var suggester suggest.Suggester
	if url := cfg.Suggest.OllamaURL; url != "" {
		retry := resilience.DefaultConfig()
		retry.RetryMaxAttempts = 2
		suggester = suggest.NewOllama(url, cfg.Suggest.Model, config.Seconds(cfg.Suggest.TimeoutSec),
			resilience.NewExecutor(retry, logger.With("dependency", "ollama")), classifier.Known())
	}

	timeout := config.Seconds(cfg.Upload.StoreTimeoutSec)
	presignTTL := time.Duration(cfg.Share.PresignExpiryMin) * time.Minute

	uploads := service.NewUploadService(service.UploadDeps{
		Engine:     decision.NewEngine(docRepo, keys),
		Store:      objStore,
		Documents:  docRepo,
		Quarantine: quarantineRepo,
		Audit:      recorder,
		Metrics:    uploadMetrics,
		Logger:     logger,
		Timeout:    timeout,
	})
	svcs := handlers.Services{
		Documents: service.NewDocumentService(service.DocumentDeps{
			Store:      objStore,
			Documents:  docRepo,
			Tags:       tagRepo,
			Classifier: classifier,
			Audit:      recorder,
			Metrics:    uploadMetrics,
			Logger:     logger,
			Timeout:    timeout,
			PresignTTL: presignTTL,
		}),
		Uploads:    uploads,
		Quarantine: service.NewQuarantineService(objStore, quarantineRepo, uploads, recorder, logger, timeout),
		Tags:       service.NewTagService(tagRepo, recorder, timeout),
		Shares: service.NewShareService(service.ShareDeps{
			Shares:      shareRepo,
			Documents:   docRepo,
			Store:       objStore,
			Audit:       recorder,
			Timeout:     timeout,
			DefaultDays: cfg.Share.DefaultExpiryDays,
			PresignTTL:  presignTTL,
		}),
		Audit:         service.NewAuditService(auditRepo, timeout),
		Rename:        service.NewRenameService(suggester, config.Seconds(cfg.Suggest.TimeoutSec)),
		UploadLimiter: middleware.RateLimit(cfg.Upload.RateLimitRPS, cfg.Upload.RateLimitBurst),
	}

	app := newApp(cfg, db, reg, httpMetrics, svcs)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_started", "addr", ":"+cfg.Port, "dedup_key", string(keys))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("server_stopping")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func newApp(cfg *config.AppConfig, db *sql.DB, reg *prometheus.Registry, httpMetrics *middleware.PrometheusMiddleware, svcs handlers.Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.Upload.MaxBodyMB * 1024 * 1024,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggerWithWriter(os.Stdout, cfg.Location()))
	app.Use(httpMetrics.Handler())
	app.Use(middleware.Identity())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, db, svcs)
	return app
}
