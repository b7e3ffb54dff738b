// cmd/scout/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"clinic-scout/internal/classifier"
	awsclients "clinic-scout/internal/common/aws"
	"clinic-scout/internal/common/config"
	"clinic-scout/internal/common/database"
	scouterrors "clinic-scout/internal/common/errors"
	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/dispatcher"
	"clinic-scout/internal/extractor"
	"clinic-scout/internal/pipeline"
	"clinic-scout/internal/report"
	"clinic-scout/internal/seed"
	"clinic-scout/internal/store"
	"clinic-scout/internal/webhook"
)

func main() {
	var (
		configPath = flag.String("config", "", "explicit config file path")
		cronSpec   = flag.String("cron", "", "cron expression for recurring runs (default: one-shot)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zlog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zlog.Sync() }()
	log := logger.NewZapAdapter(zlog)

	if err := run(cfg, log, zlog, *cronSpec); err != nil {
		if scouterrors.IsFatal(err) {
			zlog.Fatal("startup failed",
				zap.String("code", string(scouterrors.Code(err))), zap.Error(err))
		}
		zlog.Fatal("run failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func run(cfg *config.Config, log logger.Logger, zlog *zap.Logger, cronSpec string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return scouterrors.NewConfigMissingError("timezone", err.Error())
	}

	// Seed list is required before anything else spins up.
	targets, err := seed.Load(cfg.Scraper.SeedFile)
	if err != nil {
		return scouterrors.NewConfigMissingError("seed file", err.Error())
	}
	zlog.Info("seed loaded", zap.Int("targets", len(targets)), zap.String("file", cfg.Scraper.SeedFile))

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return scouterrors.NewConfigMissingError("postgres", err.Error())
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		return scouterrors.NewConfigMissingError("postgres", err.Error())
	}
	if err := store.EnsureSchema(ctx, pg.DB); err != nil {
		return err
	}

	// Redis backs the duplicate-alert guard; absent config degrades to no
	// guard rather than failing the run.
	var guard dispatcher.DedupeGuard
	if cfg.Database.Redis.Address != "" {
		rds, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zlog.Warn("redis unavailable, duplicate-alert guard disabled", zap.Error(err))
		} else {
			defer rds.Close()
			guard = rds
		}
	}

	// SNS is the SMS channel; disabled or unreachable means log-only mode.
	var snsClient dispatcher.SNSService
	if cfg.Integrations.AWS.SNS.Enabled {
		c, err := awsclients.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zlog.Warn("SNS unavailable, falling back to log-only sends", zap.Error(err))
		} else {
			snsClient = c
		}
	}

	var sesClient report.SESService
	if cfg.Integrations.AWS.SES.Enabled {
		c, err := awsclients.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zlog.Warn("SES unavailable, batch summary email disabled", zap.Error(err))
		} else {
			sesClient = c
		}
	}

	clinics := store.NewClinicStore(pg.DB, log, loc)
	subscribers := store.NewSubscriberStore(pg.DB, log)
	auditLog := store.NewNotificationLog(pg.DB, log)

	disp := dispatcher.New(&dispatcher.Config{
		SMSEnabled: cfg.Integrations.AWS.SNS.Enabled && snsClient != nil,
		SenderID:   cfg.Integrations.AWS.SNS.DefaultSMSSenderID,
	}, snsClient, auditLog, guard, log)

	fetcher := extractor.NewRenderClient(cfg.APIs.Renderer.BaseURL, cfg.APIs.Renderer.Token)
	ext := extractor.New(fetcher, log,
		config.GetDuration(cfg.Scraper.PageTimeout),
		config.GetDuration(cfg.Scraper.SubpageTimeout),
		cfg.Scraper.MaxSubpages)

	cls := classifier.New(&classifier.Config{
		BaseURL: cfg.APIs.GenAI.BaseURL,
		APIKey:  cfg.APIs.GenAI.APIKey,
		Timeout: config.GetDuration(cfg.APIs.GenAI.Timeout),
	}, log)

	pipe := pipeline.New(ext, cls, clinics, subscribers, disp, pipeline.Preferences{
		Languages: cfg.Scraper.PreferredLanguages,
		Areas:     cfg.Scraper.PreferredAreas,
	}, log)

	reporter := report.New(&report.Config{
		Enabled:   cfg.Integrations.AWS.SES.Enabled && sesClient != nil,
		FromEmail: cfg.Integrations.AWS.SES.FromEmail,
		Recipient: cfg.Integrations.AWS.SES.SummaryRecipient,
	}, sesClient, log)

	startOpsServer(cfg, subscribers, disp, log, zlog)

	runBatch := func() {
		started := time.Now()
		summary := pipe.Run(ctx, targets)
		reporter.SendSummary(ctx, started, summary)
	}

	if cronSpec == "" {
		runBatch()
		return nil
	}

	// Recurring mode: run on the given schedule until interrupted.
	c := cron.New()
	if _, err := c.AddFunc(cronSpec, runBatch); err != nil {
		return scouterrors.NewConfigMissingError("cron expression", err.Error())
	}
	c.Start()
	zlog.Info("scheduler started", zap.String("cron", cronSpec))

	<-ctx.Done()
	zlog.Info("shutting down")
	cronCtx := c.Stop()
	<-cronCtx.Done()
	return nil
}

// startOpsServer exposes Prometheus metrics and, when enabled, the payment
// webhook endpoint.
func startOpsServer(cfg *config.Config, subscribers *store.SubscriberStore, disp *dispatcher.Dispatcher, log logger.Logger, zlog *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	if cfg.Webhook.Enabled {
		handler := webhook.NewHandler(&webhook.Config{
			VerificationToken: cfg.Webhook.VerificationToken,
		}, subscribers, disp, log)
		mux.Handle("/webhook/payment", handler)
	}

	go func() {
		if err := http.ListenAndServe(cfg.Ops.Listen, mux); err != nil && err != http.ErrServerClosed {
			zlog.Warn("ops server stopped", zap.Error(err))
		}
	}()
}
