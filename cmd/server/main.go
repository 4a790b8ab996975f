// Command server runs the certificate registry HTTP service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"certregistry/internal/admin"
	"certregistry/internal/artifact"
	"certregistry/internal/certificate"
	certhandler "certregistry/internal/certificate/handler"
	certmetrics "certregistry/internal/certificate/metrics"
	certstore "certregistry/internal/certificate/store"
	"certregistry/internal/events"
	"certregistry/internal/notify"
	notifymetrics "certregistry/internal/notify/metrics"
	"certregistry/internal/platform/config"
	"certregistry/internal/platform/httpserver"
	"certregistry/internal/platform/logger"
	"certregistry/internal/platform/postgres"
	"certregistry/internal/platform/redis"
	"certregistry/internal/standard"
	stdhandler "certregistry/internal/standard/handler"
	stdstore "certregistry/internal/standard/store"
	httptransport "certregistry/internal/transport/http"
	"certregistry/pkg/requestcontext"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: PostgreSQL when configured, in-memory otherwise (development).
	var (
		certs     certificate.Store
		auditors  certificate.AuditorStore
		standards standard.Store
		admins    admin.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		certs = certstore.NewPostgres(db)
		auditors = certstore.NewPostgresAuditors(db)
		standards = stdstore.NewPostgres(db)
		admins = admin.NewPostgres(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		certs = certstore.NewInMemory()
		auditors = certstore.NewInMemoryAuditors()
		standards = stdstore.NewInMemory()
		admins = admin.NewInMemory()
	}

	// Notification log: Redis when configured, process-local otherwise.
	var notifyLog notify.NotificationLog
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		notifyLog = notify.NewRedisLog(redisClient)
	} else {
		log.Warn("no redis configured, notification log is process-local")
		notifyLog = notify.NewMemoryLog()
	}

	publisher, err := events.NewPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		log.Error("failed to connect to kafka", "error", err)
		os.Exit(1)
	}
	if publisher != nil {
		defer publisher.Close(context.Background())
	}

	mailer, err := notify.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		log.Error("failed to configure smtp", "error", err)
		os.Exit(1)
	}

	artifacts := artifact.NewManager(cfg.MediaDir, cfg.SiteURL, log)

	standardSvc := standard.NewService(standards, log)

	certOpts := []certificate.Option{
		certificate.WithArtifacts(artifacts),
		certificate.WithMetrics(certmetrics.New()),
	}
	if publisher != nil {
		certOpts = append(certOpts, certificate.WithEvents(publisher))
	}
	certSvc := certificate.NewService(certs, auditors, standardSvc, log, certOpts...)

	thresholds := notify.Thresholds{
		SingleExpiryDays: cfg.SingleExpiryDays,
		BatchExpiryDays:  cfg.BatchExpiryDays,
		InspectionDays:   cfg.InspectionDays,
	}
	sweeperOpts := []notify.SweeperOption{notify.WithMetrics(notifymetrics.New())}
	if publisher != nil {
		sweeperOpts = append(sweeperOpts, notify.WithEvents(publisher))
	}
	var sweeperMailer notify.Mailer
	if mailer != nil {
		sweeperMailer = mailer
	}
	sweeper := notify.NewSweeper(certs, notifyLog, sweeperMailer, standardSvc,
		thresholds, cfg.AdminEmail, log, sweeperOpts...)

	adminSvc := admin.NewService(admins, admin.NewTokenService(cfg.JWTSigningKey, cfg.TokenTTL), log)

	var redisHealth httptransport.HealthChecker
	if redisClient != nil {
		redisHealth = redisClient
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Certificates: certhandler.New(certSvc, log),
		Standards:    stdhandler.New(standardSvc, log),
		Admin:        admin.NewHandler(adminSvc, log),
		AdminAuth:    adminSvc,
		Sweeper:      sweeper,
		Certificate:  certSvc,
		Artifacts:    artifacts,
		Redis:        redisHealth,
		Logger:       log,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting certificate registry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.SweepInterval > 0 {
		group.Go(func() error {
			runSweepLoop(groupCtx, cfg.SweepInterval, certSvc, sweeper, log)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// runSweepLoop periodically refreshes statuses and evaluates reminders. Each
// iteration pins one "today" so every certificate in a pass sees the same
// date.
func runSweepLoop(ctx context.Context, interval time.Duration, certSvc *certificate.Service, sweeper *notify.Sweeper, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			today := time.Now()
			sweepCtx := requestcontext.WithTime(ctx, today)

			if _, err := certSvc.RefreshAllStatuses(sweepCtx, today); err != nil {
				log.Error("status refresh sweep failed", "error", err)
			}
			if _, err := sweeper.Run(sweepCtx, today); err != nil {
				log.Error("reminder sweep failed", "error", err)
			}
		}
	}
}
