package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"certregistry/internal/admin"
	"certregistry/internal/certificate"
	certstore "certregistry/internal/certificate/store"
	"certregistry/internal/notify"
	"certregistry/internal/platform/config"
	"certregistry/internal/platform/logger"
	"certregistry/internal/platform/postgres"
	"certregistry/internal/platform/redis"
	"certregistry/internal/standard"
	stdstore "certregistry/internal/standard/store"
	"certregistry/pkg/requestcontext"
)

// runtime bundles the dependencies maintenance commands share. Commands
// require a configured database: in-memory stores would make every run a
// no-op.
type runtime struct {
	cfg       config.Config
	db        *sql.DB
	certs     *certstore.Postgres
	auditors  *certstore.PostgresAuditors
	standards *standard.Service
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("CERTREGISTRY_DATABASE_URL is required")
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &runtime{
		cfg:       cfg,
		db:        db,
		certs:     certstore.NewPostgres(db),
		auditors:  certstore.NewPostgresAuditors(db),
		standards: standard.NewService(stdstore.NewPostgres(db), logger.New()),
	}, nil
}

func (rt *runtime) close() {
	_ = rt.db.Close()
}

func (rt *runtime) certificateService() *certificate.Service {
	return certificate.NewService(rt.certs, rt.auditors, rt.standards, logger.New())
}

func newRefreshStatusesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-statuses",
		Short: "Flip overdue inspections and repair status drift for every certificate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			today := time.Now()
			result, err := rt.certificateService().RefreshAllStatuses(requestcontext.WithTime(ctx, today), today)
			if err != nil {
				return err
			}
			fmt.Printf("checked %d certificates, updated %d\n", result.Checked, result.Updated)
			return nil
		},
	}
}

func newSendRemindersCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "send-reminders",
		Short: "Evaluate reminder thresholds and deliver due notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			log := logger.New()
			var notifyLog notify.NotificationLog = notify.NewMemoryLog()
			redisClient, err := redis.New(rt.cfg.Redis)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			if redisClient != nil {
				defer redisClient.Close()
				notifyLog = notify.NewRedisLog(redisClient)
			}

			var mailer notify.Mailer
			if smtp, err := notify.NewSMTPMailer(rt.cfg.SMTP); err != nil {
				return fmt.Errorf("configure smtp: %w", err)
			} else if smtp != nil {
				mailer = smtp
			}

			thresholds := notify.Thresholds{
				SingleExpiryDays: rt.cfg.SingleExpiryDays,
				BatchExpiryDays:  rt.cfg.BatchExpiryDays,
				InspectionDays:   rt.cfg.InspectionDays,
			}
			sweeper := notify.NewSweeper(rt.certs, notifyLog, mailer, rt.standards,
				thresholds, rt.cfg.AdminEmail, log)

			today := time.Now()
			if dryRun {
				due, err := sweeper.NotificationsDueToday(ctx, today)
				if err != nil {
					return err
				}
				for _, d := range due {
					fmt.Printf("%s\t%s\t%d days\n", d.NumberPart, d.Category, d.DaysLeft)
				}
				fmt.Printf("%d notifications due\n", len(due))
				return nil
			}

			result, err := sweeper.Run(requestcontext.WithTime(ctx, today), today)
			if err != nil {
				return err
			}
			fmt.Printf("scanned %d, sent %d, deduplicated %d, failures %d\n",
				result.Scanned, result.Sent, result.Deduplicated, result.Failures)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print due notifications without sending")
	return cmd
}

func newImportStandardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-standards <file.csv>",
		Short: "Upsert the ISO standard catalog from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := rt.standards.ImportCSV(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("created %d, updated %d, skipped %d\n", result.Created, result.Updated, result.Skipped)
			return nil
		},
	}
}

func newNextNumberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-number",
		Short: "Print the next free certificate number part",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			part, err := rt.certificateService().NextNumber(ctx)
			if err != nil {
				return err
			}
			fmt.Println(part)
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin <username>",
		Short: "Register a staff account, prompting for the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			fmt.Fprint(os.Stderr, "Password: ")
			password, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(password, "\r\n")

			svc := admin.NewService(admin.NewPostgres(rt.db),
				admin.NewTokenService(rt.cfg.JWTSigningKey, rt.cfg.TokenTTL), logger.New())
			u, err := svc.CreateUser(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Printf("created admin user %q (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
}
