package notify

import (
	"context"
	"log/slog"
	"time"

	"certregistry/internal/certificate"
	"certregistry/internal/notify/metrics"
	dErrors "certregistry/pkg/domain-errors"
)

// Sweeper runs the daily reminder pass: it walks notifiable certificates,
// decides which reminders are due, deduplicates them through the notification
// log, and delivers staff and client copies. It also repairs expiry drift it
// encounters, so a certificate that expired since the last sweep produces a
// status-change notice in the same pass.
type Sweeper struct {
	store      certificate.Store
	log        NotificationLog
	mailer     Mailer
	standards  certificate.StandardDirectory
	events     certificate.EventPublisher
	thresholds Thresholds
	adminEmail string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// SweeperOption configures optional sweeper collaborators.
type SweeperOption func(*Sweeper)

// WithEvents wires the lifecycle event publisher.
func WithEvents(e certificate.EventPublisher) SweeperOption {
	return func(s *Sweeper) { s.events = e }
}

// WithMetrics wires sweep metrics.
func WithMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

// NewSweeper constructs the reminder sweeper. A nil mailer disables delivery;
// decisions are still computed and logged, which keeps dry environments quiet
// but observable.
func NewSweeper(
	store certificate.Store,
	log NotificationLog,
	mailer Mailer,
	standards certificate.StandardDirectory,
	thresholds Thresholds,
	adminEmail string,
	logger *slog.Logger,
	opts ...SweeperOption,
) *Sweeper {
	s := &Sweeper{
		store:      store,
		log:        log,
		mailer:     mailer,
		standards:  standards,
		thresholds: thresholds,
		adminEmail: adminEmail,
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RunResult summarizes one reminder sweep.
type RunResult struct {
	Scanned      int `json:"scanned"`
	Sent         int `json:"sent"`
	Deduplicated int `json:"deduplicated"`
	Failures     int `json:"failures"`
}

// DueNotification pairs a certificate with one due reminder.
type DueNotification struct {
	CertificateID int64    `json:"certificate_id"`
	NumberPart    string   `json:"number_part"`
	Category      Category `json:"category"`
	DaysLeft      int      `json:"days_left"`
}

// NotificationsDueToday reports what the sweep would deliver, without sending
// anything or consuming notification log entries.
func (s *Sweeper) NotificationsDueToday(ctx context.Context, today time.Time) ([]DueNotification, error) {
	certs, err := s.store.ListNotifiable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifiable certificates")
	}

	var due []DueNotification
	for _, c := range certs {
		for _, d := range DueCategories(c, today, s.thresholds) {
			due = append(due, DueNotification{
				CertificateID: c.ID,
				NumberPart:    c.NumberPart,
				Category:      d.Category,
				DaysLeft:      d.DaysLeft,
			})
		}
	}
	return due, nil
}

// Run executes one reminder sweep for "today".
func (s *Sweeper) Run(ctx context.Context, today time.Time) (*RunResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSweep(time.Since(start)) }()

	certs, err := s.store.ListNotifiable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifiable certificates")
	}

	result := &RunResult{Scanned: len(certs)}
	for _, c := range certs {
		decisions := DueCategories(c, today, s.thresholds)
		decisions = append(decisions, s.repairExpiry(ctx, c, today)...)

		for _, d := range decisions {
			s.deliver(ctx, c, d, today, result)
		}
	}

	s.logger.InfoContext(ctx, "reminder sweep finished",
		"scanned", result.Scanned,
		"sent", result.Sent,
		"deduplicated", result.Deduplicated,
		"failures", result.Failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// repairExpiry flips a certificate that drifted past expiry and surfaces the
// transition as a status-change decision.
func (s *Sweeper) repairExpiry(ctx context.Context, c *certificate.Certificate, today time.Time) []Decision {
	from := c.Status
	if !certificate.Recompute(c, today) {
		return nil
	}
	if err := s.store.UpdateStatusFields(ctx, c); err != nil {
		s.logger.WarnContext(ctx, "failed to persist status repair during reminder sweep",
			"certificate_id", c.ID,
			"error", err,
		)
		c.Status = from
		return nil
	}
	if s.events != nil {
		s.events.StatusChanged(ctx, c, from, c.Status)
	}
	if from == certificate.StatusActive && c.Status == certificate.StatusExpired {
		return []Decision{{Category: CategoryStatusChange}}
	}
	return nil
}

func (s *Sweeper) deliver(ctx context.Context, c *certificate.Certificate, d Decision, today time.Time, result *RunResult) {
	first, err := s.log.MarkOnce(ctx, c.ID, d.Category, today)
	if err != nil {
		s.logger.ErrorContext(ctx, "notification log unavailable",
			"certificate_id", c.ID,
			"category", d.Category,
			"error", err,
		)
		result.Failures++
		s.metrics.RecordFailure(string(d.Category))
		return
	}
	if !first {
		result.Deduplicated++
		s.metrics.RecordDeduplicated()
		return
	}

	if s.mailer == nil {
		s.logger.InfoContext(ctx, "reminder due but mail delivery is disabled",
			"certificate_id", c.ID,
			"category", d.Category,
			"days_left", d.DaysLeft,
		)
		return
	}

	fullNumber := s.fullNumber(ctx, c)

	if err := s.mailer.Send(ctx, Message{
		To:      s.adminEmail,
		Subject: adminSubject(d, fullNumber),
		Body:    adminBody(c, d, fullNumber),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to send staff reminder",
			"certificate_id", c.ID,
			"category", d.Category,
			"error", err,
		)
		result.Failures++
		s.metrics.RecordFailure(string(d.Category))
	} else {
		result.Sent++
		s.metrics.RecordSent(string(d.Category), "admin")
	}

	if c.ClientEmail == "" {
		return
	}
	if err := s.mailer.Send(ctx, Message{
		To:      c.ClientEmail,
		Subject: clientSubject(d, fullNumber),
		Body:    clientBody(c, d, fullNumber),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to send client reminder",
			"certificate_id", c.ID,
			"category", d.Category,
			"client_email", c.ClientEmail,
			"error", err,
		)
		result.Failures++
		s.metrics.RecordFailure(string(d.Category))
	} else {
		result.Sent++
		s.metrics.RecordSent(string(d.Category), "client")
	}
}

func (s *Sweeper) fullNumber(ctx context.Context, c *certificate.Certificate) string {
	prefix, err := s.standards.Prefix(ctx, c.StandardID)
	if err != nil {
		prefix = ""
	}
	return c.FullNumber(prefix)
}
