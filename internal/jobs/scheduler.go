package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"fundwatch/internal/alert"
	"fundwatch/internal/config"
	"fundwatch/internal/ledger"
	"fundwatch/internal/marketdata"
	"fundwatch/internal/models"
	"fundwatch/internal/repository"
)

const defaultMaxAttempts = 3

// Scheduler runs the periodic jobs: NAV sync, trade settlement and alert
// checks. Every execution is recorded as a JobRun; the run's idempotency
// key collapses duplicate fires of the same scheduled slot (two process
// instances, a restart mid-slot) to a single owner.
type Scheduler struct {
	Repo     repository.Repository
	Ledger   *ledger.Service
	Alerts   *alert.Engine
	Provider marketdata.Provider
	Logger   *zap.Logger

	MonitoredFunds []string
	SettleBatch    int
	LookbackFactor int

	Now func() time.Time
}

func NewScheduler(repo repository.Repository, ledgerSvc *ledger.Service, alertEngine *alert.Engine, provider marketdata.Provider, cfg config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Repo:           repo,
		Ledger:         ledgerSvc,
		Alerts:         alertEngine,
		Provider:       provider,
		Logger:         logger,
		MonitoredFunds: cfg.NAVSync.Funds,
		SettleBatch:    cfg.Settle.BatchSize,
		LookbackFactor: cfg.Alerts.SeriesLookbackFactor,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// Register wires the three jobs into the cron runner.
func (s *Scheduler) Register(r *Runner, cfg config.CronConfig) error {
	if _, err := r.Add(cfg.NAVSync, s.RunNAVSync); err != nil {
		return fmt.Errorf("schedule nav sync: %w", err)
	}
	if _, err := r.Add(cfg.Settle, s.RunSettle); err != nil {
		return fmt.Errorf("schedule settle: %w", err)
	}
	if _, err := r.Add(cfg.AlertCheck, s.RunAlertCheck); err != nil {
		return fmt.Errorf("schedule alert check: %w", err)
	}
	return nil
}

func (s *Scheduler) RunNAVSync(ctx context.Context) {
	s.runJob(ctx, models.JobTypeNAVSync, map[string]any{"fund_codes": s.MonitoredFunds}, s.syncNAVs)
}

func (s *Scheduler) RunSettle(ctx context.Context) {
	s.runJob(ctx, models.JobTypeSettle, nil, s.settleTrades)
}

func (s *Scheduler) RunAlertCheck(ctx context.Context) {
	s.runJob(ctx, models.JobTypeAlertCheck, nil, s.checkAlerts)
}

// jobIdempotencyKey hashes the job type, its parameters and the scheduled
// slot, so re-submissions of the same slot collapse to one row.
func jobIdempotencyKey(jobType models.JobType, payload map[string]any, scheduledAt time.Time) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(jobType))
	b.WriteString(":")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, payload[k])
	}
	b.WriteString(":")
	b.WriteString(scheduledAt.Format(time.RFC3339))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (s *Scheduler) runJob(ctx context.Context, jobType models.JobType, payload map[string]any, fn func(context.Context) error) {
	scheduledAt := s.Now().Truncate(time.Minute)

	var payloadJSON datatypes.JSON
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			s.logError(jobType, fmt.Errorf("marshal payload: %w", err))
			return
		}
		payloadJSON = datatypes.JSON(raw)
	}

	run := &models.JobRun{
		JobID:          uuid.New(),
		JobType:        jobType,
		ScheduledAt:    scheduledAt,
		Status:         models.JobStatusPending,
		MaxAttempts:    defaultMaxAttempts,
		IdempotencyKey: jobIdempotencyKey(jobType, payload, scheduledAt),
		Payload:        payloadJSON,
		CreatedAt:      s.Now(),
	}

	created, err := s.Repo.InsertJobRunIdempotent(ctx, run)
	if err != nil {
		s.logError(jobType, fmt.Errorf("insert job run: %w", err))
		return
	}
	if !created {
		if s.Logger != nil {
			s.Logger.Info("job slot already owned, skipping",
				zap.String("job_type", string(jobType)),
				zap.Time("scheduled_at", scheduledAt),
			)
		}
		return
	}

	var lastErr error
	for attempt := 1; attempt <= run.MaxAttempts; attempt++ {
		if err := s.Repo.UpdateJobRunStatus(ctx, run.JobID, models.JobStatusRunning, nil, s.Now()); err != nil {
			s.logError(jobType, fmt.Errorf("mark job running: %w", err))
			return
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			break
		}
		if s.Logger != nil {
			s.Logger.Warn("job attempt failed",
				zap.String("job_type", string(jobType)),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}
	}

	if lastErr != nil {
		msg := lastErr.Error()
		if err := s.Repo.UpdateJobRunStatus(ctx, run.JobID, models.JobStatusFailed, &msg, s.Now()); err != nil {
			s.logError(jobType, fmt.Errorf("mark job failed: %w", err))
		}
		return
	}
	if err := s.Repo.UpdateJobRunStatus(ctx, run.JobID, models.JobStatusCompleted, nil, s.Now()); err != nil {
		s.logError(jobType, fmt.Errorf("mark job completed: %w", err))
	}
}

func (s *Scheduler) logError(jobType models.JobType, err error) {
	if s.Logger != nil {
		s.Logger.Error("job failed", zap.String("job_type", string(jobType)), zap.Error(err))
	}
}
