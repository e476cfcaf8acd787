package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gab-cat/tarot-bot/internal/ports/jobs"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
)

// DefaultRetries задержки повторов после неудачного запуска | now + 1m + 10m + 30m
var DefaultRetries = []time.Duration{
	1 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
}

// Scheduler управляет запуском периодических джоб
type Scheduler struct {
	jobs           []jobs.Job
	alerterService service.IAlerterService
	retries        []time.Duration
	now            func() time.Time
	log            *slog.Logger
}

// NewScheduler создаёт новый планировщик джоб
func NewScheduler(log *slog.Logger, alerterService service.IAlerterService) *Scheduler {
	return &Scheduler{
		jobs:           make([]jobs.Job, 0),
		alerterService: alerterService,
		retries:        DefaultRetries,
		now:            time.Now,
		log:            log,
	}
}

// WithRetries задаёт задержки повторов
func (s *Scheduler) WithRetries(retries []time.Duration) *Scheduler {
	s.retries = retries
	return s
}

// Register регистрирует джобу в планировщике
func (s *Scheduler) Register(job jobs.Job) {
	s.jobs = append(s.jobs, job)
	s.log.Debug("job registered", "job_name", job.Name(), "total_jobs", len(s.jobs))
}

// Start запускает все зарегистрированные джобы и ждёт их остановки по ctx
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.jobs) == 0 {
		s.log.Warn("no jobs registered, scheduler not started")
		return nil
	}

	s.log.Info("starting job scheduler", "jobs_count", len(s.jobs))

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runJob(ctx, job)
		}()
	}
	wg.Wait()

	s.log.Info("job scheduler stopped")
	return nil
}

// runJob запускает отдельную джобу в цикле
func (s *Scheduler) runJob(ctx context.Context, job jobs.Job) {
	jobName := job.Name()
	for {
		now := s.now()
		timer := time.NewTimer(job.NextRun(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("job stopped by context", "job_name", jobName)
			return
		case <-timer.C:
			if attemptErrors, err := s.runWithRetry(ctx, job); err != nil {
				s.log.Error("job failed after all retries",
					"job_name", jobName,
					"error", err,
					"attempts", len(attemptErrors),
				)
				s.sendAlert(ctx, jobName, attemptErrors)
			} else {
				s.log.Info("job executed successfully", "job_name", jobName)
			}
		}
	}
}

// jobAttemptError ошибка конкретной попытки выполнения джобы
type jobAttemptError struct {
	attempt int
	err     error
}

// runWithRetry выполняет джобу с повторами при ошибках.
// Возвращает ошибки всех попыток и финальную ошибку.
func (s *Scheduler) runWithRetry(ctx context.Context, job jobs.Job) ([]jobAttemptError, error) {
	jobName := job.Name()
	var attemptErrors []jobAttemptError

	for attempt := 1; attempt <= len(s.retries)+1; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return attemptErrors, ctx.Err()
			case <-time.After(s.retries[attempt-2]):
			}
		}

		err := job.Run(ctx)
		if err == nil {
			return nil, nil
		}

		attemptErrors = append(attemptErrors, jobAttemptError{attempt: attempt, err: err})
		s.log.Warn("job execution failed",
			"job_name", jobName,
			"attempt", attempt,
			"retries_remaining", len(s.retries)+1-attempt,
			"error", err,
		)
	}

	return attemptErrors, fmt.Errorf("all retry attempts failed (total attempts: %d)", len(attemptErrors))
}

// sendAlert алертит на финальную ошибку после ретраев
func (s *Scheduler) sendAlert(ctx context.Context, jobName string, attemptErrors []jobAttemptError) {
	if s.alerterService == nil {
		return
	}

	var errorLines []string
	for _, attemptErr := range attemptErrors {
		errorLines = append(errorLines, fmt.Sprintf("Попытка %d: %s", attemptErr.attempt, attemptErr.err.Error()))
	}

	var message strings.Builder
	message.WriteString("⚠️ Финальная ошибка планировщика, ретраи исчерпаны\n\n")
	message.WriteString(fmt.Sprintf("Джоба: %s\n\n", jobName))
	message.WriteString("Ошибки попыток:\n")
	message.WriteString(strings.Join(errorLines, "\n"))

	if alertErr := s.alerterService.SendAlert(ctx, message.String()); alertErr != nil {
		s.log.Warn("failed to send job failure alert",
			"job_name", jobName,
			"error", alertErr,
		)
	}
}
