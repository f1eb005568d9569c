// Package scheduler runs background maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/7Francus7/CourtOps-sub003/internal/db"
)

var (
	ErrEmptyJobName  = errors.New("job name is required")
	ErrEmptyCronExpr = errors.New("cron expression is required")
)

// Service wraps a gocron scheduler for app-wide scheduling.
type Service struct {
	scheduler gocron.Scheduler
}

func New() (*Service, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Service{scheduler: sched}, nil
}

func (s *Service) Start() {
	log.Info().Msg("Scheduler starting")
	s.scheduler.Start()
}

func (s *Service) Stop() error {
	log.Info().Msg("Scheduler stopping")
	return s.scheduler.Shutdown()
}

// AddJob registers a cron-based job with the scheduler.
func (s *Service) AddJob(name, cronExpr string, task func()) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()

	wrappedTask := func() {
		jobLogger.Debug().Msg("Scheduler job started")
		task()
		jobLogger.Debug().Msg("Scheduler job completed")
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrappedTask),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}

// RegisterMembershipExpiryJob flips lapsed ACTIVE memberships to CANCELLED
// once a night and clears the member flag on affected clients.
func (s *Service) RegisterMembershipExpiryJob(database *db.DB) error {
	jobName := "membership_expiry"
	cronExpr := "15 3 * * *"
	jobLogger := log.With().Str("job_name", jobName).Logger()

	_, err := s.AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		expired, err := database.Queries.ExpireLapsedMemberships(ctx, time.Now())
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to expire lapsed memberships")
			return
		}
		if expired > 0 {
			jobLogger.Info().Int64("expired", expired).Msg("Expired lapsed memberships")
		}
	})
	return err
}
