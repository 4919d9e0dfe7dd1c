package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"github.com/go-co-op/gocron/v2"
)

type Task func(ctx context.Context) error

// Scheduler запускает фоновые задачи: обновление цен, прогрев кэша, чистку выгрузок
type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{scheduler: scheduler}, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	slog.Info("scheduler started", slog.Int("jobs", len(s.scheduler.Jobs())))
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("scheduler shutdown error", slog.String("err", err.Error()))
	}
}

func (s *Scheduler) createJob(jobDefinition gocron.JobDefinition, name string, fn Task, startImmediately bool) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}

	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.scheduler.NewJob(
		jobDefinition,
		gocron.NewTask(s.taskWithRecover(fn, name)),
		opts...,
	)
	if err != nil {
		slog.Error("Scheduler creating job error", slog.String("jobName", name), slog.String("err", err.Error()))
		return fmt.Errorf("create job %s: %w", name, err)
	}

	return nil
}

func (s *Scheduler) NewIntervalJob(name string, fn Task, interval time.Duration, startImmediately bool) error {
	return s.createJob(gocron.DurationJob(interval), name, fn, startImmediately)
}

// NewCrontabJob принимает crontab, секунды можно указать первым полем
func (s *Scheduler) NewCrontabJob(name string, fn Task, crontab string, startImmediately bool) error {
	return s.createJob(gocron.CronJob(crontab, true), name, fn, startImmediately)
}

func (s *Scheduler) taskWithRecover(fn Task, jobName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		ctx = utils.WithRequestID(ctx)
		rqID := utils.GetRequestIDFromCtx(ctx)
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"Panic recovered in scheduler job",
					slog.String("rqID", rqID),
					slog.String("jobName", jobName),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		slog.Info("job start", slog.String("rqID", rqID), slog.String("jobName", jobName))

		err := fn(ctx)
		if err != nil {
			slog.Error("job failed", slog.String("rqID", rqID), slog.String("jobName", jobName), slog.Any("error", err))
		} else {
			slog.Info("job completed", slog.String("rqID", rqID), slog.String("jobName", jobName), slog.Duration("duration", time.Since(start)))
		}
	}
}
