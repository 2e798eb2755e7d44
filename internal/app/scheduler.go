package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	jobTimeout       = 2 * time.Minute
	outboxDrainBatch = 100
)

// Scheduler registers the periodic jobs: outbox redelivery, the project SLA
// refresh and resumption of failed cascades. Overlapping runs are skipped.
func (a *App) Scheduler() (*cron.Cron, error) {
	jobLog := cronLogger{a.Logger.Named("cron")}
	c := cron.New(cron.WithChain(cron.Recover(jobLog), cron.SkipIfStillRunning(jobLog)))

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (int, error)
	}{
		{"outbox_drain", a.Config.Jobs.OutboxDrain, func(ctx context.Context) (int, error) {
			return a.Dispatcher.Drain(ctx, outboxDrainBatch)
		}},
		{"sla_refresh", a.Config.Jobs.SLARefresh, a.Services.Project.RefreshSLA},
		{"resume_runs", a.Config.Jobs.ResumeRuns, a.Services.Cascade.ResumePending},
	}
	for _, j := range jobs {
		j := j
		if _, err := c.AddFunc(j.spec, func() { a.runJob(j.name, j.run) }); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", j.name, j.spec, err)
		}
	}
	return c, nil
}

func (a *App) runJob(name string, run func(ctx context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	start := time.Now()
	n, err := run(ctx)
	if err != nil {
		a.Logger.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	if n > 0 {
		a.Logger.Info("job finished", zap.String("job", name), zap.Int("affected", n), zap.Duration("took", time.Since(start)))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
