package gateway

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	sweepJob      = "sweep"
	sweepSchedule = "0 * * * * *"
	reportJob     = "report"
)

// reporter posts free text to the operator chat.
type reporter interface {
	Post(ctx context.Context, text string) error
}

func (g *Gateway) registerJobs() error {
	if err := g.cron.AddJob(sweepJob, sweepSchedule, g.sweep); err != nil {
		return err
	}

	if !g.cfg.Report.Enabled {
		return nil
	}
	if _, ok := g.notifier.(reporter); !ok {
		g.log.Warn("report enabled but operator chat not configured, digest disabled")
		return nil
	}
	return g.cron.AddJob(reportJob, g.cfg.Report.Schedule, g.report)
}

// sweep drops idle limiter records and expired sessions.
func (g *Gateway) sweep(context.Context) error {
	removed := g.core.Limiter.Sweep(g.now())
	g.core.Sessions.Sweep()
	if removed > 0 {
		g.log.Debug("sweep", zap.Int("limiter_users_removed", removed), zap.Int("sessions", g.core.Sessions.Len()))
	}
	return nil
}

// report sends the usage digest since the last report and resets counters.
func (g *Gateway) report(ctx context.Context) error {
	r, ok := g.notifier.(reporter)
	if !ok {
		return errors.New("operator chat not configured")
	}
	snap := g.core.Stats.Drain()
	if err := r.Post(ctx, snap.Report()); err != nil {
		return err
	}
	g.log.Info("digest sent", zap.Int64("generations", snap.Generations))
	return nil
}
