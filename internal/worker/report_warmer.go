package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// UserLister lists the users that own at least one trade
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]uint, error)
}

// SummaryWarmer rebuilds a user's cached summaries
type SummaryWarmer interface {
	WarmSummary(ctx context.Context, userID uint) error
}

// ReportWarmer precomputes each user's daily summary on a cron schedule so
// the days-since-last figures are fresh after midnight
type ReportWarmer struct {
	users   UserLister
	reports SummaryWarmer
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	log     *zap.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewReportWarmer creates a warmer. spec is a six-field cron expression
// with a leading seconds field.
func NewReportWarmer(users UserLister, reports SummaryWarmer, spec string, log *zap.Logger) *ReportWarmer {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ReportWarmer{
		users:   users,
		reports: reports,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		timeout: 5 * time.Minute,
		log:     log,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start schedules the job and starts the scheduler
func (w *ReportWarmer) Start() error {
	if _, err := w.cron.AddFunc(w.spec, func() { w.RunOnce(w.baseCtx) }); err != nil {
		return err
	}
	w.cron.Start()
	w.log.Info("report warmer started", zap.String("spec", w.spec))
	return nil
}

// Stop cancels a running job and waits for it to return
func (w *ReportWarmer) Stop() {
	w.cancel()
	<-w.cron.Stop().Done()
	w.log.Info("report warmer stopped")
}

// RunOnce warms every user's summary. A failure for one user is logged and
// does not stop the others. It returns the number of users warmed.
func (w *ReportWarmer) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ids, err := w.users.ListUserIDs(ctx)
	if err != nil {
		w.log.Error("report warmer: failed to list users", zap.Error(err))
		return 0
	}

	warmed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			w.log.Warn("report warmer: interrupted", zap.Int("warmed", warmed), zap.Error(ctx.Err()))
			break
		}
		if err := w.reports.WarmSummary(ctx, id); err != nil {
			w.log.Error("report warmer: failed to warm summary", zap.Uint("user_id", id), zap.Error(err))
			continue
		}
		warmed++
	}
	w.log.Info("report warmer: run finished", zap.Int("users", len(ids)), zap.Int("warmed", warmed))
	return warmed
}
