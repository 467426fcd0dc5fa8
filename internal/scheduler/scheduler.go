// Package scheduler drives the continuous check loop: every tick it
// probes each active endpoint whose interval has elapsed, appends the
// result to the log, evaluates the alert gate, and persists the new
// endpoint status.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kabhi-dev/apimon/internal/alert"
	"github.com/kabhi-dev/apimon/internal/probe"
	"github.com/kabhi-dev/apimon/internal/store"
)

// DefaultTick is the loop period used when none is configured.
const DefaultTick = 30 * time.Second

// Store defines the storage operations the scheduler needs.
type Store interface {
	ListActive(ctx context.Context) ([]store.Endpoint, error)
	AppendLog(ctx context.Context, l *store.CheckLog) error
	UpdateStatus(ctx context.Context, id int64, at time.Time, status store.Status) error
}

// Prober measures a single URL; failures are *probe.Error values.
type Prober interface {
	Measure(ctx context.Context, url string, headers map[string]string) (*probe.Result, error)
}

// Scheduler owns its store handle and alerter; it has no package-level
// state and is started and stopped through Run's context.
type Scheduler struct {
	store   Store
	prober  Prober
	alerter *alert.Alerter
	tick    time.Duration
	timeout time.Duration
	logger  *zap.Logger

	now func() time.Time // swapped in tests
}

// New creates a Scheduler. Zero tick and timeout fall back to DefaultTick
// and probe.DefaultTimeout.
func New(st Store, prober Prober, alerter *alert.Alerter, tick, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	if timeout <= 0 {
		timeout = probe.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if alerter == nil {
		alerter = alert.New(nil, logger)
	}
	return &Scheduler{
		store:   st,
		prober:  prober,
		alerter: alerter,
		tick:    tick,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes an immediate pass and then one pass per tick until ctx is
// cancelled. An in-flight endpoint is allowed to finish (or time out)
// before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunTick(ctx)

	t := time.NewTicker(s.tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler_stopped")
			return
		case <-t.C:
			s.RunTick(ctx)
		}
	}
}

// RunTick performs one pass over all active endpoints. Endpoints are
// processed sequentially, which keeps each read-status/write-status pair
// serialized; a failure on one endpoint never aborts the rest.
func (s *Scheduler) RunTick(ctx context.Context) {
	endpoints, err := s.store.ListActive(ctx)
	if err != nil {
		s.logger.Warn("scheduler_list_error", zap.Error(err))
		return
	}

	now := s.now()
	for i := range endpoints {
		if ctx.Err() != nil {
			return
		}
		e := endpoints[i]
		if !e.Due(now) {
			continue
		}
		s.checkEndpoint(ctx, e)
	}
}

func (s *Scheduler) checkEndpoint(ctx context.Context, e store.Endpoint) {
	// Each phase bounds itself inside the prober; this is a backstop for
	// the whole check.
	pctx, cancel := context.WithTimeout(ctx, 4*s.timeout)
	defer cancel()

	res, err := s.prober.Measure(pctx, e.URL, e.Header())

	now := s.now().UTC()
	var (
		entry     store.CheckLog
		newStatus store.Status
		detail    string
	)
	switch {
	case err != nil:
		detail = err.Error()
		entry = store.CheckLog{
			EndpointID:   e.ID,
			Timestamp:    now,
			IsUp:         false,
			ErrorMessage: detail,
		}
		newStatus = store.StatusError
	case res.Up:
		entry = resultLog(e.ID, res)
		newStatus = store.StatusUp
	default:
		entry = resultLog(e.ID, res)
		newStatus = store.StatusDown
		detail = fmt.Sprintf("HTTP %d", res.StatusCode)
	}

	if err := s.store.AppendLog(ctx, &entry); err != nil {
		// The endpoint keeps its old status and stays due next tick.
		s.logger.Warn("scheduler_append_error",
			zap.Int64("endpoint_id", e.ID),
			zap.String("url", e.URL),
			zap.Error(err),
		)
		return
	}

	if alert.ShouldAlert(e.LastStatus, newStatus) {
		s.alerter.Downtime(ctx, e, detail, now)
	}

	if err := s.store.UpdateStatus(ctx, e.ID, now, newStatus); err != nil {
		s.logger.Warn("scheduler_status_error",
			zap.Int64("endpoint_id", e.ID),
			zap.String("url", e.URL),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("endpoint_checked",
		zap.Int64("endpoint_id", e.ID),
		zap.String("url", e.URL),
		zap.String("status", string(newStatus)),
		zap.Float64("total_latency_ms", entry.TotalMS),
	)
}

func resultLog(endpointID int64, res *probe.Result) store.CheckLog {
	code := res.StatusCode
	return store.CheckLog{
		EndpointID: endpointID,
		Timestamp:  res.CheckedAt,
		StatusCode: &code,
		IsUp:       res.Up,
		TotalMS:    res.TotalMS,
		DNSMs:      res.DNSMs,
		TCPMs:      res.TCPMs,
		TLSMs:      res.TLSMs,
		ServerMS:   res.ServerMS,
		DownloadMS: res.DownloadMS,
	}
}
