// Package alert decides when a status change warrants a notification and
// delivers it through a notify.Notifier sink.
package alert

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kabhi-dev/apimon/internal/notify"
	"github.com/kabhi-dev/apimon/internal/store"
)

// ShouldAlert reports whether the transition from prev to next fires a
// notification. Only the Up -> Down/Error transition does: the first
// failure of a previously healthy endpoint. Pending never fires (first
// check), repeated failures never renotify, and recovery is silent.
func ShouldAlert(prev, next store.Status) bool {
	if prev != store.StatusUp {
		return false
	}
	return next == store.StatusDown || next == store.StatusError
}

// Alerter composes the gate decision with a notification sink.
type Alerter struct {
	sink   notify.Notifier
	logger *zap.Logger
}

// New returns an Alerter. A nil sink disables delivery; decisions are
// still made so callers can test the gate.
func New(sink notify.Notifier, logger *zap.Logger) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{sink: sink, logger: logger}
}

// Downtime sends the down-transition notification for an endpoint.
// Delivery is best-effort: failures are logged, never returned, so a
// broken sink cannot fail a check.
func (a *Alerter) Downtime(ctx context.Context, e store.Endpoint, detail string, at time.Time) {
	if a.sink == nil {
		return
	}

	subject := fmt.Sprintf("API Alert: %s is Down", e.URL)
	category := e.Category
	if category == "" {
		category = "N/A"
	}
	if detail == "" {
		detail = "The endpoint responded with a failing status code."
	}
	body := fmt.Sprintf(
		"An alert has been triggered for an endpoint you are monitoring.\n\n"+
			"URL: %s\nCategory: %s\nStatus: Down / Error\nTime: %s\n\nDetails:\n%s\n\n"+
			"No further notifications will be sent until it is operational again.\n",
		e.URL, category, at.UTC().Format(time.RFC3339), detail,
	)

	if err := a.sink.Notify(ctx, e.NotificationTarget, subject, body); err != nil {
		a.logger.Warn("alert_send_failed",
			zap.String("url", e.URL),
			zap.String("target", e.NotificationTarget),
			zap.Error(err),
		)
		return
	}
	a.logger.Info("alert_sent",
		zap.String("url", e.URL),
		zap.String("target", e.NotificationTarget),
	)
}
