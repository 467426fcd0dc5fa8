package alert_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kabhi-dev/apimon/internal/alert"
	"github.com/kabhi-dev/apimon/internal/store"
)

func TestShouldAlert(t *testing.T) {
	cases := []struct {
		prev, next store.Status
		want       bool
	}{
		{store.StatusUp, store.StatusDown, true},
		{store.StatusUp, store.StatusError, true},
		{store.StatusUp, store.StatusUp, false},
		{store.StatusPending, store.StatusDown, false},
		{store.StatusPending, store.StatusError, false},
		{store.StatusPending, store.StatusUp, false},
		{store.StatusDown, store.StatusDown, false},
		{store.StatusDown, store.StatusError, false},
		{store.StatusError, store.StatusError, false},
		{store.StatusDown, store.StatusUp, false},
		{store.StatusError, store.StatusUp, false},
	}
	for _, tc := range cases {
		if got := alert.ShouldAlert(tc.prev, tc.next); got != tc.want {
			t.Errorf("ShouldAlert(%s, %s) = %v, want %v", tc.prev, tc.next, got, tc.want)
		}
	}
}

// recordingSink captures notifications for assertions.
type recordingSink struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

type notification struct {
	target, subject, body string
}

func (r *recordingSink) Notify(_ context.Context, target, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, notification{target, subject, body})
	return nil
}

func TestDowntime_SendsDetails(t *testing.T) {
	sink := &recordingSink{}
	a := alert.New(sink, nil)

	e := store.Endpoint{
		URL:                "https://api.example.com/health",
		Category:           "payments",
		NotificationTarget: "ops@example.com",
	}
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	a.Downtime(context.Background(), e, "connect: connection refused", at)

	if len(sink.calls) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(sink.calls))
	}
	n := sink.calls[0]
	if n.target != "ops@example.com" {
		t.Errorf("unexpected target %q", n.target)
	}
	if n.subject != "API Alert: https://api.example.com/health is Down" {
		t.Errorf("unexpected subject %q", n.subject)
	}
	for _, want := range []string{"https://api.example.com/health", "payments", "connection refused", "2025-03-10T12:00:00Z"} {
		if !strings.Contains(n.body, want) {
			t.Errorf("expected body to contain %q:\n%s", want, n.body)
		}
	}
}

func TestDowntime_SinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("smtp unreachable")}
	a := alert.New(sink, nil)

	// Must not panic or propagate anything.
	a.Downtime(context.Background(), store.Endpoint{URL: "https://x"}, "boom", time.Now())
}

func TestDowntime_NilSinkIsNoop(t *testing.T) {
	a := alert.New(nil, nil)
	a.Downtime(context.Background(), store.Endpoint{URL: "https://x"}, "boom", time.Now())
}
