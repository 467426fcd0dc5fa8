package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kabhi-dev/apimon/internal/notify"
)

func TestWebhook_PostsJSON(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
	}))
	defer srv.Close()

	wh := notify.NewWebhook(srv.URL)
	err := wh.Notify(context.Background(), "ops@example.com", "API Alert: x is Down", "details here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["subject"] != "API Alert: x is Down" {
		t.Errorf("unexpected subject %q", got["subject"])
	}
	if got["body"] != "details here" {
		t.Errorf("unexpected body %q", got["body"])
	}
	if got["target"] != "ops@example.com" {
		t.Errorf("unexpected target %q", got["target"])
	}
	if got["source"] != "apimon" {
		t.Errorf("unexpected source %q", got["source"])
	}
}

func TestWebhook_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := notify.NewWebhook(srv.URL)
	if err := wh.Notify(context.Background(), "", "s", "b"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestWebhook_UnreachableIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	wh := notify.NewWebhook(srv.URL)
	if err := wh.Notify(context.Background(), "", "s", "b"); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestNewWebhook_EmptyURLDisabled(t *testing.T) {
	if notify.NewWebhook("") != nil {
		t.Error("expected nil webhook for empty URL")
	}
}

func TestNewSMTP_EmptyHostDisabled(t *testing.T) {
	if notify.NewSMTP("", 0, "", "", "") != nil {
		t.Error("expected nil SMTP sink for empty host")
	}
}

func TestSMTP_SkipsEmptyTarget(t *testing.T) {
	// An endpoint with no notification target is skipped without dialing.
	s := notify.NewSMTP("smtp.example.com", 465, "u", "p", "from@example.com")
	if err := s.Notify(context.Background(), "", "subject", "body"); err != nil {
		t.Fatalf("expected nil for empty target, got %v", err)
	}
}
