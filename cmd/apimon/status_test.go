package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kabhi-dev/apimon/internal/store"
)

type fakeStatusStore struct {
	endpoints []store.Endpoint
	err       error
}

func (f *fakeStatusStore) ListEndpoints(context.Context) ([]store.Endpoint, error) {
	return f.endpoints, f.err
}

func TestExecuteStatus_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := executeStatus(&out, &fakeStatusStore{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No monitored endpoints") {
		t.Errorf("expected empty-state message, got:\n%s", out.String())
	}
}

func TestExecuteStatus_Table(t *testing.T) {
	checked := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	db := &fakeStatusStore{endpoints: []store.Endpoint{
		{
			ID: 1, URL: "https://api.example.com", Category: "payments",
			IntervalMinutes: 5, IsActive: true,
			LastCheckedAt: &checked, LastStatus: store.StatusUp,
		},
		{
			ID: 2, URL: "https://old.example.com",
			IntervalMinutes: 60, IsActive: false, LastStatus: store.StatusPending,
		},
	}}

	var out bytes.Buffer
	if err := executeStatus(&out, db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"https://api.example.com", "payments", "Up", "https://old.example.com", "never", "Pending"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q:\n%s", want, got)
		}
	}
}

func TestExecuteStatus_StoreError(t *testing.T) {
	var out bytes.Buffer
	err := executeStatus(&out, &fakeStatusStore{err: errors.New("db locked")})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}
