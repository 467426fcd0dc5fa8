package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kabhi-dev/apimon/internal/probe"
)

type fakeProber struct {
	results map[string]*probe.Result
	errs    map[string]error
}

func (f *fakeProber) Measure(_ context.Context, url string, _ map[string]string) (*probe.Result, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.results[url], nil
}

func TestExecuteCheck_PrintsPhaseTable(t *testing.T) {
	pr := &fakeProber{results: map[string]*probe.Result{
		"https://api.example.com": {
			StatusCode: 200, Up: true, TotalMS: 84.5,
			DNSMs: 12.25, TCPMs: 20, TLSMs: 30.25, ServerMS: 15, DownloadMS: 7,
			ContentClass: probe.ClassAPI, CheckedAt: time.Now().UTC(),
		},
	}}

	var out bytes.Buffer
	if err := executeCheck(&out, pr, []string{"https://api.example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"https://api.example.com", "200", "84.50ms", "12.25", "30.25", "API"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q:\n%s", want, got)
		}
	}
}

func TestExecuteCheck_DownURLReturnsError(t *testing.T) {
	pr := &fakeProber{errs: map[string]error{
		"https://gone.example.com": &probe.Error{Kind: probe.KindDNS, URL: "https://gone.example.com"},
	}}

	var out bytes.Buffer
	err := executeCheck(&out, pr, []string{"https://gone.example.com"})
	if err == nil {
		t.Fatal("expected a non-nil error when a URL is down")
	}
	if !strings.Contains(out.String(), "dns") {
		t.Errorf("expected the failure kind in the output:\n%s", out.String())
	}
}

func TestExecuteCheck_MixedResults(t *testing.T) {
	pr := &fakeProber{
		results: map[string]*probe.Result{
			"https://up.example.com": {StatusCode: 200, Up: true, CheckedAt: time.Now().UTC()},
		},
		errs: map[string]error{
			"https://down.example.com": &probe.Error{Kind: probe.KindConnect, URL: "https://down.example.com"},
		},
	}

	var out bytes.Buffer
	err := executeCheck(&out, pr, []string{"https://up.example.com", "https://down.example.com"})
	if err == nil {
		t.Fatal("expected error when any URL is down")
	}
	got := out.String()
	if !strings.Contains(got, "https://up.example.com") || !strings.Contains(got, "https://down.example.com") {
		t.Errorf("expected both URLs in the table:\n%s", got)
	}
}
