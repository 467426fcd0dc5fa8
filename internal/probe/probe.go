// Package probe performs a single latency-instrumented request against a
// URL, timing each network phase independently: DNS resolution, TCP
// connect, TLS handshake, server processing, and content download.
//
// The first three phases run over a throwaway socket that exists only to
// be timed; the actual GET is issued afterwards through net/http, with
// httptrace splitting server processing from content download.
package probe

import (
	"context"
	"crypto/tls"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each network phase and the final GET.
const DefaultTimeout = 10 * time.Second

// ContentClass is a coarse classification of the response payload.
type ContentClass string

const (
	ClassAPI   ContentClass = "API"
	ClassOther ContentClass = "Other"
)

// Result is the timing breakdown of one successful probe. All phase
// values are wall-clock milliseconds rounded to two decimal places, and
// TotalMS is their exact sum. TLSMs is 0 for plain http URLs.
type Result struct {
	StatusCode   int          `json:"status_code"`
	Up           bool         `json:"up"`
	TotalMS      float64      `json:"total_latency_ms"`
	DNSMs        float64      `json:"dns_lookup_ms"`
	TCPMs        float64      `json:"tcp_connection_ms"`
	TLSMs        float64      `json:"tls_handshake_ms"`
	ServerMS     float64      `json:"server_processing_ms"`
	DownloadMS   float64      `json:"content_download_ms"`
	ContentClass ContentClass `json:"url_type"`
	CheckedAt    time.Time    `json:"timestamp"`
}

// Prober measures a single URL. The optional headers are added to the GET.
type Prober struct {
	Timeout  time.Duration
	Resolver *net.Resolver
}

// New returns a Prober with the given per-phase timeout. A zero timeout
// means DefaultTimeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{Timeout: timeout, Resolver: net.DefaultResolver}
}

// Measure runs the phased check. When it fails the returned error is
// always a *Error carrying the phase that broke; any phase failure aborts
// the remaining phases.
func (p *Prober) Measure(ctx context.Context, rawURL string, headers map[string]string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL}
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	// Phase 1: DNS.
	dnsCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	t1 := time.Now()
	addrs, err := p.Resolver.LookupHost(dnsCtx, host)
	dnsMS := msSince(t1)
	if err != nil || len(addrs) == 0 {
		return nil, &Error{Kind: KindDNS, URL: rawURL, Err: err}
	}

	// Phase 2: TCP connect.
	dialer := &net.Dialer{Timeout: p.Timeout}
	t2 := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addrs[0], port))
	tcpMS := msSince(t2)
	if err != nil {
		return nil, &Error{Kind: KindConnect, URL: rawURL, Err: err}
	}

	// Phase 3: TLS handshake, system trust roots.
	tlsMS := 0.0
	if u.Scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
		hsCtx, hsCancel := context.WithTimeout(ctx, p.Timeout)
		t3 := time.Now()
		err = tlsConn.HandshakeContext(hsCtx)
		tlsMS = msSince(t3)
		hsCancel()
		if err != nil {
			tlsConn.Close()
			return nil, &Error{Kind: KindTLS, URL: rawURL, Err: err}
		}
		conn = tlsConn
	}
	// The probing socket only exists to time phases 1-3.
	conn.Close()

	// Phase 4/5: the real GET, with server processing split out as the
	// wrote-request to first-response-byte interval.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindRequest, URL: rawURL, Err: err}
	}
	for name, value := range headers {
		if name != "" {
			req.Header.Set(name, value)
		}
	}

	var wrote, firstByte time.Time
	trace := &httptrace.ClientTrace{
		WroteRequest:         func(httptrace.WroteRequestInfo) { wrote = time.Now() },
		GotFirstResponseByte: func() { firstByte = time.Now() },
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	client := &http.Client{Timeout: p.Timeout}
	t4 := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindRequest, URL: rawURL, Err: err}
	}
	// Download the full body so the transfer is part of the measurement.
	_, err = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	requestMS := msSince(t4)
	if err != nil {
		return nil, &Error{Kind: KindRequest, URL: rawURL, Err: err}
	}

	serverMS := requestMS
	if !wrote.IsZero() && firstByte.After(wrote) {
		serverMS = float64(firstByte.Sub(wrote)) / float64(time.Millisecond)
	}
	// Clamp: jitter can push the first-byte interval past the measured
	// wall time, which would make the download negative.
	downloadMS := requestMS - serverMS
	if downloadMS < 0 {
		downloadMS = 0
	}

	r := &Result{
		StatusCode:   resp.StatusCode,
		Up:           resp.StatusCode >= 200 && resp.StatusCode < 400,
		DNSMs:        round2(dnsMS),
		TCPMs:        round2(tcpMS),
		TLSMs:        round2(tlsMS),
		ServerMS:     round2(serverMS),
		DownloadMS:   round2(downloadMS),
		ContentClass: classify(resp.Header.Get("Content-Type")),
		CheckedAt:    time.Now().UTC(),
	}
	r.TotalMS = round2(r.DNSMs + r.TCPMs + r.TLSMs + r.ServerMS + r.DownloadMS)
	return r, nil
}

func classify(contentType string) ContentClass {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") || strings.Contains(ct, "xml") {
		return ClassAPI
	}
	return ClassOther
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
