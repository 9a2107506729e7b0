package transcriber

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// maxResponseBody caps how much of a reply is buffered. Transcripts are
// small; anything larger is a misbehaving server.
const maxResponseBody = 1 << 20

// TracedClient wraps http.Client and records per-phase timings of each
// request with httptrace. Its transport keeps connections alive between
// recordings so the second upload skips DNS, TCP and TLS.
type TracedClient struct {
	client *http.Client
}

func NewTracedClient() *TracedClient {
	return &TracedClient{client: &http.Client{Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}}}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// stopwatch collects the instants httptrace reports and folds them into
// NetworkMetrics as each phase ends.
type stopwatch struct {
	m *NetworkMetrics

	begin, getConn, gotConn    time.Time
	dns, dial, handshake       time.Time
	wroteHeaders, wroteRequest time.Time
	firstByte                  time.Time
}

func newStopwatch() *stopwatch {
	return &stopwatch{m: &NetworkMetrics{}, begin: time.Now()}
}

func (s *stopwatch) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) { s.getConn = time.Now() },
		GotConn: func(info httptrace.GotConnInfo) {
			s.gotConn = time.Now()
			s.m.ConnWait = s.gotConn.Sub(s.getConn)
			s.m.ConnReused = info.Reused
		},
		DNSStart:     func(httptrace.DNSStartInfo) { s.dns = time.Now() },
		DNSDone:      func(httptrace.DNSDoneInfo) { s.m.DNS = time.Since(s.dns) },
		ConnectStart: func(_, _ string) { s.dial = time.Now() },
		ConnectDone:  func(_, _ string, _ error) { s.m.TCP = time.Since(s.dial) },

		TLSHandshakeStart: func() { s.handshake = time.Now() },
		TLSHandshakeDone: func(cs tls.ConnectionState, _ error) {
			s.m.TLS = time.Since(s.handshake)
			s.m.TLSProtocol = cs.NegotiatedProtocol
		},

		WroteHeaders: func() {
			s.wroteHeaders = time.Now()
			s.m.ReqHeaders = s.wroteHeaders.Sub(s.gotConn)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			s.wroteRequest = time.Now()
			s.m.ReqBody = s.wroteRequest.Sub(s.wroteHeaders)
		},
		GotFirstResponseByte: func() {
			s.firstByte = time.Now()
			s.m.TTFB = s.firstByte.Sub(s.wroteRequest)
		},
	}
}

func (s *stopwatch) finish() *NetworkMetrics {
	if !s.firstByte.IsZero() {
		s.m.Download = time.Since(s.firstByte)
	}
	s.m.Total = time.Since(s.begin)
	return s.m
}

// Do sends req and buffers the whole reply. The returned metrics cover the
// request from connection acquisition to the last body byte.
func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	sw := newStopwatch()
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), sw.trace()))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(body) > maxResponseBody {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBody)
	}
	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    sw.finish(),
	}, nil
}

// Probe checks that the service base URL answers at all. Any HTTP status
// counts as reachable; the HEAD also warms the connection pool.
func (c *Client) Probe(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}
