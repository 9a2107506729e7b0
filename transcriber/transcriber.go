package transcriber

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedResponse means the service answered 2xx but the body was
	// not a JSON object whose "text" field is a string (or absent/null).
	ErrMalformedResponse = errors.New("malformed transcription response")
	ErrNoAudio           = errors.New("no audio location")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transcribe: HTTP %d", e.Code)
	}
	return fmt.Sprintf("transcribe: HTTP %d: %s", e.Code, e.Body)
}

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

// Result describes one completed round trip, successful or not.
type Result struct {
	Text       string
	Filename   string
	AudioBytes int
	StatusCode int
	Metrics    *NetworkMetrics
	Err        error
}

// MetricsLines formats the upload timings for display under the transcript.
func (r *Result) MetricsLines() []string {
	if r == nil || r.Metrics == nil {
		return nil
	}
	m := r.Metrics
	reused := ""
	if m.ConnReused {
		reused = " (reused)"
	}
	return []string{
		fmt.Sprintf("audio:      %s %.1f KB", r.Filename, float64(r.AudioBytes)/1024),
		fmt.Sprintf("conn_wait:  %dms%s", m.ConnWait.Milliseconds(), reused),
		fmt.Sprintf("dns:        %dms", m.DNS.Milliseconds()),
		fmt.Sprintf("tcp:        %dms", m.TCP.Milliseconds()),
		fmt.Sprintf("tls:        %dms", m.TLS.Milliseconds()),
		fmt.Sprintf("req_body:   %dms", m.ReqBody.Milliseconds()),
		fmt.Sprintf("ttfb:       %dms", m.TTFB.Milliseconds()),
		fmt.Sprintf("total:      %dms", m.Sum().Milliseconds()),
	}
}
