package api

import (
	"log/slog"
	"net/http"
	"time"
)

// instrumentedTransport wraps a RoundTripper and records one log line plus
// metrics per outbound request. It sees retries as separate requests, which
// is intentional: each wire exchange is observed.
type instrumentedTransport struct {
	rt      http.RoundTripper
	log     *slog.Logger
	metrics *Metrics
}

func newInstrumentedTransport(rt http.RoundTripper, log *slog.Logger, metrics *Metrics) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &instrumentedTransport{rt: rt, log: log, metrics: metrics}
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.rt.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		t.metrics.observeRequest(req.Method, 0, elapsed)
		t.log.Debug("api.request",
			"method", req.Method,
			"path", req.URL.Path,
			"duration_ms", elapsed.Milliseconds(),
			"err", err,
		)
		return nil, err
	}

	t.metrics.observeRequest(req.Method, resp.StatusCode, elapsed)
	t.log.Debug("api.request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}
