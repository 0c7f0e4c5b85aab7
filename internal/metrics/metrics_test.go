package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterToleratesRepeats(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestObserveUpstream(t *testing.T) {
	c := UpstreamRequestsTotal.WithLabelValues("/v1/test", http.MethodPost, "418")
	before := testutil.ToFloat64(c)

	ObserveUpstream("/v1/test", http.MethodPost, http.StatusTeapot, 10*time.Millisecond)

	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("expected counter %v, got %v", before+1, got)
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/probe", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if n := testutil.CollectAndCount(ServerLatencySeconds, "simpleopenai_fakeapi_latency_seconds"); n == 0 {
		t.Fatalf("expected latency observation")
	}
}
