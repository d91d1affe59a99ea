package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObserveIngest(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.ObserveIngest(ResultOK, 11, 0.01)
	p.ObserveIngest(ResultOK, 5, 0.02)
	p.ObserveIngest(ResultConflict, 7, 0.01)
	p.IncHistoryAppendFailure()

	if got := testutil.ToFloat64(p.ingests.WithLabelValues(ResultOK)); got != 2 {
		t.Fatalf("expected 2 ok ingests, got %v", got)
	}
	if got := testutil.ToFloat64(p.ingests.WithLabelValues(ResultConflict)); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
	if got := testutil.ToFloat64(p.ingestBytes); got != 16 {
		t.Fatalf("expected 16 bytes, got %v", got)
	}
	if got := testutil.ToFloat64(p.historyFailed); got != 1 {
		t.Fatalf("expected 1 history failure, got %v", got)
	}
}

func TestPromHandlerExposesMetrics(t *testing.T) {
	p := NewProm(nil)
	p.ObserveIngest(ResultOK, 1, 0.001)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `mdm_ingest_total{result="ok"} 1`) {
		t.Fatalf("expected ingest counter in output, got:\n%s", body)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = Noop{}
	r.ObserveIngest(ResultStorage, 0, 0)
	r.IncHistoryAppendFailure()
}
