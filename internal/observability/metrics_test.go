package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveRebuild("ok", time.Millisecond, 1, 1, 0)
	m.ObserveQuery("ok", time.Millisecond)
	m.IncCache("lookup", "hit")
	m.SetBackendUp("memory", true)
	m.SetBreakerState("memory", 2)
	m.ObserveSourceFetch("github", "ok", 3)
	if m.Registry() != nil {
		t.Fatalf("nil metrics registry: want nil")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil handler status: want=503 got=%d", rec.Code)
	}
}

func TestRebuildMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRebuild("ok", 10*time.Millisecond, 3, 5, 2)
	m.ObserveRebuild("error", time.Millisecond, 9, 9, 0)

	if got := testutil.ToFloat64(m.rebuilds.WithLabelValues("ok")); got != 1 {
		t.Fatalf("ok rebuilds: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.graphEntities); got != 3 {
		t.Fatalf("entities gauge should keep last committed value: want=3 got=%v", got)
	}
	if got := testutil.ToFloat64(m.malformedSkipped); got != 2 {
		t.Fatalf("malformed: want=2 got=%v", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveQuery("degraded", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `skillgraph_graph_queries_total{outcome="degraded"} 1`) {
		t.Fatalf("metrics output missing query counter:\n%s", body)
	}
}
