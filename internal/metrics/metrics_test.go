package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())

	a.ObserveRobotsDecision("disallowed_by_robots")

	if val := testutil.ToFloat64(a.robotsDecisions.WithLabelValues("disallowed_by_robots")); val != 1 {
		t.Errorf("expected 1 decision on a, got %f", val)
	}
	if val := testutil.ToFloat64(b.robotsDecisions.WithLabelValues("disallowed_by_robots")); val != 0 {
		t.Errorf("expected 0 decisions on b, got %f", val)
	}
}

func TestObserveAdmission(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.ObserveAdmission(true, 0)
	c.ObserveAdmission(false, 500*time.Millisecond)
	c.ObserveAdmission(false, 250*time.Millisecond)

	if val := testutil.ToFloat64(c.admissionDecisions.WithLabelValues("granted")); val != 1 {
		t.Errorf("expected 1 granted, got %f", val)
	}
	if val := testutil.ToFloat64(c.admissionDecisions.WithLabelValues("denied")); val != 2 {
		t.Errorf("expected 2 denied, got %f", val)
	}
	if count := testutil.CollectAndCount(c.admissionRetryAfter); count != 1 {
		t.Errorf("expected retry-after histogram to be collected, got %d", count)
	}
}

func TestObservePurgeAndErrors(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.ObservePurge(0)
	c.ObservePurge(3)
	c.ObserveError("robots", "fetch transport failure")
	c.ObserveEviction()

	if val := testutil.ToFloat64(c.admissionPurged); val != 3 {
		t.Errorf("expected 3 purged, got %f", val)
	}
	if val := testutil.ToFloat64(c.errors.WithLabelValues("robots", "fetch transport failure")); val != 1 {
		t.Errorf("expected 1 error, got %f", val)
	}
	if val := testutil.ToFloat64(c.robotsCacheEvictions); val != 1 {
		t.Errorf("expected 1 eviction, got %f", val)
	}
}

func TestHandler_ServesInstanceRegistry(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.ObserveRobotsRefresh("changed", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `crawlgate_robots_refresh_total{result="changed"} 1`) {
		t.Errorf("metrics output missing refresh counter:\n%s", body)
	}
	if !strings.Contains(string(body), "crawlgate_robots_fetch_duration_seconds_count 1") {
		t.Errorf("metrics output missing fetch duration:\n%s", body)
	}
}

func TestMiddleware(t *testing.T) {
	c := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/limited", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	for _, path := range []string{"/test", "/limited"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
	}

	if val := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "200")); val != 1 {
		t.Errorf("expected 1 GET 200, got %f", val)
	}
	if val := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "429")); val != 1 {
		t.Errorf("expected 1 GET 429, got %f", val)
	}
	if val := testutil.CollectAndCount(c.httpRequestDuration); val <= 0 {
		t.Errorf("expected request durations to be observed, got %d", val)
	}
}
