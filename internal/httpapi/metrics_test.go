package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"lmrun/internal/errs"
)

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/models/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/models/{id}", http.MethodGet, "418"))
	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/models/"+id, nil))
		if rr.Code != http.StatusTeapot {
			t.Fatalf("status=%d", rr.Code)
		}
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/models/{id}", http.MethodGet, "418"))
	if after-before != 2 {
		t.Fatalf("expected both requests under the route pattern, delta=%v", after-before)
	}
	if n := testutil.ToFloat64(httpInflight.WithLabelValues("/models/a")); n != 0 {
		t.Fatalf("inflight gauge not released: %v", n)
	}
}

func TestMetricsMiddleware_DefaultStatusAndFlush(t *testing.T) {
	flushed := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}\n"))
		f, ok := w.(http.Flusher)
		if !ok {
			t.Errorf("middleware hides http.Flusher")
			return
		}
		f.Flush()
		flushed = true
	})
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/stream", http.MethodPost, "200"))
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/stream", nil))
	if !flushed || !rr.Flushed {
		t.Fatalf("expected flush to reach the recorder")
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/stream", http.MethodPost, "200"))
	if after-before != 1 {
		t.Fatalf("implicit 200 not counted, delta=%v", after-before)
	}
}

func TestWriteError_CountsBackpressure(t *testing.T) {
	before := testutil.ToFloat64(backpressureTotal.WithLabelValues("queue"))
	rr := httptest.NewRecorder()
	if got := writeError(rr, errs.TooBusy("request queue is full")); got != http.StatusTooManyRequests {
		t.Fatalf("status=%d", got)
	}
	if d := testutil.ToFloat64(backpressureTotal.WithLabelValues("queue")) - before; d != 1 {
		t.Fatalf("backpressure delta=%v", d)
	}

	before = testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified"))
	IncrementBackpressure("")
	if d := testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified")) - before; d != 1 {
		t.Fatalf("empty reason should count as unspecified, delta=%v", d)
	}
}
