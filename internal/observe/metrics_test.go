package observe

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %s not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s has data %T, want Sum[int64]", name, met.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordSession(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSession(ctx, "ok", 2*time.Second)
	m.RecordSession(ctx, "ok", time.Second)
	m.RecordSession(ctx, "error", time.Second)

	rm := collect(t, reader)
	if got := sumOf(t, rm, "vocabdeck.sessions"); got != 3 {
		t.Errorf("vocabdeck.sessions = %d, want 3", got)
	}

	met := findMetric(rm, "vocabdeck.session.duration")
	if met == nil {
		t.Fatal("vocabdeck.session.duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data = %T, want Histogram[float64]", met.Data)
	}
	if len(hist.DataPoints) != 2 {
		t.Fatalf("got %d data points, want one per status", len(hist.DataPoints))
	}
	for _, dp := range hist.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		if status.AsString() == "ok" && dp.Count != 2 {
			t.Errorf("ok count = %d, want 2", dp.Count)
		}
	}
}

func TestCountersAndStages(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.Cards.Add(ctx, 5)
	m.Mismatches.Add(ctx, 1)
	m.FormatterDrift.Add(ctx, 2)
	m.RecordFormatterRequest(ctx, "openai", "ok")
	m.RecordFormatterRequest(ctx, "openai", "error")
	m.ActiveGenerations.Add(ctx, 1)
	m.ActiveGenerations.Add(ctx, -1)
	m.RecordStage(ctx, "segment", 300*time.Millisecond)

	rm := collect(t, reader)

	tests := []struct {
		name string
		want int64
	}{
		{"vocabdeck.cards", 5},
		{"vocabdeck.mismatches", 1},
		{"vocabdeck.formatter.drift", 2},
		{"vocabdeck.formatter.requests", 2},
		{"vocabdeck.generations.active", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sumOf(t, rm, tt.name); got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
			}
		})
	}

	if findMetric(rm, "vocabdeck.stage.duration") == nil {
		t.Error("vocabdeck.stage.duration not recorded")
	}
}

func TestMiddleware(t *testing.T) {
	m, reader := newTestMetrics(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	handler := Middleware(m, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if !strings.Contains(logs.String(), "path=/status") || !strings.Contains(logs.String(), "status=418") {
		t.Errorf("log line missing request details: %s", logs.String())
	}

	rm := collect(t, reader)
	if findMetric(rm, "vocabdeck.http.request.duration") == nil {
		t.Error("vocabdeck.http.request.duration not recorded")
	}
}

// histogramRoutes returns the route label of every request duration series
func histogramRoutes(t *testing.T, rm metricdata.ResourceMetrics) []string {
	t.Helper()
	met := findMetric(rm, "vocabdeck.http.request.duration")
	if met == nil {
		t.Fatal("vocabdeck.http.request.duration not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", met.Data)
	}

	var routes []string
	for _, dp := range hist.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("route"))
		routes = append(routes, v.AsString())
	}
	return routes
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m, reader := newTestMetrics(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Middleware(m, logger)(mux)

	for _, path := range []string{"/sessions/a", "/sessions/b", "/sessions/c"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, path, nil))
	}
	for _, path := range []string{"/random/1", "/random/2", "/wp-login.php"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	routes := histogramRoutes(t, collect(t, reader))
	if len(routes) != 2 {
		t.Fatalf("got %d series %v, want 2", len(routes), routes)
	}

	seen := map[string]bool{}
	for _, r := range routes {
		seen[r] = true
	}
	for _, want := range []string{"DELETE /sessions/{id}", "unmatched"} {
		if !seen[want] {
			t.Errorf("route %q missing from %v", want, routes)
		}
	}
}

func TestMiddlewareWithoutMetrics(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	handler := Middleware(nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if !strings.Contains(logs.String(), "status=202") || !strings.Contains(logs.String(), "route=unmatched") {
		t.Errorf("log line missing request details: %s", logs.String())
	}
}

func TestInitProvider(t *testing.T) {
	ctx := context.Background()
	p, err := InitProvider(ctx, ProviderConfig{ServiceVersion: "test", Registry: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	m, err := NewMetrics(p.MeterProvider)
	if err != nil {
		t.Fatal(err)
	}
	m.Cards.Add(ctx, 3)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "vocabdeck_cards_total") {
		t.Errorf("exposition does not contain vocabdeck_cards_total:\n%s", body)
	}
}
