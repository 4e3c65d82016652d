package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"

	crewgate "github.com/crewgate/crewgate"
)

type fakeSource struct {
	counters map[crewgate.MetricID]uint64
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() crewgate.MetricsSnapshot {
	return crewgate.MetricsSnapshot{Counters: f.counters}
}

func (f *fakeSource) AuditDropped() uint64 {
	return f.dropped
}

func TestRenderExposition(t *testing.T) {
	source := &fakeSource{
		counters: map[crewgate.MetricID]uint64{
			crewgate.MetricCheckInSuccess: 42,
			crewgate.MetricRateLimitHit:   7,
		},
		dropped: 3,
	}

	text := NewPrometheusExporterFromSource(source).Render()

	for _, want := range []string{
		"# TYPE crewgate_checkin_success_total counter",
		"crewgate_checkin_success_total 42",
		"crewgate_rate_limit_hit_total 7",
		"crewgate_audit_dropped_total 3",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("exposition missing %q:\n%s", want, text)
		}
	}

	// Unset counters still render at zero.
	if !strings.Contains(text, "crewgate_checkout_total 0") {
		t.Errorf("exposition missing zero-valued counter:\n%s", text)
	}
}

func TestRenderEmptySource(t *testing.T) {
	source := &fakeSource{}
	if text := NewPrometheusExporterFromSource(source).Render(); text != "" {
		t.Fatalf("empty source rendered %q", text)
	}

	var nilExporter *PrometheusExporter
	if text := nilExporter.Render(); text != "" {
		t.Fatalf("nil exporter rendered %q", text)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	source := &fakeSource{
		counters: map[crewgate.MetricID]uint64{crewgate.MetricCheckOut: 5},
	}
	exporter := NewPrometheusExporterFromSource(source)

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "crewgate_checkout_total 5") {
		t.Fatalf("body missing counter:\n%s", rec.Body.String())
	}
}
