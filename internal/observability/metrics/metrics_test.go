package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestHTTPMiddlewareNormalizesHistoryPaths(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	h := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/plants/history/abc/image", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/plants/history/abc", nil))

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`path="/v1/plants/history/{id}/image"`,
		`path="/v1/plants/history/{id}",service="api",status="404"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in metrics output:\n%s", want, out)
		}
	}
}

func TestIdentificationSeries(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordIdentification("api", "heuristic", 3, 200*time.Millisecond)
	m.RecordEnrichment("api", "error")
	m.RecordUpstreamRetry("api", "plantid.identify")
	m.RecordRejected("api", "rate_limit")

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`plantid_identify_results_total{service="api",source="heuristic"} 1`,
		`plantid_enrichment_lookups_total{outcome="error",service="api"} 1`,
		`plantid_upstream_retries_total{operation="plantid.identify",service="api"} 1`,
		`plantid_http_rejected_total{reason="rate_limit",service="api"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in metrics output:\n%s", want, out)
		}
	}
}

func TestWorkerSeriesBySourceAndOutcome(t *testing.T) {
	m := NewWorkerMetrics("worker")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	stored := domain.IdentificationRecorded{
		UserID:     "user-1",
		OccurredAt: now.Add(-2 * time.Second),
		Result: domain.IdentificationResult{
			ID:          "res-1",
			Source:      domain.SourceHeuristic,
			Suggestions: []domain.Suggestion{{Rank: 1, Label: "aloe vera", Probability: 0.8}},
		},
	}
	m.StartRecord(stored, now)
	m.FinishRecord(stored, time.Millisecond, nil)

	rejected := domain.IdentificationRecorded{Result: domain.IdentificationResult{Source: domain.SourcePrimary}}
	m.StartRecord(rejected, now)
	m.FinishRecord(rejected, time.Millisecond, domain.WrapError(domain.ErrInvalidInput, "record history", errors.New("user id is required")))

	failed := domain.IdentificationRecorded{OccurredAt: now.Add(time.Minute)}
	m.StartRecord(failed, now)
	m.FinishRecord(failed, time.Millisecond, errors.New("db down"))

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`plantid_history_events_total{outcome="stored",service="worker",source="heuristic"} 1`,
		`plantid_history_events_total{outcome="rejected",service="worker",source="primary"} 1`,
		`plantid_history_events_total{outcome="failed",service="worker",source="unknown"} 1`,
		`plantid_history_events_in_progress{service="worker"} 0`,
		`plantid_history_stored_top_probability_count{service="worker",source="heuristic"} 1`,
		`plantid_history_event_lag_seconds_count{service="worker"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in metrics output:\n%s", want, out)
		}
	}
	if strings.Contains(out, `stored_top_probability_count{service="worker",source="primary"}`) {
		t.Fatalf("rejected records must not report a stored probability:\n%s", out)
	}
}
