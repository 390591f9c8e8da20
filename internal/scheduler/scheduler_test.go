package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
)

type stubInventory struct {
	items []models.FeedInventory
	err   error
}

func (s stubInventory) ListInventory(ctx context.Context) ([]models.FeedInventory, error) {
	return s.items, s.err
}

type stubSummary struct {
	calls int
	err   error
}

func (s *stubSummary) GetFinancialSummary(ctx context.Context) (*models.FinancialSummary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.FinancialSummary{
		TotalRevenueNGN:  decimal.NewFromInt(430000),
		TotalExpensesNGN: decimal.NewFromInt(230000),
		NetProfitNGN:     decimal.NewFromInt(200000),
	}, nil
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestRunDigestReportsLowStock(t *testing.T) {
	m := metrics.New()
	inventory := stubInventory{items: []models.FeedInventory{
		{ID: 1, FeedName: "Coppens 2mm", CurrentStockKg: decimal.NewFromInt(12), LowStock: true},
		{ID: 2, FeedName: "Skretting 4mm", CurrentStockKg: decimal.NewFromInt(400)},
	}}
	summary := &stubSummary{}

	digest, err := NewScheduler("@daily", inventory, summary, m).RunDigest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(digest.LowStock) != 1 || digest.LowStock[0].FeedName != "Coppens 2mm" {
		t.Fatalf("expected only the low item, got %+v", digest.LowStock)
	}
	if digest.Summary == nil || !digest.Summary.NetProfitNGN.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("expected the summary on the digest")
	}

	out := scrape(t, m)
	for _, want := range []string{
		`hatchery_digest_runs_total{outcome="ok"} 1`,
		`hatchery_feed_stock_kg{feed="Skretting 4mm"} 400`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in metrics output", want)
		}
	}
}

func TestRunDigestErrors(t *testing.T) {
	m := metrics.New()
	summary := &stubSummary{}

	_, err := NewScheduler("@daily", stubInventory{err: errors.New("db down")}, summary, m).RunDigest(context.Background())
	if err == nil {
		t.Fatalf("expected the inventory error")
	}
	if summary.calls != 0 {
		t.Fatalf("the summary must not be computed after an inventory failure")
	}

	failing := &stubSummary{err: errors.New("timeout")}
	if _, err := NewScheduler("@daily", stubInventory{}, failing, m).RunDigest(context.Background()); err == nil {
		t.Fatalf("expected the summary error")
	}
	if !strings.Contains(scrape(t, m), `hatchery_digest_runs_total{outcome="error"} 2`) {
		t.Fatalf("expected two failed runs to be counted")
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler("every morning", stubInventory{}, &stubSummary{}, metrics.New())
	if err := s.Start(); err == nil {
		t.Fatalf("expected an invalid cron spec to be rejected")
	}

	s = NewScheduler("0 6 * * *", stubInventory{}, &stubSummary{}, metrics.New())
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}
