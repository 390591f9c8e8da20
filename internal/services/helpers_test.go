package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories/memory"
)

type testEnv struct {
	store     *memory.Store
	metrics   *metrics.Metrics
	feed      FeedService
	batch     BatchService
	health    HealthService
	finance   FinanceService
	reference ReferenceService
	auth      AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	m := metrics.New()
	return &testEnv{
		store:     store,
		metrics:   m,
		feed:      NewFeedService(store, store, store, store, decimal.NewFromInt(50), m),
		batch:     NewBatchService(store, store, store, store, store, nil, m),
		health:    NewHealthService(store, store, store, store, store, m),
		finance:   NewFinanceService(store, store, store, store, store, m),
		reference: NewReferenceService(store, store, store, store),
		auth:      NewAuthService(store, store),
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func (e *testEnv) mustTank(t *testing.T, name string) *models.Tank {
	t.Helper()
	tank, err := e.reference.CreateTank(context.Background(), CreateTankRequest{Name: name})
	if err != nil {
		t.Fatalf("create tank %s: %v", name, err)
	}
	return tank
}

func (e *testEnv) mustCustomer(t *testing.T, name string) *models.Customer {
	t.Helper()
	customer, err := e.reference.CreateCustomer(context.Background(), CreateCustomerRequest{Name: name})
	if err != nil {
		t.Fatalf("create customer %s: %v", name, err)
	}
	return customer
}

func (e *testEnv) mustBatch(t *testing.T, tankID int64, initial int) *models.Batch {
	t.Helper()
	batch, err := e.batch.CreateBatch(context.Background(), CreateBatchRequest{
		StartDate:    "2024-03-01",
		InitialCount: models.Count(initial),
		TankID:       tankID,
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	return batch
}

func (e *testEnv) mustPurchase(t *testing.T, name, bagKg string, bags int, costPerBag string) *FeedPurchaseResult {
	t.Helper()
	res, err := e.feed.RecordPurchase(context.Background(), RecordFeedPurchaseRequest{
		FeedName:     name,
		BagSizeKg:    dec(bagKg),
		NumBags:      models.Count(bags),
		CostPerBag:   dec(costPerBag),
		PurchaseDate: strPtr("2024-03-01"),
	})
	if err != nil {
		t.Fatalf("record purchase: %v", err)
	}
	return res
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: expected %s got %s", what, want, got.String())
	}
}
