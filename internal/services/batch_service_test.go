package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories/memory"
)

func TestRandomBatchCode(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^BAT-(SP|PUR)-20240301-\d{4}$`)

	spawn := RandomBatchCode(models.BatchSourceSpawn, date)
	if !pattern.MatchString(spawn) || spawn[4:6] != "SP" {
		t.Fatalf("unexpected spawn code %s", spawn)
	}
	purchase := RandomBatchCode(models.BatchSourcePurchase, date)
	if !pattern.MatchString(purchase) || purchase[4:7] != "PUR" {
		t.Fatalf("unexpected purchase code %s", purchase)
	}
}

func TestCreateBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")
	spawnID := int64(7)

	batch, err := env.batch.CreateBatch(ctx, CreateBatchRequest{
		StartDate:    "2024-03-01",
		InitialCount: 5000,
		TankID:       tank.ID,
		SpawnID:      &spawnID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.CurrentCount != 5000 || batch.InitialCount != 5000 {
		t.Fatalf("expected counts of 5000 got %d/%d", batch.CurrentCount, batch.InitialCount)
	}
	if batch.CurrentStage != models.StageFry || batch.Status != models.BatchStatusActive {
		t.Fatalf("expected an Active Fry batch got %s/%s", batch.Status, batch.CurrentStage)
	}
	if batch.Source != models.BatchSourceSpawn {
		t.Fatalf("a batch with a spawn id should be sourced from Spawn, got %s", batch.Source)
	}
	if batch.TankName == nil || *batch.TankName != "Tank A" {
		t.Fatalf("expected tank name on the created batch")
	}
}

func TestCreateBatchValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")

	cases := map[string]CreateBatchRequest{
		"missing date":   {InitialCount: 10, TankID: tank.ID},
		"bad date":       {StartDate: "March 1", InitialCount: 10, TankID: tank.ID},
		"zero count":     {StartDate: "2024-03-01", InitialCount: 0, TankID: tank.ID},
		"missing tank":   {StartDate: "2024-03-01", InitialCount: 10},
		"unknown source": {StartDate: "2024-03-01", InitialCount: 10, TankID: tank.ID, Source: strPtr("Wild")},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := env.batch.CreateBatch(ctx, req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error got %v", err)
			}
		})
	}

	_, err := env.batch.CreateBatch(ctx, CreateBatchRequest{StartDate: "2024-03-01", InitialCount: 10, TankID: 999})
	if !errors.Is(err, ErrTankNotFound) {
		t.Fatalf("expected ErrTankNotFound got %v", err)
	}
}

func TestCreateBatchRetriesCodeCollisions(t *testing.T) {
	store := memory.NewStore()
	codes := []string{"BAT-PUR-20240301-1111", "BAT-PUR-20240301-1111", "BAT-PUR-20240301-2222"}
	calls := 0
	generator := func(string, time.Time) string {
		code := codes[calls%len(codes)]
		calls++
		return code
	}
	svc := NewBatchService(store, store, store, store, store, generator, metrics.New())
	refs := NewReferenceService(store, store, store, store)
	tank, err := refs.CreateTank(context.Background(), CreateTankRequest{Name: "Tank A"})
	if err != nil {
		t.Fatalf("create tank: %v", err)
	}

	req := CreateBatchRequest{StartDate: "2024-03-01", InitialCount: 100, TankID: tank.ID}
	first, err := svc.CreateBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	second, err := svc.CreateBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("second batch should retry past the collision: %v", err)
	}
	if first.BatchCode == second.BatchCode {
		t.Fatalf("batch codes must be unique, both are %s", first.BatchCode)
	}
	if calls != 3 {
		t.Fatalf("expected 3 generator calls got %d", calls)
	}
}

func TestCreateBatchGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := memory.NewStore()
	generator := func(string, time.Time) string { return "BAT-PUR-20240301-1111" }
	svc := NewBatchService(store, store, store, store, store, generator, nil)
	refs := NewReferenceService(store, store, store, store)
	tank, _ := refs.CreateTank(context.Background(), CreateTankRequest{Name: "Tank A"})

	req := CreateBatchRequest{StartDate: "2024-03-01", InitialCount: 100, TankID: tank.ID}
	if _, err := svc.CreateBatch(context.Background(), req); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	_, err := svc.CreateBatch(context.Background(), req)
	if !errors.Is(err, ErrDuplicateCode) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrDuplicateCode got %v", err)
	}
}

func TestRecordSaleDecrementsPopulation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")
	batch := env.mustBatch(t, tank.ID, 5000)
	customer := env.mustCustomer(t, "Mama Nkechi")

	res, err := env.batch.RecordSale(ctx, RecordSaleRequest{
		CustomerID:     customer.ID,
		BatchID:        batch.ID,
		SaleDate:       strPtr("2024-05-01"),
		QuantitySold:   1200,
		TotalWeightKg:  dec("600"),
		TotalAmountNGN: dec("1500000"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Batch.CurrentCount != 3800 {
		t.Fatalf("expected current count 3800 got %d", res.Batch.CurrentCount)
	}
	assertDecimal(t, "price per piece", res.Sale.PricePerPieceNGN, "1250")
	if res.Sale.AvgSizeG == nil {
		t.Fatalf("expected average size to be derived from the weight")
	}
	assertDecimal(t, "avg size", *res.Sale.AvgSizeG, "500")
	if res.Sale.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("expected default payment status Paid got %s", res.Sale.PaymentStatus)
	}
	if res.Sale.CustomerName != "Mama Nkechi" || res.Sale.BatchCode != batch.BatchCode {
		t.Fatalf("expected joined customer and batch on the sale, got %+v", res.Sale)
	}

	_, err = env.batch.RecordSale(ctx, RecordSaleRequest{
		CustomerID:     customer.ID,
		BatchID:        batch.ID,
		QuantitySold:   4000,
		TotalAmountNGN: dec("4000000"),
	})
	if !errors.Is(err, ErrInsufficientPopulation) {
		t.Fatalf("expected ErrInsufficientPopulation got %v", err)
	}

	current, err := env.batch.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if current.CurrentCount != 3800 {
		t.Fatalf("rejected sale must not change the count, got %d", current.CurrentCount)
	}
	sales, _ := env.batch.ListSales(ctx, models.SaleFilters{BatchID: &batch.ID})
	if len(sales) != 1 {
		t.Fatalf("expected 1 sale got %d", len(sales))
	}
}

func TestRecordSaleConcurrentOversell(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")
	batch := env.mustBatch(t, tank.ID, 1000)
	customer := env.mustCustomer(t, "Mama Nkechi")

	// 30 buyers of 70 fish want 2100 from a batch of 1000.
	const buyers, each = 30, 70
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sold     int
		rejected int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.batch.RecordSale(ctx, RecordSaleRequest{
				CustomerID:     customer.ID,
				BatchID:        batch.ID,
				QuantitySold:   each,
				TotalAmountNGN: dec("35000"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case errors.Is(err, ErrInsufficientPopulation):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if sold+rejected != buyers {
		t.Fatalf("expected %d outcomes got %d sold and %d rejected", buyers, sold, rejected)
	}
	if sold != 1000/each {
		t.Fatalf("expected %d sales to fit got %d", 1000/each, sold)
	}
	current, err := env.batch.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if current.CurrentCount < 0 || current.CurrentCount != 1000-sold*each {
		t.Fatalf("expected count %d got %d", 1000-sold*each, current.CurrentCount)
	}
	sales, _ := env.batch.ListSales(ctx, models.SaleFilters{BatchID: &batch.ID})
	if len(sales) != sold {
		t.Fatalf("expected %d sale rows got %d", sold, len(sales))
	}
}

func TestRecordSaleExplicitPriceAndPendingPayment(t *testing.T) {
	env := newTestEnv(t)
	tank := env.mustTank(t, "Tank A")
	batch := env.mustBatch(t, tank.ID, 300)
	customer := env.mustCustomer(t, "Chidi")

	res, err := env.batch.RecordSale(context.Background(), RecordSaleRequest{
		CustomerID:       customer.ID,
		BatchID:          batch.ID,
		QuantitySold:     300,
		PricePerPieceNGN: dec("333.33"),
		TotalAmountNGN:   dec("100000"),
		PaymentStatus:    strPtr("Pending"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDecimal(t, "price per piece", res.Sale.PricePerPieceNGN, "333.33")
	if res.Batch.CurrentCount != 0 {
		t.Fatalf("selling the whole batch should leave 0, got %d", res.Batch.CurrentCount)
	}
	if res.Sale.AvgSizeG != nil {
		t.Fatalf("no weight means no average size")
	}
}

func TestRecordSaleValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")
	batch := env.mustBatch(t, tank.ID, 300)
	customer := env.mustCustomer(t, "Chidi")

	cases := map[string]RecordSaleRequest{
		"zero quantity":    {CustomerID: customer.ID, BatchID: batch.ID, TotalAmountNGN: dec("1")},
		"missing customer": {BatchID: batch.ID, QuantitySold: 1, TotalAmountNGN: dec("1")},
		"missing amount":   {CustomerID: customer.ID, BatchID: batch.ID, QuantitySold: 1},
		"negative amount":  {CustomerID: customer.ID, BatchID: batch.ID, QuantitySold: 1, TotalAmountNGN: dec("-5")},
		"zero weight":      {CustomerID: customer.ID, BatchID: batch.ID, QuantitySold: 1, TotalAmountNGN: dec("1"), TotalWeightKg: dec("0")},
		"bad status":       {CustomerID: customer.ID, BatchID: batch.ID, QuantitySold: 1, TotalAmountNGN: dec("1"), PaymentStatus: strPtr("Owed")},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := env.batch.RecordSale(ctx, req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error got %v", err)
			}
		})
	}

	_, err := env.batch.RecordSale(ctx, RecordSaleRequest{CustomerID: 999, BatchID: batch.ID, QuantitySold: 1, TotalAmountNGN: dec("1")})
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound got %v", err)
	}
	_, err = env.batch.RecordSale(ctx, RecordSaleRequest{CustomerID: customer.ID, BatchID: 999, QuantitySold: 1, TotalAmountNGN: dec("1")})
	if !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound got %v", err)
	}
}

func TestRecordSaleRollsBackWhenBatchUpdateFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")
	batch := env.mustBatch(t, tank.ID, 1000)
	customer := env.mustCustomer(t, "Chidi")

	env.store.FailOn("UpdateBatch", errors.New("connection reset"))
	_, err := env.batch.RecordSale(ctx, RecordSaleRequest{
		CustomerID:     customer.ID,
		BatchID:        batch.ID,
		QuantitySold:   100,
		TotalAmountNGN: dec("50000"),
	})
	if err == nil {
		t.Fatalf("expected the sale to fail")
	}
	env.store.FailOn("UpdateBatch", nil)

	sales, _ := env.batch.ListSales(ctx, models.SaleFilters{})
	if len(sales) != 0 {
		t.Fatalf("the sale row must be rolled back, have %d sales", len(sales))
	}
	current, _ := env.batch.GetBatch(ctx, batch.ID)
	if current.CurrentCount != 1000 {
		t.Fatalf("expected count 1000 got %d", current.CurrentCount)
	}
}

func TestRecordGrowthSample(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")
	batch := env.mustBatch(t, tank.ID, 1000)

	if _, err := env.batch.RecordGrowthSample(ctx, batch.ID, RecordGrowthSampleRequest{
		SampleDate: "2024-03-15",
		AvgWeightG: dec("12.5"),
		SampleSize: 30,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current, err := env.batch.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if current.CurrentAvgSizeG == nil {
		t.Fatalf("expected the batch average size to be set")
	}
	assertDecimal(t, "avg size", *current.CurrentAvgSizeG, "12.5")
	if len(current.GrowthSamples) != 1 {
		t.Fatalf("expected 1 growth sample got %d", len(current.GrowthSamples))
	}

	_, err = env.batch.RecordGrowthSample(ctx, batch.ID, RecordGrowthSampleRequest{SampleDate: "2024-03-15", AvgWeightG: dec("0"), SampleSize: 30})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	_, err = env.batch.RecordGrowthSample(ctx, 999, RecordGrowthSampleRequest{SampleDate: "2024-03-15", AvgWeightG: dec("1"), SampleSize: 1})
	if !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound got %v", err)
	}
}

func TestMoveBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	from := env.mustTank(t, "Tank A")
	to := env.mustTank(t, "Pond 1")
	batch := env.mustBatch(t, from.ID, 1000)

	res, err := env.batch.MoveBatch(ctx, batch.ID, MoveBatchRequest{ToTankID: to.ID, MovementDate: "2024-04-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Movement.FromTankID == nil || *res.Movement.FromTankID != from.ID {
		t.Fatalf("expected the movement to record the source tank")
	}
	if res.Movement.CountMoved != 1000 {
		t.Fatalf("expected the whole batch to move, got %d", res.Movement.CountMoved)
	}
	if res.Batch.CurrentTankID == nil || *res.Batch.CurrentTankID != to.ID {
		t.Fatalf("expected the batch to be in the target tank")
	}

	_, err = env.batch.MoveBatch(ctx, batch.ID, MoveBatchRequest{ToTankID: to.ID, MovementDate: "2024-04-02"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("moving into the current tank should be a validation error, got %v", err)
	}
	_, err = env.batch.MoveBatch(ctx, batch.ID, MoveBatchRequest{ToTankID: 999, MovementDate: "2024-04-02"})
	if !errors.Is(err, ErrTankNotFound) {
		t.Fatalf("expected ErrTankNotFound got %v", err)
	}

	current, _ := env.batch.GetBatch(ctx, batch.ID)
	if len(current.Movements) != 1 {
		t.Fatalf("expected 1 movement got %d", len(current.Movements))
	}
}

func TestUpdateBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")
	batch := env.mustBatch(t, tank.ID, 1000)

	res, err := env.batch.UpdateBatch(ctx, batch.ID, UpdateBatchRequest{CurrentStage: strPtr("Juvenile"), CurrentCount: countPtr(950)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Batch.CurrentStage != models.StageJuvenile || res.Batch.CurrentCount != 950 {
		t.Fatalf("unexpected batch after update %+v", res.Batch)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("forward stage change should not warn, got %v", res.Warnings)
	}

	res, err = env.batch.UpdateBatch(ctx, batch.ID, UpdateBatchRequest{CurrentStage: strPtr("Fingerling")})
	if err != nil {
		t.Fatalf("a backwards stage change is allowed: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected a warning for the backwards stage change, got %v", res.Warnings)
	}

	if _, err := env.batch.UpdateBatch(ctx, batch.ID, UpdateBatchRequest{CurrentCount: countPtr(1001)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("count above initial should be rejected, got %v", err)
	}
	if _, err := env.batch.UpdateBatch(ctx, batch.ID, UpdateBatchRequest{CurrentStage: strPtr("Adult")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown stage should be rejected, got %v", err)
	}
}

func TestUpdateBatchTerminalStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tank := env.mustTank(t, "Tank A")
	batch := env.mustBatch(t, tank.ID, 1000)

	if _, err := env.batch.UpdateBatch(ctx, batch.ID, UpdateBatchRequest{Status: strPtr("Harvested")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := env.batch.UpdateBatch(ctx, batch.ID, UpdateBatchRequest{Status: strPtr("Active")})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition got %v", err)
	}

	active := models.BatchStatusActive
	batches, _ := env.batch.ListBatches(ctx, models.BatchFilters{Status: &active})
	if len(batches) != 0 {
		t.Fatalf("expected no active batches got %d", len(batches))
	}
}

func TestListSalesRejectsInvertedRange(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := env.batch.ListSales(context.Background(), models.SaleFilters{StartDate: &start, EndDate: &end})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}

func countPtr(n models.Count) *models.Count { return &n }
