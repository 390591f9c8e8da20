package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"hatchery_backend/internal/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db, mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var inventoryColumns = []string{"id", "feed_type_id", "name", "category", "current_stock_kg", "unit_cost_ngn",
	"supplier", "notes", "created_at", "updated_at"}

var batchColumns = []string{"id", "batch_code", "start_date", "initial_count", "current_count", "current_tank_id",
	"current_stage", "current_avg_size_g", "status", "source", "spawn_id", "notes", "created_at", "updated_at", "name"}

func TestWithinTxCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE feed_inventory`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewFeedRepository(db)
	err := NewTransactor(db).WithinTx(context.Background(), func(tx SQLExecutor) error {
		return repo.UpdateInventory(context.Background(), tx, &models.FeedInventory{ID: 3, CurrentStockKg: decimal.NewFromInt(150)})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectationsMet(t, mock)
}

func TestWithinTxRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTransactor(db).WithinTx(context.Background(), func(tx SQLExecutor) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error back, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected the panic to propagate")
		}
		expectationsMet(t, mock)
	}()
	_ = NewTransactor(db).WithinTx(context.Background(), func(tx SQLExecutor) error {
		panic("unexpected")
	})
}

func TestWithinTxBeginFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := NewTransactor(db).WithinTx(context.Background(), func(tx SQLExecutor) error {
		t.Fatalf("callback must not run")
		return nil
	})
	if !errors.Is(err, ErrDatabaseError) {
		t.Fatalf("expected ErrDatabaseError got %v", err)
	}
	expectationsMet(t, mock)
}

func TestLockInventoryForFeedType(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectExec(`INSERT INTO feed_inventory .* ON CONFLICT \(feed_type_id\) DO NOTHING`).
		WithArgs(int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`WHERE fi\.feed_type_id = \$1 FOR UPDATE OF fi`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(inventoryColumns).
			AddRow(9, 5, "Coppens 2mm", "Pellets", "150.000", "1000.0000", nil, nil, now, now))

	inv, err := NewFeedRepository(db).LockInventoryForFeedType(context.Background(), db, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.ID != 9 || inv.FeedName != "Coppens 2mm" || inv.Category == nil || *inv.Category != "Pellets" {
		t.Fatalf("unexpected inventory %+v", inv)
	}
	if !inv.CurrentStockKg.Equal(decimal.NewFromInt(150)) || !inv.UnitCostNGN.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected amounts %s / %s", inv.CurrentStockKg, inv.UnitCostNGN)
	}
	if inv.Supplier != nil {
		t.Fatalf("expected a NULL supplier to scan as nil")
	}
	expectationsMet(t, mock)
}

func TestLockInventoryNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`WHERE fi\.id = \$1 FOR UPDATE OF fi`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	if _, err := NewFeedRepository(db).LockInventory(context.Background(), db, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUpdateFeedTypeDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE feed_types SET name = \$1, category = \$2 WHERE id = \$3`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "feed_types_name_key"})

	err := NewFeedRepository(db).UpdateFeedType(context.Background(), db, 1, "Coppens 2mm", nil)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUpdateInventoryMissingRow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE feed_inventory`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewFeedRepository(db).UpdateInventory(context.Background(), db, &models.FeedInventory{ID: 77})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCreateFeedingLogMissingBatch(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO feeding_logs`).
		WillReturnError(&pq.Error{Code: "23503"})

	batchID := int64(12)
	_, err := NewFeedRepository(db).CreateFeedingLog(context.Background(), db, &models.FeedingLog{BatchID: &batchID, FeedTypeID: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCreateBatch(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO batches`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	batch := &models.Batch{BatchCode: "B-240301-AB12", InitialCount: 5000, CurrentCount: 5000}
	id, err := NewBatchRepository(db).CreateBatch(context.Background(), db, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 21 || batch.ID != 21 || batch.CreatedAt.IsZero() {
		t.Fatalf("unexpected batch %+v", batch)
	}
	expectationsMet(t, mock)
}

func TestCreateBatchConstraintErrors(t *testing.T) {
	cases := map[string]struct {
		err  error
		want error
	}{
		"duplicate code": {&pq.Error{Code: "23505", Constraint: "batches_batch_code_key"}, ErrDuplicateKey},
		"missing tank":   {&pq.Error{Code: "23503"}, ErrNotFound},
		"other":          {errors.New("connection refused"), ErrDatabaseError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(`INSERT INTO batches`).WillReturnError(tc.err)

			_, err := NewBatchRepository(db).CreateBatch(context.Background(), db, &models.Batch{BatchCode: "B-1"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
			expectationsMet(t, mock)
		})
	}
}

func TestLockBatch(t *testing.T) {
	db, mock := newMock(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE b\.id = \$1 FOR UPDATE OF b`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(batchColumns).
			AddRow(4, "B-240301-AB12", start, 5000, 3800, 2, "Fingerling", "12.5", "Active", "Internal", nil, nil, start, start, "Tank A"))

	b, err := NewBatchRepository(db).LockBatch(context.Background(), db, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.CurrentCount != 3800 || b.CurrentTankID == nil || *b.CurrentTankID != 2 {
		t.Fatalf("unexpected batch %+v", b)
	}
	if b.CurrentAvgSizeG == nil || !b.CurrentAvgSizeG.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected avg size %v", b.CurrentAvgSizeG)
	}
	if b.TankName == nil || *b.TankName != "Tank A" || b.SpawnID != nil {
		t.Fatalf("unexpected joins %+v", b)
	}
	expectationsMet(t, mock)
}

func TestGetBatchNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`WHERE b\.id = \$1`).WillReturnError(sql.ErrNoRows)

	if _, err := NewBatchRepository(db).GetBatchByID(context.Background(), db, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	expectationsMet(t, mock)
}

func TestListBatchesFilters(t *testing.T) {
	db, mock := newMock(t)
	status := "Active"
	tankID := int64(2)
	mock.ExpectQuery(`WHERE b\.status = \$1 AND b\.current_tank_id = \$2 ORDER BY b\.start_date DESC`).
		WithArgs("Active", int64(2)).
		WillReturnRows(sqlmock.NewRows(batchColumns))

	batches, err := NewBatchRepository(db).ListBatches(context.Background(), models.BatchFilters{Status: &status, TankID: &tankID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batches == nil || len(batches) != 0 {
		t.Fatalf("expected an empty, non-nil slice, got %v", batches)
	}
	expectationsMet(t, mock)
}

func TestCreateTankDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO tanks`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "tanks_name_key"})

	_, err := NewTankRepository(db).CreateTank(context.Background(), db, &models.Tank{Name: "Tank A", Status: "Active"})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey got %v", err)
	}
	expectationsMet(t, mock)
}

func TestSumOutstanding(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_amount_ngn\), 0\) FROM sales WHERE payment_status <> \$1`).
		WithArgs(models.PaymentStatusPaid).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("30000.00"))

	total, err := NewSalesRepository(db).SumOutstanding(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(30000)) {
		t.Fatalf("expected 30000 got %s", total)
	}
	expectationsMet(t, mock)
}

func TestSumExpensesError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM expenses`).WillReturnError(errors.New("canceling statement"))

	total, err := NewExpenseRepository(db).SumExpenses(context.Background())
	if !errors.Is(err, ErrDatabaseError) {
		t.Fatalf("expected ErrDatabaseError got %v", err)
	}
	if !total.IsZero() {
		t.Fatalf("expected zero on failure got %s", total)
	}
	expectationsMet(t, mock)
}

func TestCountUsers(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := NewAuthRepository(db).CountUsers(context.Background(), db)
	if err != nil || count != 3 {
		t.Fatalf("expected 3 users got %d (%v)", count, err)
	}
	expectationsMet(t, mock)
}
