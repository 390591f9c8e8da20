package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hatchery_backend/internal/models"
)

// FeedRepository defines the database operations behind feed cost accounting.
type FeedRepository interface {
	// UpsertFeedType returns the id of the feed type with this exact name, creating it if needed.
	UpsertFeedType(ctx context.Context, executor SQLExecutor, name string, category *string) (int64, error)
	UpdateFeedType(ctx context.Context, executor SQLExecutor, feedTypeID int64, name string, category *string) error

	// LockInventoryForFeedType returns the inventory row for a feed type, creating an empty one
	// if none exists. The row stays locked until the surrounding transaction ends.
	LockInventoryForFeedType(ctx context.Context, executor SQLExecutor, feedTypeID int64) (*models.FeedInventory, error)
	// LockInventory loads and locks an inventory row by id.
	LockInventory(ctx context.Context, executor SQLExecutor, inventoryID int64) (*models.FeedInventory, error)
	GetInventoryByID(ctx context.Context, executor SQLExecutor, inventoryID int64) (*models.FeedInventory, error)
	ListInventory(ctx context.Context) ([]models.FeedInventory, error)
	UpdateInventory(ctx context.Context, executor SQLExecutor, inventory *models.FeedInventory) error

	CreatePurchase(ctx context.Context, executor SQLExecutor, purchase *models.FeedPurchase) (int64, error)
	ListPurchases(ctx context.Context, inventoryID *int64) ([]models.FeedPurchase, error)

	CreateFeedingLog(ctx context.Context, executor SQLExecutor, log *models.FeedingLog) (int64, error)
	ListFeedingLogs(ctx context.Context, filters models.FeedingLogFilters) ([]models.FeedingLog, error)
}

type feedRepository struct {
	db *sql.DB
}

// NewFeedRepository creates a new instance of FeedRepository.
func NewFeedRepository(db *sql.DB) FeedRepository {
	return &feedRepository{db: db}
}

const inventorySelect = `SELECT fi.id, fi.feed_type_id, ft.name, ft.category, fi.current_stock_kg, fi.unit_cost_ngn,
	       fi.supplier, fi.notes, fi.created_at, fi.updated_at
	  FROM feed_inventory fi
	  JOIN feed_types ft ON ft.id = fi.feed_type_id`

func scanInventory(row scanner) (*models.FeedInventory, error) {
	inv := &models.FeedInventory{}
	err := row.Scan(&inv.ID, &inv.FeedTypeID, &inv.FeedName, &inv.Category, &inv.CurrentStockKg, &inv.UnitCostNGN,
		&inv.Supplier, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *feedRepository) UpsertFeedType(ctx context.Context, executor SQLExecutor, name string, category *string) (int64, error) {
	// The no-op update makes RETURNING yield the existing id on conflict.
	query := `INSERT INTO feed_types (name, category, created_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	          RETURNING id`
	var id int64
	if err := executor.QueryRowContext(ctx, query, name, category, time.Now()).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: upserting feed type '%s': %v", ErrDatabaseError, name, err)
	}
	return id, nil
}

func (r *feedRepository) UpdateFeedType(ctx context.Context, executor SQLExecutor, feedTypeID int64, name string, category *string) error {
	result, err := executor.ExecContext(ctx, `UPDATE feed_types SET name = $1, category = $2 WHERE id = $3`, name, category, feedTypeID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: feed name '%s' already exists (constraint: %s)", ErrDuplicateKey, name, constraint)
		}
		return fmt.Errorf("%w: updating feed type ID %d: %v", ErrDatabaseError, feedTypeID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *feedRepository) LockInventoryForFeedType(ctx context.Context, executor SQLExecutor, feedTypeID int64) (*models.FeedInventory, error) {
	now := time.Now()
	_, err := executor.ExecContext(ctx, `INSERT INTO feed_inventory (feed_type_id, current_stock_kg, unit_cost_ngn, created_at, updated_at)
	          VALUES ($1, 0, 0, $2, $2)
	          ON CONFLICT (feed_type_id) DO NOTHING`, feedTypeID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: ensuring inventory for feed type %d: %v", ErrDatabaseError, feedTypeID, err)
	}

	inv, err := scanInventory(executor.QueryRowContext(ctx, inventorySelect+` WHERE fi.feed_type_id = $1 FOR UPDATE OF fi`, feedTypeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking inventory for feed type %d: %v", ErrDatabaseError, feedTypeID, err)
	}
	return inv, nil
}

func (r *feedRepository) LockInventory(ctx context.Context, executor SQLExecutor, inventoryID int64) (*models.FeedInventory, error) {
	inv, err := scanInventory(executor.QueryRowContext(ctx, inventorySelect+` WHERE fi.id = $1 FOR UPDATE OF fi`, inventoryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking inventory ID %d: %v", ErrDatabaseError, inventoryID, err)
	}
	return inv, nil
}

func (r *feedRepository) GetInventoryByID(ctx context.Context, executor SQLExecutor, inventoryID int64) (*models.FeedInventory, error) {
	inv, err := scanInventory(executor.QueryRowContext(ctx, inventorySelect+` WHERE fi.id = $1`, inventoryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting inventory ID %d: %v", ErrDatabaseError, inventoryID, err)
	}
	return inv, nil
}

func (r *feedRepository) ListInventory(ctx context.Context) ([]models.FeedInventory, error) {
	rows, err := r.db.QueryContext(ctx, inventorySelect+` ORDER BY ft.name`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing feed inventory: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := []models.FeedInventory{}
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning feed inventory: %v", ErrDatabaseError, err)
		}
		items = append(items, *inv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating feed inventory: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *feedRepository) UpdateInventory(ctx context.Context, executor SQLExecutor, inventory *models.FeedInventory) error {
	query := `UPDATE feed_inventory
	             SET current_stock_kg = $1, unit_cost_ngn = $2, supplier = $3, notes = $4, updated_at = $5
	           WHERE id = $6`
	now := time.Now()
	result, err := executor.ExecContext(ctx, query, inventory.CurrentStockKg, inventory.UnitCostNGN,
		inventory.Supplier, inventory.Notes, now, inventory.ID)
	if err != nil {
		return fmt.Errorf("%w: updating inventory ID %d: %v", ErrDatabaseError, inventory.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	inventory.UpdatedAt = now
	return nil
}

func (r *feedRepository) CreatePurchase(ctx context.Context, executor SQLExecutor, purchase *models.FeedPurchase) (int64, error) {
	query := `INSERT INTO feed_purchases
	          (inventory_id, purchase_date, bag_size_kg, num_bags, total_quantity_kg, cost_per_bag, total_cost_ngn, supplier, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`
	purchase.CreatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query,
		purchase.InventoryID, purchase.PurchaseDate, purchase.BagSizeKg, purchase.NumBags, purchase.TotalQuantityKg,
		purchase.CostPerBag, purchase.TotalCostNGN, purchase.Supplier, purchase.Notes, purchase.CreatedAt,
	).Scan(&purchase.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating feed purchase: %v", ErrDatabaseError, err)
	}
	return purchase.ID, nil
}

func (r *feedRepository) ListPurchases(ctx context.Context, inventoryID *int64) ([]models.FeedPurchase, error) {
	query := `SELECT fp.id, fp.inventory_id, fp.purchase_date, fp.bag_size_kg, fp.num_bags, fp.total_quantity_kg,
	                 fp.cost_per_bag, fp.total_cost_ngn, fp.supplier, fp.notes, fp.created_at, ft.name
	            FROM feed_purchases fp
	            JOIN feed_inventory fi ON fi.id = fp.inventory_id
	            JOIN feed_types ft ON ft.id = fi.feed_type_id`
	var args []interface{}
	if inventoryID != nil {
		query += ` WHERE fp.inventory_id = $1`
		args = append(args, *inventoryID)
	}
	query += ` ORDER BY fp.purchase_date DESC, fp.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing feed purchases: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	purchases := []models.FeedPurchase{}
	for rows.Next() {
		var p models.FeedPurchase
		if err := rows.Scan(&p.ID, &p.InventoryID, &p.PurchaseDate, &p.BagSizeKg, &p.NumBags, &p.TotalQuantityKg,
			&p.CostPerBag, &p.TotalCostNGN, &p.Supplier, &p.Notes, &p.CreatedAt, &p.FeedName); err != nil {
			return nil, fmt.Errorf("%w: scanning feed purchase: %v", ErrDatabaseError, err)
		}
		purchases = append(purchases, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating feed purchases: %v", ErrDatabaseError, err)
	}
	return purchases, nil
}

func (r *feedRepository) CreateFeedingLog(ctx context.Context, executor SQLExecutor, log *models.FeedingLog) (int64, error) {
	query := `INSERT INTO feeding_logs (batch_id, feed_type_id, amount_kg, log_date, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	log.CreatedAt = time.Now()
	var batchID sql.NullInt64
	if log.BatchID != nil {
		batchID = sql.NullInt64{Int64: *log.BatchID, Valid: true}
	}
	err := executor.QueryRowContext(ctx, query, batchID, log.FeedTypeID, log.AmountKg, log.LogDate, log.Notes, log.CreatedAt).Scan(&log.ID)
	if err != nil {
		if foreignKeyViolation(err) {
			return 0, fmt.Errorf("%w: feeding log references a missing batch or feed type", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating feeding log: %v", ErrDatabaseError, err)
	}
	return log.ID, nil
}

func (r *feedRepository) ListFeedingLogs(ctx context.Context, filters models.FeedingLogFilters) ([]models.FeedingLog, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT fl.id, fl.batch_id, fl.feed_type_id, fl.amount_kg, fl.log_date, fl.notes, fl.created_at,
	       ft.name, b.batch_code
	  FROM feeding_logs fl
	  JOIN feed_types ft ON ft.id = fl.feed_type_id
	  LEFT JOIN batches b ON b.id = fl.batch_id`)

	var conditions []string
	var args []interface{}
	argCount := 1
	if filters.BatchID != nil {
		conditions = append(conditions, fmt.Sprintf("fl.batch_id = $%d", argCount))
		args = append(args, *filters.BatchID)
		argCount++
	}
	if filters.FeedTypeID != nil {
		conditions = append(conditions, fmt.Sprintf("fl.feed_type_id = $%d", argCount))
		args = append(args, *filters.FeedTypeID)
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY fl.log_date DESC, fl.id DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing feeding logs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	logs := []models.FeedingLog{}
	for rows.Next() {
		var l models.FeedingLog
		if err := rows.Scan(&l.ID, &l.BatchID, &l.FeedTypeID, &l.AmountKg, &l.LogDate, &l.Notes, &l.CreatedAt,
			&l.FeedName, &l.BatchCode); err != nil {
			return nil, fmt.Errorf("%w: scanning feeding log: %v", ErrDatabaseError, err)
		}
		logs = append(logs, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating feeding logs: %v", ErrDatabaseError, err)
	}
	return logs, nil
}
