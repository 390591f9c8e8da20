package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/models"
)

// SalesRepository defines the database operations for sales.
type SalesRepository interface {
	CreateSale(ctx context.Context, executor SQLExecutor, sale *models.Sale) (int64, error)
	ListSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, error)
	SumRevenue(ctx context.Context) (decimal.Decimal, error)
	// SumOutstanding totals sales whose payment status is not Paid.
	SumOutstanding(ctx context.Context) (decimal.Decimal, error)
}

type salesRepository struct {
	db *sql.DB
}

// NewSalesRepository creates a new instance of SalesRepository.
func NewSalesRepository(db *sql.DB) SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) CreateSale(ctx context.Context, executor SQLExecutor, sale *models.Sale) (int64, error) {
	query := `INSERT INTO sales
	          (customer_id, batch_id, sale_date, quantity_sold, total_weight_kg, avg_size_g, price_per_piece_ngn,
	           total_amount_ngn, payment_status, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id`
	sale.CreatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query,
		sale.CustomerID, sale.BatchID, sale.SaleDate, sale.QuantitySold, sale.TotalWeightKg, sale.AvgSizeG,
		sale.PricePerPieceNGN, sale.TotalAmountNGN, sale.PaymentStatus, sale.Notes, sale.CreatedAt,
	).Scan(&sale.ID)
	if err != nil {
		if foreignKeyViolation(err) {
			return 0, fmt.Errorf("%w: sale references a missing customer or batch", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating sale: %v", ErrDatabaseError, err)
	}
	return sale.ID, nil
}

func (r *salesRepository) ListSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT s.id, s.customer_id, s.batch_id, s.sale_date, s.quantity_sold, s.total_weight_kg,
	       s.avg_size_g, s.price_per_piece_ngn, s.total_amount_ngn, s.payment_status, s.notes, s.created_at,
	       c.name, b.batch_code
	  FROM sales s
	  JOIN customers c ON c.id = s.customer_id
	  JOIN batches b ON b.id = s.batch_id`)

	var conditions []string
	var args []interface{}
	argCount := 1
	if filters.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("s.sale_date >= $%d", argCount))
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("s.sale_date <= $%d", argCount))
		args = append(args, *filters.EndDate)
		argCount++
	}
	if filters.BatchID != nil {
		conditions = append(conditions, fmt.Sprintf("s.batch_id = $%d", argCount))
		args = append(args, *filters.BatchID)
		argCount++
	}
	if filters.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("s.customer_id = $%d", argCount))
		args = append(args, *filters.CustomerID)
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY s.sale_date DESC, s.id DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing sales: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		var s models.Sale
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.BatchID, &s.SaleDate, &s.QuantitySold, &s.TotalWeightKg,
			&s.AvgSizeG, &s.PricePerPieceNGN, &s.TotalAmountNGN, &s.PaymentStatus, &s.Notes, &s.CreatedAt,
			&s.CustomerName, &s.BatchCode); err != nil {
			return nil, fmt.Errorf("%w: scanning sale: %v", ErrDatabaseError, err)
		}
		sales = append(sales, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating sales: %v", ErrDatabaseError, err)
	}
	return sales, nil
}

func (r *salesRepository) SumRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_amount_ngn), 0) FROM sales`).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("%w: summing revenue: %v", ErrDatabaseError, err)
	}
	return total, nil
}

func (r *salesRepository) SumOutstanding(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(total_amount_ngn), 0) FROM sales WHERE payment_status <> $1`
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, models.PaymentStatusPaid).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("%w: summing outstanding receivables: %v", ErrDatabaseError, err)
	}
	return total, nil
}
