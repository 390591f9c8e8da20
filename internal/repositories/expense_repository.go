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

// ExpenseRepository defines the database operations for the expense ledger.
type ExpenseRepository interface {
	// EnsureCategory returns the id of the named category, creating it if needed.
	EnsureCategory(ctx context.Context, executor SQLExecutor, name string) (int64, error)
	ListCategories(ctx context.Context) ([]models.ExpenseCategory, error)
	CreateExpense(ctx context.Context, executor SQLExecutor, expense *models.Expense) (int64, error)
	ListExpenses(ctx context.Context, filters models.ExpenseFilters) ([]models.Expense, error)
	SumExpenses(ctx context.Context) (decimal.Decimal, error)
}

type expenseRepository struct {
	db *sql.DB
}

// NewExpenseRepository creates a new instance of ExpenseRepository.
func NewExpenseRepository(db *sql.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) EnsureCategory(ctx context.Context, executor SQLExecutor, name string) (int64, error) {
	query := `INSERT INTO expense_categories (name) VALUES ($1)
	          ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	          RETURNING id`
	var id int64
	if err := executor.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: ensuring expense category '%s': %v", ErrDatabaseError, name, err)
	}
	return id, nil
}

func (r *expenseRepository) ListCategories(ctx context.Context) ([]models.ExpenseCategory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing expense categories: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	categories := []models.ExpenseCategory{}
	for rows.Next() {
		var c models.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("%w: scanning expense category: %v", ErrDatabaseError, err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating expense categories: %v", ErrDatabaseError, err)
	}
	return categories, nil
}

func (r *expenseRepository) CreateExpense(ctx context.Context, executor SQLExecutor, expense *models.Expense) (int64, error) {
	query := `INSERT INTO expenses (amount_ngn, category_id, expense_date, description, batch_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	expense.CreatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query, expense.AmountNGN, expense.CategoryID, expense.ExpenseDate,
		expense.Description, expense.BatchID, expense.CreatedAt).Scan(&expense.ID)
	if err != nil {
		if foreignKeyViolation(err) {
			return 0, fmt.Errorf("%w: expense references a missing category or batch", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating expense: %v", ErrDatabaseError, err)
	}
	return expense.ID, nil
}

func (r *expenseRepository) ListExpenses(ctx context.Context, filters models.ExpenseFilters) ([]models.Expense, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT e.id, e.amount_ngn, e.category_id, e.expense_date, e.description, e.batch_id,
	       e.created_at, c.name
	  FROM expenses e
	  JOIN expense_categories c ON c.id = e.category_id`)

	var conditions []string
	var args []interface{}
	argCount := 1
	if filters.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("e.expense_date >= $%d", argCount))
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("e.expense_date <= $%d", argCount))
		args = append(args, *filters.EndDate)
		argCount++
	}
	if filters.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("e.category_id = $%d", argCount))
		args = append(args, *filters.CategoryID)
		argCount++
	}
	if filters.BatchID != nil {
		conditions = append(conditions, fmt.Sprintf("e.batch_id = $%d", argCount))
		args = append(args, *filters.BatchID)
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY e.expense_date DESC, e.id DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing expenses: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.AmountNGN, &e.CategoryID, &e.ExpenseDate, &e.Description, &e.BatchID,
			&e.CreatedAt, &e.CategoryName); err != nil {
			return nil, fmt.Errorf("%w: scanning expense: %v", ErrDatabaseError, err)
		}
		expenses = append(expenses, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating expenses: %v", ErrDatabaseError, err)
	}
	return expenses, nil
}

func (r *expenseRepository) SumExpenses(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_ngn), 0) FROM expenses`).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("%w: summing expenses: %v", ErrDatabaseError, err)
	}
	return total, nil
}
