package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/models"
)

// WorkerRepository defines the database operations for workers.
type WorkerRepository interface {
	CreateWorker(ctx context.Context, executor SQLExecutor, worker *models.Worker) (int64, error)
	ListWorkers(ctx context.Context) ([]models.Worker, error)
	UpdateWorkerStatus(ctx context.Context, executor SQLExecutor, workerID int64, status string) error
	// SumActiveSalaries totals salary_ngn over workers with status Active.
	SumActiveSalaries(ctx context.Context) (decimal.Decimal, error)
}

type workerRepository struct {
	db *sql.DB
}

// NewWorkerRepository creates a new instance of WorkerRepository.
func NewWorkerRepository(db *sql.DB) WorkerRepository {
	return &workerRepository{db: db}
}

func (r *workerRepository) CreateWorker(ctx context.Context, executor SQLExecutor, worker *models.Worker) (int64, error) {
	query := `INSERT INTO workers (full_name, role, phone, salary_ngn, status, hire_date, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query, worker.FullName, worker.Role, worker.Phone, worker.SalaryNGN,
		worker.Status, worker.HireDate, now).Scan(&worker.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating worker: %v", ErrDatabaseError, err)
	}
	worker.CreatedAt = now
	worker.UpdatedAt = now
	return worker.ID, nil
}

func (r *workerRepository) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	query := `SELECT id, full_name, role, phone, salary_ngn, status, hire_date, created_at, updated_at
	            FROM workers ORDER BY full_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing workers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	workers := []models.Worker{}
	for rows.Next() {
		var w models.Worker
		if err := rows.Scan(&w.ID, &w.FullName, &w.Role, &w.Phone, &w.SalaryNGN, &w.Status, &w.HireDate,
			&w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning worker: %v", ErrDatabaseError, err)
		}
		workers = append(workers, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating workers: %v", ErrDatabaseError, err)
	}
	return workers, nil
}

func (r *workerRepository) UpdateWorkerStatus(ctx context.Context, executor SQLExecutor, workerID int64, status string) error {
	result, err := executor.ExecContext(ctx, `UPDATE workers SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), workerID)
	if err != nil {
		return fmt.Errorf("%w: updating status for worker ID %d: %v", ErrDatabaseError, workerID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *workerRepository) SumActiveSalaries(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(salary_ngn), 0) FROM workers WHERE status = $1`
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, models.WorkerStatusActive).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("%w: summing salaries: %v", ErrDatabaseError, err)
	}
	return total, nil
}
