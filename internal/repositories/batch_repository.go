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

// BatchRepository defines the database operations for batches and their audit trail.
type BatchRepository interface {
	// CreateBatch inserts a batch. A clash on batch_code is reported as ErrDuplicateKey.
	CreateBatch(ctx context.Context, executor SQLExecutor, batch *models.Batch) (int64, error)
	GetBatchByID(ctx context.Context, executor SQLExecutor, batchID int64) (*models.Batch, error)
	// LockBatch loads a batch and holds its row lock until the surrounding transaction ends.
	LockBatch(ctx context.Context, executor SQLExecutor, batchID int64) (*models.Batch, error)
	UpdateBatch(ctx context.Context, executor SQLExecutor, batch *models.Batch) error
	ListBatches(ctx context.Context, filters models.BatchFilters) ([]models.Batch, error)

	CreateGrowthSample(ctx context.Context, executor SQLExecutor, sample *models.GrowthSample) (int64, error)
	ListGrowthSamples(ctx context.Context, batchID int64) ([]models.GrowthSample, error)

	CreateMovement(ctx context.Context, executor SQLExecutor, movement *models.BatchMovement) (int64, error)
	ListMovements(ctx context.Context, batchID int64) ([]models.BatchMovement, error)
}

type batchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new instance of BatchRepository.
func NewBatchRepository(db *sql.DB) BatchRepository {
	return &batchRepository{db: db}
}

const batchSelect = `SELECT b.id, b.batch_code, b.start_date, b.initial_count, b.current_count, b.current_tank_id,
	       b.current_stage, b.current_avg_size_g, b.status, b.source, b.spawn_id, b.notes, b.created_at, b.updated_at,
	       t.name
	  FROM batches b
	  LEFT JOIN tanks t ON t.id = b.current_tank_id`

func scanBatch(row scanner) (*models.Batch, error) {
	b := &models.Batch{}
	err := row.Scan(&b.ID, &b.BatchCode, &b.StartDate, &b.InitialCount, &b.CurrentCount, &b.CurrentTankID,
		&b.CurrentStage, &b.CurrentAvgSizeG, &b.Status, &b.Source, &b.SpawnID, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
		&b.TankName)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *batchRepository) CreateBatch(ctx context.Context, executor SQLExecutor, batch *models.Batch) (int64, error) {
	query := `INSERT INTO batches
	          (batch_code, start_date, initial_count, current_count, current_tank_id, current_stage, current_avg_size_g,
	           status, source, spawn_id, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query,
		batch.BatchCode, batch.StartDate, batch.InitialCount, batch.CurrentCount, batch.CurrentTankID,
		batch.CurrentStage, batch.CurrentAvgSizeG, batch.Status, batch.Source, batch.SpawnID, batch.Notes, now,
	).Scan(&batch.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return 0, fmt.Errorf("%w: batch code '%s' (constraint: %s)", ErrDuplicateKey, batch.BatchCode, constraint)
		}
		if foreignKeyViolation(err) {
			return 0, fmt.Errorf("%w: batch references a missing tank", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating batch: %v", ErrDatabaseError, err)
	}
	batch.CreatedAt = now
	batch.UpdatedAt = now
	return batch.ID, nil
}

func (r *batchRepository) GetBatchByID(ctx context.Context, executor SQLExecutor, batchID int64) (*models.Batch, error) {
	b, err := scanBatch(executor.QueryRowContext(ctx, batchSelect+` WHERE b.id = $1`, batchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting batch ID %d: %v", ErrDatabaseError, batchID, err)
	}
	return b, nil
}

func (r *batchRepository) LockBatch(ctx context.Context, executor SQLExecutor, batchID int64) (*models.Batch, error) {
	b, err := scanBatch(executor.QueryRowContext(ctx, batchSelect+` WHERE b.id = $1 FOR UPDATE OF b`, batchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking batch ID %d: %v", ErrDatabaseError, batchID, err)
	}
	return b, nil
}

func (r *batchRepository) UpdateBatch(ctx context.Context, executor SQLExecutor, batch *models.Batch) error {
	query := `UPDATE batches
	             SET current_count = $1, current_tank_id = $2, current_stage = $3, current_avg_size_g = $4,
	                 status = $5, notes = $6, updated_at = $7
	           WHERE id = $8`
	now := time.Now()
	result, err := executor.ExecContext(ctx, query, batch.CurrentCount, batch.CurrentTankID, batch.CurrentStage,
		batch.CurrentAvgSizeG, batch.Status, batch.Notes, now, batch.ID)
	if err != nil {
		if foreignKeyViolation(err) {
			return fmt.Errorf("%w: batch references a missing tank", ErrNotFound)
		}
		return fmt.Errorf("%w: updating batch ID %d: %v", ErrDatabaseError, batch.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	batch.UpdatedAt = now
	return nil
}

func (r *batchRepository) ListBatches(ctx context.Context, filters models.BatchFilters) ([]models.Batch, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(batchSelect)

	var conditions []string
	var args []interface{}
	argCount := 1
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.TankID != nil {
		conditions = append(conditions, fmt.Sprintf("b.current_tank_id = $%d", argCount))
		args = append(args, *filters.TankID)
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY b.start_date DESC, b.id DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing batches: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	batches := []models.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning batch: %v", ErrDatabaseError, err)
		}
		batches = append(batches, *b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating batches: %v", ErrDatabaseError, err)
	}
	return batches, nil
}

func (r *batchRepository) CreateGrowthSample(ctx context.Context, executor SQLExecutor, sample *models.GrowthSample) (int64, error) {
	query := `INSERT INTO growth_samples (batch_id, sample_date, avg_weight_g, sample_size, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	sample.CreatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query, sample.BatchID, sample.SampleDate, sample.AvgWeightG, sample.SampleSize,
		sample.Notes, sample.CreatedAt).Scan(&sample.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating growth sample for batch %d: %v", ErrDatabaseError, sample.BatchID, err)
	}
	return sample.ID, nil
}

func (r *batchRepository) ListGrowthSamples(ctx context.Context, batchID int64) ([]models.GrowthSample, error) {
	query := `SELECT id, batch_id, sample_date, avg_weight_g, sample_size, notes, created_at
	            FROM growth_samples
	           WHERE batch_id = $1
	           ORDER BY sample_date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing growth samples: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	samples := []models.GrowthSample{}
	for rows.Next() {
		var s models.GrowthSample
		if err := rows.Scan(&s.ID, &s.BatchID, &s.SampleDate, &s.AvgWeightG, &s.SampleSize, &s.Notes, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning growth sample: %v", ErrDatabaseError, err)
		}
		samples = append(samples, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating growth samples: %v", ErrDatabaseError, err)
	}
	return samples, nil
}

func (r *batchRepository) CreateMovement(ctx context.Context, executor SQLExecutor, movement *models.BatchMovement) (int64, error) {
	query := `INSERT INTO batch_movements (batch_id, from_tank_id, to_tank_id, movement_date, count_moved, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	movement.CreatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query, movement.BatchID, movement.FromTankID, movement.ToTankID,
		movement.MovementDate, movement.CountMoved, movement.Notes, movement.CreatedAt).Scan(&movement.ID)
	if err != nil {
		if foreignKeyViolation(err) {
			return 0, fmt.Errorf("%w: movement references a missing tank", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating movement for batch %d: %v", ErrDatabaseError, movement.BatchID, err)
	}
	return movement.ID, nil
}

func (r *batchRepository) ListMovements(ctx context.Context, batchID int64) ([]models.BatchMovement, error) {
	query := `SELECT id, batch_id, from_tank_id, to_tank_id, movement_date, count_moved, notes, created_at
	            FROM batch_movements
	           WHERE batch_id = $1
	           ORDER BY movement_date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing batch movements: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	movements := []models.BatchMovement{}
	for rows.Next() {
		var m models.BatchMovement
		if err := rows.Scan(&m.ID, &m.BatchID, &m.FromTankID, &m.ToTankID, &m.MovementDate, &m.CountMoved, &m.Notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning batch movement: %v", ErrDatabaseError, err)
		}
		movements = append(movements, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating batch movements: %v", ErrDatabaseError, err)
	}
	return movements, nil
}
