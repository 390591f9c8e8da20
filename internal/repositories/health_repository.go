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

// HealthRepository defines the database operations for health logs and treatments.
type HealthRepository interface {
	CreateHealthLog(ctx context.Context, executor SQLExecutor, log *models.HealthLog) (int64, error)
	GetHealthLogByID(ctx context.Context, executor SQLExecutor, healthLogID int64) (*models.HealthLog, error)
	LockHealthLog(ctx context.Context, executor SQLExecutor, healthLogID int64) (*models.HealthLog, error)
	UpdateActionTaken(ctx context.Context, executor SQLExecutor, healthLogID int64, actionTaken string) error
	ListHealthLogs(ctx context.Context, filters models.HealthLogFilters) ([]models.HealthLog, error)

	CreateTreatment(ctx context.Context, executor SQLExecutor, treatment *models.Treatment) (int64, error)
	ListTreatments(ctx context.Context, healthLogID int64) ([]models.Treatment, error)
}

type healthRepository struct {
	db *sql.DB
}

// NewHealthRepository creates a new instance of HealthRepository.
func NewHealthRepository(db *sql.DB) HealthRepository {
	return &healthRepository{db: db}
}

const healthLogSelect = `SELECT h.id, h.batch_id, h.tank_id, h.log_date, h.log_time, h.issue_type, h.severity,
	       h.mortality_count, h.fish_affected, h.temperature_c, h.ph, h.dissolved_oxygen_mg_l, h.ammonia_mg_l,
	       h.symptoms, h.action_taken, h.logged_by, h.created_at, b.batch_code, t.name
	  FROM health_logs h
	  LEFT JOIN batches b ON b.id = h.batch_id
	  LEFT JOIN tanks t ON t.id = h.tank_id`

func scanHealthLog(row scanner) (*models.HealthLog, error) {
	h := &models.HealthLog{}
	err := row.Scan(&h.ID, &h.BatchID, &h.TankID, &h.LogDate, &h.LogTime, &h.IssueType, &h.Severity,
		&h.MortalityCount, &h.FishAffected, &h.TemperatureC, &h.PH, &h.DissolvedOxygenMgL, &h.AmmoniaMgL,
		&h.Symptoms, &h.ActionTaken, &h.LoggedBy, &h.CreatedAt, &h.BatchCode, &h.TankName)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *healthRepository) CreateHealthLog(ctx context.Context, executor SQLExecutor, log *models.HealthLog) (int64, error) {
	query := `INSERT INTO health_logs
	          (batch_id, tank_id, log_date, log_time, issue_type, severity, mortality_count, fish_affected,
	           temperature_c, ph, dissolved_oxygen_mg_l, ammonia_mg_l, symptoms, action_taken, logged_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	          RETURNING id`
	log.CreatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query,
		log.BatchID, log.TankID, log.LogDate, log.LogTime, log.IssueType, log.Severity, log.MortalityCount,
		log.FishAffected, log.TemperatureC, log.PH, log.DissolvedOxygenMgL, log.AmmoniaMgL, log.Symptoms,
		log.ActionTaken, log.LoggedBy, log.CreatedAt,
	).Scan(&log.ID)
	if err != nil {
		if foreignKeyViolation(err) {
			return 0, fmt.Errorf("%w: health log references a missing batch or tank", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating health log: %v", ErrDatabaseError, err)
	}
	return log.ID, nil
}

func (r *healthRepository) GetHealthLogByID(ctx context.Context, executor SQLExecutor, healthLogID int64) (*models.HealthLog, error) {
	h, err := scanHealthLog(executor.QueryRowContext(ctx, healthLogSelect+` WHERE h.id = $1`, healthLogID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting health log ID %d: %v", ErrDatabaseError, healthLogID, err)
	}
	return h, nil
}

func (r *healthRepository) LockHealthLog(ctx context.Context, executor SQLExecutor, healthLogID int64) (*models.HealthLog, error) {
	h, err := scanHealthLog(executor.QueryRowContext(ctx, healthLogSelect+` WHERE h.id = $1 FOR UPDATE OF h`, healthLogID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking health log ID %d: %v", ErrDatabaseError, healthLogID, err)
	}
	return h, nil
}

func (r *healthRepository) UpdateActionTaken(ctx context.Context, executor SQLExecutor, healthLogID int64, actionTaken string) error {
	result, err := executor.ExecContext(ctx, `UPDATE health_logs SET action_taken = $1 WHERE id = $2`, actionTaken, healthLogID)
	if err != nil {
		return fmt.Errorf("%w: updating action for health log ID %d: %v", ErrDatabaseError, healthLogID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *healthRepository) ListHealthLogs(ctx context.Context, filters models.HealthLogFilters) ([]models.HealthLog, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(healthLogSelect)

	var conditions []string
	var args []interface{}
	argCount := 1
	if filters.BatchID != nil {
		conditions = append(conditions, fmt.Sprintf("h.batch_id = $%d", argCount))
		args = append(args, *filters.BatchID)
		argCount++
	}
	if filters.TankID != nil {
		conditions = append(conditions, fmt.Sprintf("h.tank_id = $%d", argCount))
		args = append(args, *filters.TankID)
		argCount++
	}
	if filters.Severity != nil && *filters.Severity != "" {
		conditions = append(conditions, fmt.Sprintf("h.severity = $%d", argCount))
		args = append(args, *filters.Severity)
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY h.log_date DESC, h.id DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing health logs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	logs := []models.HealthLog{}
	for rows.Next() {
		h, err := scanHealthLog(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning health log: %v", ErrDatabaseError, err)
		}
		logs = append(logs, *h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating health logs: %v", ErrDatabaseError, err)
	}
	return logs, nil
}

func (r *healthRepository) CreateTreatment(ctx context.Context, executor SQLExecutor, treatment *models.Treatment) (int64, error) {
	query := `INSERT INTO treatments (health_log_id, treatment_date, medication_name, dosage, cost_ngn, applied_by, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	treatment.CreatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query, treatment.HealthLogID, treatment.TreatmentDate, treatment.MedicationName,
		treatment.Dosage, treatment.CostNGN, treatment.AppliedBy, treatment.Notes, treatment.CreatedAt).Scan(&treatment.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating treatment for health log %d: %v", ErrDatabaseError, treatment.HealthLogID, err)
	}
	return treatment.ID, nil
}

func (r *healthRepository) ListTreatments(ctx context.Context, healthLogID int64) ([]models.Treatment, error) {
	query := `SELECT id, health_log_id, treatment_date, medication_name, dosage, cost_ngn, applied_by, notes, created_at
	            FROM treatments
	           WHERE health_log_id = $1
	           ORDER BY treatment_date, id`
	rows, err := r.db.QueryContext(ctx, query, healthLogID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing treatments: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	treatments := []models.Treatment{}
	for rows.Next() {
		var t models.Treatment
		if err := rows.Scan(&t.ID, &t.HealthLogID, &t.TreatmentDate, &t.MedicationName, &t.Dosage, &t.CostNGN,
			&t.AppliedBy, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning treatment: %v", ErrDatabaseError, err)
		}
		treatments = append(treatments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating treatments: %v", ErrDatabaseError, err)
	}
	return treatments, nil
}
