package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hatchery_backend/internal/models"
)

// TankRepository defines the database operations for tanks.
type TankRepository interface {
	CreateTank(ctx context.Context, executor SQLExecutor, tank *models.Tank) (int64, error)
	GetTankByID(ctx context.Context, executor SQLExecutor, tankID int64) (*models.Tank, error)
	ListTanks(ctx context.Context) ([]models.Tank, error)
}

type tankRepository struct {
	db *sql.DB
}

// NewTankRepository creates a new instance of TankRepository.
func NewTankRepository(db *sql.DB) TankRepository {
	return &tankRepository{db: db}
}

func (r *tankRepository) CreateTank(ctx context.Context, executor SQLExecutor, tank *models.Tank) (int64, error) {
	query := `INSERT INTO tanks (name, tank_type, capacity_l, status, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $6)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query, tank.Name, tank.TankType, tank.CapacityL, tank.Status, tank.Notes, now).Scan(&tank.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return 0, fmt.Errorf("%w: tank name '%s' (constraint: %s)", ErrDuplicateKey, tank.Name, constraint)
		}
		return 0, fmt.Errorf("%w: creating tank: %v", ErrDatabaseError, err)
	}
	tank.CreatedAt = now
	tank.UpdatedAt = now
	return tank.ID, nil
}

func (r *tankRepository) GetTankByID(ctx context.Context, executor SQLExecutor, tankID int64) (*models.Tank, error) {
	query := `SELECT id, name, tank_type, capacity_l, status, notes, created_at, updated_at FROM tanks WHERE id = $1`
	t := &models.Tank{}
	err := executor.QueryRowContext(ctx, query, tankID).Scan(&t.ID, &t.Name, &t.TankType, &t.CapacityL, &t.Status,
		&t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting tank ID %d: %v", ErrDatabaseError, tankID, err)
	}
	return t, nil
}

func (r *tankRepository) ListTanks(ctx context.Context) ([]models.Tank, error) {
	query := `SELECT id, name, tank_type, capacity_l, status, notes, created_at, updated_at FROM tanks ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing tanks: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	tanks := []models.Tank{}
	for rows.Next() {
		var t models.Tank
		if err := rows.Scan(&t.ID, &t.Name, &t.TankType, &t.CapacityL, &t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning tank: %v", ErrDatabaseError, err)
		}
		tanks = append(tanks, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating tanks: %v", ErrDatabaseError, err)
	}
	return tanks, nil
}
