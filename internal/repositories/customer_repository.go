package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hatchery_backend/internal/models"
)

// CustomerRepository defines the database operations for customers.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, executor SQLExecutor, customer *models.Customer) (int64, error)
	GetCustomerByID(ctx context.Context, executor SQLExecutor, customerID int64) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) CreateCustomer(ctx context.Context, executor SQLExecutor, customer *models.Customer) (int64, error) {
	query := `INSERT INTO customers (name, phone, email, location, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $6)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query, customer.Name, customer.Phone, customer.Email, customer.Location,
		customer.Notes, now).Scan(&customer.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return 0, fmt.Errorf("%w: customer (constraint: %s)", ErrDuplicateKey, constraint)
		}
		return 0, fmt.Errorf("%w: creating customer: %v", ErrDatabaseError, err)
	}
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return customer.ID, nil
}

func (r *customerRepository) GetCustomerByID(ctx context.Context, executor SQLExecutor, customerID int64) (*models.Customer, error) {
	query := `SELECT id, name, phone, email, location, notes, created_at, updated_at FROM customers WHERE id = $1`
	c := &models.Customer{}
	err := executor.QueryRowContext(ctx, query, customerID).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Location,
		&c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting customer ID %d: %v", ErrDatabaseError, customerID, err)
	}
	return c, nil
}

func (r *customerRepository) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	query := `SELECT id, name, phone, email, location, notes, created_at, updated_at FROM customers ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing customers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Location, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
		}
		customers = append(customers, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating customers: %v", ErrDatabaseError, err)
	}
	return customers, nil
}
