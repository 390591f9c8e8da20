package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
	"hatchery_backend/pkg/utils"
)

const tankStatusActive = "Active"

// CreateTankRequest registers a tank, pond or cage.
type CreateTankRequest struct {
	Name      string        `json:"name"`
	TankType  *string       `json:"tank_type"`
	CapacityL *models.Count `json:"capacity_l"`
	Status    *string       `json:"status"`
	Notes     *string       `json:"notes"`
}

// CreateCustomerRequest registers a buyer.
type CreateCustomerRequest struct {
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

// CreateWorkerRequest registers an employee.
type CreateWorkerRequest struct {
	FullName  string           `json:"full_name"`
	Role      *string          `json:"role"`
	Phone     *string          `json:"phone"`
	SalaryNGN *decimal.Decimal `json:"salary_ngn"`
	HireDate  *string          `json:"hire_date"`
}

// ReferenceService manages the farm's tanks, customers and workers.
type ReferenceService interface {
	CreateTank(ctx context.Context, req CreateTankRequest) (*models.Tank, error)
	GetTank(ctx context.Context, tankID int64) (*models.Tank, error)
	ListTanks(ctx context.Context) ([]models.Tank, error)

	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*models.Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)

	CreateWorker(ctx context.Context, req CreateWorkerRequest) (*models.Worker, error)
	ListWorkers(ctx context.Context) ([]models.Worker, error)
	// SetWorkerStatus toggles a worker between Active and Inactive; only Active salaries are expensed.
	SetWorkerStatus(ctx context.Context, workerID int64, status string) error
}

type referenceService struct {
	tankRepo     repositories.TankRepository
	customerRepo repositories.CustomerRepository
	workerRepo   repositories.WorkerRepository
	db           repositories.SQLExecutor
}

// NewReferenceService creates a new instance of ReferenceService.
func NewReferenceService(
	tr repositories.TankRepository,
	cr repositories.CustomerRepository,
	wr repositories.WorkerRepository,
	db repositories.SQLExecutor,
) ReferenceService {
	return &referenceService{tankRepo: tr, customerRepo: cr, workerRepo: wr, db: db}
}

func (s *referenceService) CreateTank(ctx context.Context, req CreateTankRequest) (*models.Tank, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErrorf("name is required")
	}
	if req.CapacityL != nil && *req.CapacityL <= 0 {
		return nil, validationErrorf("capacity_l must be greater than 0")
	}
	status := tankStatusActive
	if st := utils.TrimmedOrNil(req.Status); st != nil {
		status = *st
	}
	tank := &models.Tank{
		Name:      name,
		TankType:  utils.TrimmedOrNil(req.TankType),
		CapacityL: req.CapacityL.IntPtr(),
		Status:    status,
		Notes:     utils.TrimmedOrNil(req.Notes),
	}
	if _, err := s.tankRepo.CreateTank(ctx, s.db, tank); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrTankNameExists
		}
		return nil, err
	}
	return tank, nil
}

func (s *referenceService) GetTank(ctx context.Context, tankID int64) (*models.Tank, error) {
	tank, err := s.tankRepo.GetTankByID(ctx, s.db, tankID)
	if err != nil {
		return nil, notFoundOr(err, ErrTankNotFound)
	}
	return tank, nil
}

func (s *referenceService) ListTanks(ctx context.Context) ([]models.Tank, error) {
	return s.tankRepo.ListTanks(ctx)
}

func (s *referenceService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErrorf("name is required")
	}
	email := utils.TrimmedOrNil(req.Email)
	if email != nil && !utils.IsValidEmail(*email) {
		return nil, validationErrorf("email %q is not a valid address", *email)
	}
	customer := &models.Customer{
		Name:     name,
		Phone:    utils.TrimmedOrNil(req.Phone),
		Email:    email,
		Location: utils.TrimmedOrNil(req.Location),
		Notes:    utils.TrimmedOrNil(req.Notes),
	}
	if _, err := s.customerRepo.CreateCustomer(ctx, s.db, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *referenceService) GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error) {
	customer, err := s.customerRepo.GetCustomerByID(ctx, s.db, customerID)
	if err != nil {
		return nil, notFoundOr(err, ErrCustomerNotFound)
	}
	return customer, nil
}

func (s *referenceService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.customerRepo.ListCustomers(ctx)
}

func (s *referenceService) CreateWorker(ctx context.Context, req CreateWorkerRequest) (*models.Worker, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, validationErrorf("full_name is required")
	}
	salary := decimal.Zero
	if req.SalaryNGN != nil {
		if req.SalaryNGN.IsNegative() {
			return nil, validationErrorf("salary_ngn must be 0 or more")
		}
		salary = *req.SalaryNGN
	}
	hireDate, err := utils.ParseOptionalDate(req.HireDate)
	if err != nil {
		return nil, ErrDateFormat
	}
	worker := &models.Worker{
		FullName:  fullName,
		Role:      utils.TrimmedOrNil(req.Role),
		Phone:     utils.TrimmedOrNil(req.Phone),
		SalaryNGN: salary,
		Status:    models.WorkerStatusActive,
		HireDate:  hireDate,
	}
	if _, err := s.workerRepo.CreateWorker(ctx, s.db, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *referenceService) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	return s.workerRepo.ListWorkers(ctx)
}

func (s *referenceService) SetWorkerStatus(ctx context.Context, workerID int64, status string) error {
	status = strings.TrimSpace(status)
	if status != models.WorkerStatusActive && status != models.WorkerStatusInactive {
		return validationErrorf("status must be Active or Inactive")
	}
	if err := s.workerRepo.UpdateWorkerStatus(ctx, s.db, workerID, status); err != nil {
		return notFoundOr(err, ErrWorkerNotFound)
	}
	utils.LogInfo("Worker status changed", map[string]interface{}{"worker_id": workerID, "status": status})
	return nil
}
