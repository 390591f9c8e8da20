package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
)

func (s *Store) CreateTank(ctx context.Context, executor repositories.SQLExecutor, tank *models.Tank) (int64, error) {
	err := s.exec(executor, "CreateTank", func(st *memoryState) error {
		for _, t := range st.tanks {
			if t.Name == tank.Name {
				return fmt.Errorf("%w: tank name '%s'", repositories.ErrDuplicateKey, tank.Name)
			}
		}
		now := time.Now()
		tank.ID = st.newID()
		tank.CreatedAt = now
		tank.UpdatedAt = now
		st.tanks[tank.ID] = *tank
		return nil
	})
	if err != nil {
		return 0, err
	}
	return tank.ID, nil
}

func (s *Store) GetTankByID(ctx context.Context, executor repositories.SQLExecutor, tankID int64) (*models.Tank, error) {
	var out *models.Tank
	err := s.exec(executor, "GetTankByID", func(st *memoryState) error {
		t, ok := st.tanks[tankID]
		if !ok {
			return repositories.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (s *Store) ListTanks(ctx context.Context) ([]models.Tank, error) {
	tanks := []models.Tank{}
	err := s.read("ListTanks", func(st *memoryState) error {
		for _, t := range st.tanks {
			tanks = append(tanks, t)
		}
		return nil
	})
	sort.Slice(tanks, func(i, j int) bool { return tanks[i].Name < tanks[j].Name })
	return tanks, err
}

func (s *Store) CreateCustomer(ctx context.Context, executor repositories.SQLExecutor, customer *models.Customer) (int64, error) {
	err := s.exec(executor, "CreateCustomer", func(st *memoryState) error {
		now := time.Now()
		customer.ID = st.newID()
		customer.CreatedAt = now
		customer.UpdatedAt = now
		st.customers[customer.ID] = *customer
		return nil
	})
	if err != nil {
		return 0, err
	}
	return customer.ID, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, executor repositories.SQLExecutor, customerID int64) (*models.Customer, error) {
	var out *models.Customer
	err := s.exec(executor, "GetCustomerByID", func(st *memoryState) error {
		c, ok := st.customers[customerID]
		if !ok {
			return repositories.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	customers := []models.Customer{}
	err := s.read("ListCustomers", func(st *memoryState) error {
		for _, c := range st.customers {
			customers = append(customers, c)
		}
		return nil
	})
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, err
}

func (s *Store) CreateWorker(ctx context.Context, executor repositories.SQLExecutor, worker *models.Worker) (int64, error) {
	err := s.exec(executor, "CreateWorker", func(st *memoryState) error {
		now := time.Now()
		worker.ID = st.newID()
		worker.CreatedAt = now
		worker.UpdatedAt = now
		st.workers[worker.ID] = *worker
		return nil
	})
	if err != nil {
		return 0, err
	}
	return worker.ID, nil
}

func (s *Store) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	workers := []models.Worker{}
	err := s.read("ListWorkers", func(st *memoryState) error {
		for _, w := range st.workers {
			workers = append(workers, w)
		}
		return nil
	})
	sort.Slice(workers, func(i, j int) bool { return workers[i].FullName < workers[j].FullName })
	return workers, err
}

func (s *Store) UpdateWorkerStatus(ctx context.Context, executor repositories.SQLExecutor, workerID int64, status string) error {
	return s.exec(executor, "UpdateWorkerStatus", func(st *memoryState) error {
		w, ok := st.workers[workerID]
		if !ok {
			return repositories.ErrNotFound
		}
		w.Status = status
		w.UpdatedAt = time.Now()
		st.workers[workerID] = w
		return nil
	})
}

func (s *Store) SumActiveSalaries(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.read("SumActiveSalaries", func(st *memoryState) error {
		for _, w := range st.workers {
			if w.Status == models.WorkerStatusActive {
				total = total.Add(w.SalaryNGN)
			}
		}
		return nil
	})
	return total, err
}

func (s *Store) CreateUser(ctx context.Context, executor repositories.SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	err := s.exec(executor, "CreateUser", func(st *memoryState) error {
		for _, rec := range st.users {
			if rec.user.Username == user.Username {
				return fmt.Errorf("%w: username '%s'", repositories.ErrDuplicateKey, user.Username)
			}
		}
		now := time.Now()
		user.ID = st.newID()
		user.IsActive = true
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = userRecord{user: *user, passwordHash: hashedPassword}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, string, error) {
	var out *models.User
	var hash string
	err := s.read("FindUserByUsername", func(st *memoryState) error {
		for _, rec := range st.users {
			if rec.user.Username == username {
				u := rec.user
				out = &u
				hash = rec.passwordHash
				return nil
			}
		}
		return repositories.ErrNotFound
	})
	return out, hash, err
}

func (s *Store) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	var out *models.User
	err := s.read("FindUserByID", func(st *memoryState) error {
		rec, ok := st.users[userID]
		if !ok {
			return repositories.ErrNotFound
		}
		u := rec.user
		out = &u
		return nil
	})
	return out, err
}

func (s *Store) CountUsers(ctx context.Context, executor repositories.SQLExecutor) (int, error) {
	var count int
	err := s.exec(executor, "CountUsers", func(st *memoryState) error {
		count = len(st.users)
		return nil
	})
	return count, err
}
