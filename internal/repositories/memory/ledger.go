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

func (s *Store) CreateSale(ctx context.Context, executor repositories.SQLExecutor, sale *models.Sale) (int64, error) {
	err := s.exec(executor, "CreateSale", func(st *memoryState) error {
		if _, ok := st.customers[sale.CustomerID]; !ok {
			return fmt.Errorf("%w: sale references a missing customer", repositories.ErrNotFound)
		}
		if _, ok := st.batches[sale.BatchID]; !ok {
			return fmt.Errorf("%w: sale references a missing batch", repositories.ErrNotFound)
		}
		sale.ID = st.newID()
		sale.CreatedAt = time.Now()
		st.sales = append(st.sales, *sale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sale.ID, nil
}

func inRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

func (s *Store) ListSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, error) {
	sales := []models.Sale{}
	err := s.read("ListSales", func(st *memoryState) error {
		for _, sale := range st.sales {
			if !inRange(sale.SaleDate, filters.StartDate, filters.EndDate) {
				continue
			}
			if filters.BatchID != nil && sale.BatchID != *filters.BatchID {
				continue
			}
			if filters.CustomerID != nil && sale.CustomerID != *filters.CustomerID {
				continue
			}
			sale.CustomerName = st.customers[sale.CustomerID].Name
			sale.BatchCode = st.batches[sale.BatchID].BatchCode
			sales = append(sales, sale)
		}
		return nil
	})
	sort.SliceStable(sales, func(i, j int) bool {
		if !sales[i].SaleDate.Equal(sales[j].SaleDate) {
			return sales[i].SaleDate.After(sales[j].SaleDate)
		}
		return sales[i].ID > sales[j].ID
	})
	return sales, err
}

func (s *Store) SumRevenue(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.read("SumRevenue", func(st *memoryState) error {
		for _, sale := range st.sales {
			total = total.Add(sale.TotalAmountNGN)
		}
		return nil
	})
	return total, err
}

func (s *Store) SumOutstanding(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.read("SumOutstanding", func(st *memoryState) error {
		for _, sale := range st.sales {
			if sale.PaymentStatus != models.PaymentStatusPaid {
				total = total.Add(sale.TotalAmountNGN)
			}
		}
		return nil
	})
	return total, err
}

func (st *memoryState) joinHealthLog(h models.HealthLog) *models.HealthLog {
	h.BatchCode = nil
	h.TankName = nil
	if h.BatchID != nil {
		if b, ok := st.batches[*h.BatchID]; ok {
			code := b.BatchCode
			h.BatchCode = &code
		}
	}
	if h.TankID != nil {
		if t, ok := st.tanks[*h.TankID]; ok {
			name := t.Name
			h.TankName = &name
		}
	}
	h.Treatments = nil
	return &h
}

func (s *Store) CreateHealthLog(ctx context.Context, executor repositories.SQLExecutor, log *models.HealthLog) (int64, error) {
	err := s.exec(executor, "CreateHealthLog", func(st *memoryState) error {
		if log.BatchID != nil {
			if _, ok := st.batches[*log.BatchID]; !ok {
				return fmt.Errorf("%w: health log references a missing batch", repositories.ErrNotFound)
			}
		}
		if log.TankID != nil {
			if _, ok := st.tanks[*log.TankID]; !ok {
				return fmt.Errorf("%w: health log references a missing tank", repositories.ErrNotFound)
			}
		}
		log.ID = st.newID()
		log.CreatedAt = time.Now()
		stored := *log
		stored.Treatments = nil
		st.healthLogs[log.ID] = stored
		return nil
	})
	if err != nil {
		return 0, err
	}
	return log.ID, nil
}

func (s *Store) GetHealthLogByID(ctx context.Context, executor repositories.SQLExecutor, healthLogID int64) (*models.HealthLog, error) {
	return s.getHealthLog(executor, "GetHealthLogByID", healthLogID)
}

func (s *Store) LockHealthLog(ctx context.Context, executor repositories.SQLExecutor, healthLogID int64) (*models.HealthLog, error) {
	return s.getHealthLog(executor, "LockHealthLog", healthLogID)
}

func (s *Store) getHealthLog(executor repositories.SQLExecutor, method string, healthLogID int64) (*models.HealthLog, error) {
	var out *models.HealthLog
	err := s.exec(executor, method, func(st *memoryState) error {
		h, ok := st.healthLogs[healthLogID]
		if !ok {
			return repositories.ErrNotFound
		}
		out = st.joinHealthLog(h)
		return nil
	})
	return out, err
}

func (s *Store) UpdateActionTaken(ctx context.Context, executor repositories.SQLExecutor, healthLogID int64, actionTaken string) error {
	return s.exec(executor, "UpdateActionTaken", func(st *memoryState) error {
		h, ok := st.healthLogs[healthLogID]
		if !ok {
			return repositories.ErrNotFound
		}
		h.ActionTaken = &actionTaken
		st.healthLogs[healthLogID] = h
		return nil
	})
}

func (s *Store) ListHealthLogs(ctx context.Context, filters models.HealthLogFilters) ([]models.HealthLog, error) {
	logs := []models.HealthLog{}
	err := s.read("ListHealthLogs", func(st *memoryState) error {
		for _, h := range st.healthLogs {
			if filters.BatchID != nil && (h.BatchID == nil || *h.BatchID != *filters.BatchID) {
				continue
			}
			if filters.TankID != nil && (h.TankID == nil || *h.TankID != *filters.TankID) {
				continue
			}
			if filters.Severity != nil && *filters.Severity != "" && h.Severity != *filters.Severity {
				continue
			}
			logs = append(logs, *st.joinHealthLog(h))
		}
		return nil
	})
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].LogDate.Equal(logs[j].LogDate) {
			return logs[i].LogDate.After(logs[j].LogDate)
		}
		return logs[i].ID > logs[j].ID
	})
	return logs, err
}

func (s *Store) CreateTreatment(ctx context.Context, executor repositories.SQLExecutor, treatment *models.Treatment) (int64, error) {
	err := s.exec(executor, "CreateTreatment", func(st *memoryState) error {
		if _, ok := st.healthLogs[treatment.HealthLogID]; !ok {
			return repositories.ErrNotFound
		}
		treatment.ID = st.newID()
		treatment.CreatedAt = time.Now()
		st.treatments = append(st.treatments, *treatment)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return treatment.ID, nil
}

func (s *Store) ListTreatments(ctx context.Context, healthLogID int64) ([]models.Treatment, error) {
	treatments := []models.Treatment{}
	err := s.read("ListTreatments", func(st *memoryState) error {
		for _, t := range st.treatments {
			if t.HealthLogID == healthLogID {
				treatments = append(treatments, t)
			}
		}
		return nil
	})
	return treatments, err
}

func (s *Store) EnsureCategory(ctx context.Context, executor repositories.SQLExecutor, name string) (int64, error) {
	var id int64
	err := s.exec(executor, "EnsureCategory", func(st *memoryState) error {
		for _, c := range st.categories {
			if c.Name == name {
				id = c.ID
				return nil
			}
		}
		id = st.newID()
		st.categories[id] = models.ExpenseCategory{ID: id, Name: name}
		return nil
	})
	return id, err
}

func (s *Store) ListCategories(ctx context.Context) ([]models.ExpenseCategory, error) {
	categories := []models.ExpenseCategory{}
	err := s.read("ListCategories", func(st *memoryState) error {
		for _, c := range st.categories {
			categories = append(categories, c)
		}
		return nil
	})
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, err
}

func (s *Store) CreateExpense(ctx context.Context, executor repositories.SQLExecutor, expense *models.Expense) (int64, error) {
	err := s.exec(executor, "CreateExpense", func(st *memoryState) error {
		if _, ok := st.categories[expense.CategoryID]; !ok {
			return fmt.Errorf("%w: expense references a missing category", repositories.ErrNotFound)
		}
		if expense.BatchID != nil {
			if _, ok := st.batches[*expense.BatchID]; !ok {
				return fmt.Errorf("%w: expense references a missing batch", repositories.ErrNotFound)
			}
		}
		expense.ID = st.newID()
		expense.CreatedAt = time.Now()
		st.expenses = append(st.expenses, *expense)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expense.ID, nil
}

func (s *Store) ListExpenses(ctx context.Context, filters models.ExpenseFilters) ([]models.Expense, error) {
	expenses := []models.Expense{}
	err := s.read("ListExpenses", func(st *memoryState) error {
		for _, e := range st.expenses {
			if !inRange(e.ExpenseDate, filters.StartDate, filters.EndDate) {
				continue
			}
			if filters.CategoryID != nil && e.CategoryID != *filters.CategoryID {
				continue
			}
			if filters.BatchID != nil && (e.BatchID == nil || *e.BatchID != *filters.BatchID) {
				continue
			}
			e.CategoryName = st.categories[e.CategoryID].Name
			expenses = append(expenses, e)
		}
		return nil
	})
	sort.SliceStable(expenses, func(i, j int) bool {
		if !expenses[i].ExpenseDate.Equal(expenses[j].ExpenseDate) {
			return expenses[i].ExpenseDate.After(expenses[j].ExpenseDate)
		}
		return expenses[i].ID > expenses[j].ID
	})
	return expenses, err
}

func (s *Store) SumExpenses(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.read("SumExpenses", func(st *memoryState) error {
		for _, e := range st.expenses {
			total = total.Add(e.AmountNGN)
		}
		return nil
	})
	return total, err
}
