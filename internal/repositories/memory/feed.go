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

func (st *memoryState) joinInventory(inv models.FeedInventory) *models.FeedInventory {
	if ft, ok := st.feedTypes[inv.FeedTypeID]; ok {
		inv.FeedName = ft.Name
		inv.Category = ft.Category
	}
	return &inv
}

func (s *Store) UpsertFeedType(ctx context.Context, executor repositories.SQLExecutor, name string, category *string) (int64, error) {
	var id int64
	err := s.exec(executor, "UpsertFeedType", func(st *memoryState) error {
		for _, ft := range st.feedTypes {
			if ft.Name == name {
				id = ft.ID
				return nil
			}
		}
		id = st.newID()
		st.feedTypes[id] = models.FeedType{ID: id, Name: name, Category: category, CreatedAt: time.Now()}
		return nil
	})
	return id, err
}

func (s *Store) UpdateFeedType(ctx context.Context, executor repositories.SQLExecutor, feedTypeID int64, name string, category *string) error {
	return s.exec(executor, "UpdateFeedType", func(st *memoryState) error {
		ft, ok := st.feedTypes[feedTypeID]
		if !ok {
			return repositories.ErrNotFound
		}
		for _, other := range st.feedTypes {
			if other.ID != feedTypeID && other.Name == name {
				return fmt.Errorf("%w: feed name '%s' already exists", repositories.ErrDuplicateKey, name)
			}
		}
		ft.Name = name
		ft.Category = category
		st.feedTypes[feedTypeID] = ft
		return nil
	})
}

func (s *Store) LockInventoryForFeedType(ctx context.Context, executor repositories.SQLExecutor, feedTypeID int64) (*models.FeedInventory, error) {
	var out *models.FeedInventory
	err := s.exec(executor, "LockInventoryForFeedType", func(st *memoryState) error {
		if _, ok := st.feedTypes[feedTypeID]; !ok {
			return repositories.ErrNotFound
		}
		for _, inv := range st.inventory {
			if inv.FeedTypeID == feedTypeID {
				out = st.joinInventory(inv)
				return nil
			}
		}
		now := time.Now()
		inv := models.FeedInventory{
			ID:             st.newID(),
			FeedTypeID:     feedTypeID,
			CurrentStockKg: decimal.Zero,
			UnitCostNGN:    decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		st.inventory[inv.ID] = inv
		out = st.joinInventory(inv)
		return nil
	})
	return out, err
}

func (s *Store) LockInventory(ctx context.Context, executor repositories.SQLExecutor, inventoryID int64) (*models.FeedInventory, error) {
	return s.getInventory(executor, "LockInventory", inventoryID)
}

func (s *Store) GetInventoryByID(ctx context.Context, executor repositories.SQLExecutor, inventoryID int64) (*models.FeedInventory, error) {
	return s.getInventory(executor, "GetInventoryByID", inventoryID)
}

func (s *Store) getInventory(executor repositories.SQLExecutor, method string, inventoryID int64) (*models.FeedInventory, error) {
	var out *models.FeedInventory
	err := s.exec(executor, method, func(st *memoryState) error {
		inv, ok := st.inventory[inventoryID]
		if !ok {
			return repositories.ErrNotFound
		}
		out = st.joinInventory(inv)
		return nil
	})
	return out, err
}

func (s *Store) ListInventory(ctx context.Context) ([]models.FeedInventory, error) {
	items := []models.FeedInventory{}
	err := s.read("ListInventory", func(st *memoryState) error {
		for _, inv := range st.inventory {
			items = append(items, *st.joinInventory(inv))
		}
		return nil
	})
	sort.Slice(items, func(i, j int) bool { return items[i].FeedName < items[j].FeedName })
	return items, err
}

func (s *Store) UpdateInventory(ctx context.Context, executor repositories.SQLExecutor, inventory *models.FeedInventory) error {
	return s.exec(executor, "UpdateInventory", func(st *memoryState) error {
		current, ok := st.inventory[inventory.ID]
		if !ok {
			return repositories.ErrNotFound
		}
		if inventory.CurrentStockKg.IsNegative() {
			return fmt.Errorf("%w: current_stock_kg check violated", repositories.ErrDatabaseError)
		}
		current.CurrentStockKg = inventory.CurrentStockKg
		current.UnitCostNGN = inventory.UnitCostNGN
		current.Supplier = inventory.Supplier
		current.Notes = inventory.Notes
		current.UpdatedAt = time.Now()
		st.inventory[inventory.ID] = current
		inventory.UpdatedAt = current.UpdatedAt
		return nil
	})
}

func (s *Store) CreatePurchase(ctx context.Context, executor repositories.SQLExecutor, purchase *models.FeedPurchase) (int64, error) {
	err := s.exec(executor, "CreatePurchase", func(st *memoryState) error {
		if _, ok := st.inventory[purchase.InventoryID]; !ok {
			return repositories.ErrNotFound
		}
		purchase.ID = st.newID()
		purchase.CreatedAt = time.Now()
		st.purchases = append(st.purchases, *purchase)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purchase.ID, nil
}

func (s *Store) ListPurchases(ctx context.Context, inventoryID *int64) ([]models.FeedPurchase, error) {
	purchases := []models.FeedPurchase{}
	err := s.read("ListPurchases", func(st *memoryState) error {
		for _, p := range st.purchases {
			if inventoryID != nil && p.InventoryID != *inventoryID {
				continue
			}
			if inv, ok := st.inventory[p.InventoryID]; ok {
				p.FeedName = st.feedTypes[inv.FeedTypeID].Name
			}
			purchases = append(purchases, p)
		}
		return nil
	})
	sort.SliceStable(purchases, func(i, j int) bool {
		if !purchases[i].PurchaseDate.Equal(purchases[j].PurchaseDate) {
			return purchases[i].PurchaseDate.After(purchases[j].PurchaseDate)
		}
		return purchases[i].ID > purchases[j].ID
	})
	return purchases, err
}

func (s *Store) CreateFeedingLog(ctx context.Context, executor repositories.SQLExecutor, log *models.FeedingLog) (int64, error) {
	err := s.exec(executor, "CreateFeedingLog", func(st *memoryState) error {
		if _, ok := st.feedTypes[log.FeedTypeID]; !ok {
			return fmt.Errorf("%w: feeding log references a missing feed type", repositories.ErrNotFound)
		}
		if log.BatchID != nil {
			if _, ok := st.batches[*log.BatchID]; !ok {
				return fmt.Errorf("%w: feeding log references a missing batch", repositories.ErrNotFound)
			}
		}
		log.ID = st.newID()
		log.CreatedAt = time.Now()
		st.feedingLogs = append(st.feedingLogs, *log)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return log.ID, nil
}

func (s *Store) ListFeedingLogs(ctx context.Context, filters models.FeedingLogFilters) ([]models.FeedingLog, error) {
	logs := []models.FeedingLog{}
	err := s.read("ListFeedingLogs", func(st *memoryState) error {
		for _, l := range st.feedingLogs {
			if filters.BatchID != nil && (l.BatchID == nil || *l.BatchID != *filters.BatchID) {
				continue
			}
			if filters.FeedTypeID != nil && l.FeedTypeID != *filters.FeedTypeID {
				continue
			}
			l.FeedName = st.feedTypes[l.FeedTypeID].Name
			if l.BatchID != nil {
				if b, ok := st.batches[*l.BatchID]; ok {
					code := b.BatchCode
					l.BatchCode = &code
				}
			}
			logs = append(logs, l)
		}
		return nil
	})
	sort.SliceStable(logs, func(i, j int) bool {
		if !logs[i].LogDate.Equal(logs[j].LogDate) {
			return logs[i].LogDate.After(logs[j].LogDate)
		}
		return logs[i].ID > logs[j].ID
	})
	return logs, err
}
