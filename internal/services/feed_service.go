package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
	"hatchery_backend/pkg/utils"
)

// unitCostPlaces is the precision kept for the weighted-average unit cost.
const unitCostPlaces = 4

// --- DTOs ---

// RecordFeedPurchaseRequest buys feed in bags. Every number may be sent as a
// JSON number or a numeric string.
type RecordFeedPurchaseRequest struct {
	FeedName     string           `json:"feed_name"`
	Category     *string          `json:"category"`
	BagSizeKg    *decimal.Decimal `json:"bag_size_kg"`
	NumBags      models.Count     `json:"num_bags"`
	CostPerBag   *decimal.Decimal `json:"cost_per_bag"`
	PurchaseDate *string          `json:"purchase_date"`
	Supplier     *string          `json:"supplier"`
	Notes        *string          `json:"notes"`
}

// FeedPurchaseResult is the purchase confirmation plus the resulting inventory.
type FeedPurchaseResult struct {
	Purchase  models.FeedPurchase  `json:"purchase"`
	Inventory models.FeedInventory `json:"inventory"`
	Expense   models.Expense       `json:"expense"`
}

// LogFeedUsageRequest takes feed out of stock.
type LogFeedUsageRequest struct {
	InventoryID int64            `json:"inventory_id"`
	QuantityKg  *decimal.Decimal `json:"quantity_kg"`
	BatchID     *int64           `json:"batch_id"`
	LogDate     *string          `json:"log_date"`
	Notes       *string          `json:"notes"`
}

// FeedUsageResult is the usage log plus the resulting inventory.
type FeedUsageResult struct {
	FeedingLog models.FeedingLog    `json:"feeding_log"`
	Inventory  models.FeedInventory `json:"inventory"`
}

// UpdateFeedItemRequest is a manual correction of a feed item. A nil cost leaves the unit cost alone.
type UpdateFeedItemRequest struct {
	Name      string           `json:"name"`
	Category  *string          `json:"category"`
	CostPerKg *decimal.Decimal `json:"cost_per_kg"`
	Supplier  *string          `json:"supplier"`
	Notes     *string          `json:"notes"`
}

// --- FeedService Interface ---
type FeedService interface {
	RecordPurchase(ctx context.Context, req RecordFeedPurchaseRequest) (*FeedPurchaseResult, error)
	LogUsage(ctx context.Context, req LogFeedUsageRequest) (*FeedUsageResult, error)
	UpdateFeedItem(ctx context.Context, inventoryID int64, req UpdateFeedItemRequest) (*models.FeedInventory, error)
	GetInventory(ctx context.Context, inventoryID int64) (*models.FeedInventory, error)
	ListInventory(ctx context.Context) ([]models.FeedInventory, error)
	ListPurchases(ctx context.Context, inventoryID *int64) ([]models.FeedPurchase, error)
	ListFeedingLogs(ctx context.Context, batchID, inventoryID *int64) ([]models.FeedingLog, error)
}

type feedService struct {
	feedRepo          repositories.FeedRepository
	expenseRepo       repositories.ExpenseRepository
	batchRepo         repositories.BatchRepository
	tx                repositories.Transactor
	lowStockThreshold decimal.Decimal
	metrics           *metrics.Metrics
}

// NewFeedService creates a new instance of FeedService.
func NewFeedService(
	fr repositories.FeedRepository,
	er repositories.ExpenseRepository,
	br repositories.BatchRepository,
	tx repositories.Transactor,
	lowStockThreshold decimal.Decimal,
	m *metrics.Metrics,
) FeedService {
	return &feedService{
		feedRepo:          fr,
		expenseRepo:       er,
		batchRepo:         br,
		tx:                tx,
		lowStockThreshold: lowStockThreshold,
		metrics:           m,
	}
}

// WeightedAverageCost blends the existing stock value with a purchase:
// (stock*unitCost + purchaseCost) / (stock + purchaseQty). With no prior stock
// the purchase's own per-kg cost is used.
//
// The result is rounded to 4 places and stored, so each purchase blends an
// already rounded cost. Over many purchases the stored cost can drift from
// total spend / total kg by up to 0.00005 per step (10 purchases averaging to
// 700 can land on 699.9999).
func WeightedAverageCost(stockKg, unitCost, purchaseQtyKg, purchaseCost decimal.Decimal) decimal.Decimal {
	if stockKg.IsPositive() {
		total := stockKg.Add(purchaseQtyKg)
		return stockKg.Mul(unitCost).Add(purchaseCost).Div(total).Round(unitCostPlaces)
	}
	if !purchaseQtyKg.IsPositive() {
		return unitCost
	}
	return purchaseCost.Div(purchaseQtyKg).Round(unitCostPlaces)
}

func (s *feedService) withLowStock(inv *models.FeedInventory) *models.FeedInventory {
	inv.LowStock = inv.CurrentStockKg.LessThan(s.lowStockThreshold)
	return inv
}

func (s *feedService) RecordPurchase(ctx context.Context, req RecordFeedPurchaseRequest) (result *FeedPurchaseResult, err error) {
	defer func() { s.metrics.ObserveOperation("record_feed_purchase", outcomeOf(err)) }()

	name := strings.TrimSpace(req.FeedName)
	if name == "" {
		return nil, validationErrorf("feed_name is required")
	}
	if req.BagSizeKg == nil || !req.BagSizeKg.IsPositive() {
		return nil, validationErrorf("bag_size_kg must be greater than 0")
	}
	if req.NumBags <= 0 {
		return nil, validationErrorf("num_bags must be a positive integer")
	}
	if req.CostPerBag == nil || req.CostPerBag.IsNegative() {
		return nil, validationErrorf("cost_per_bag must be 0 or more")
	}
	purchaseDate := utils.Today()
	if req.PurchaseDate != nil && !utils.IsEmpty(*req.PurchaseDate) {
		if purchaseDate, err = utils.ParseDate(*req.PurchaseDate); err != nil {
			return nil, ErrDateFormat
		}
	}

	bags := decimal.NewFromInt(int64(req.NumBags))
	quantity := req.BagSizeKg.Mul(bags)
	totalCost := req.CostPerBag.Mul(bags)
	supplier := utils.TrimmedOrNil(req.Supplier)

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		feedTypeID, err := s.feedRepo.UpsertFeedType(ctx, tx, name, utils.TrimmedOrNil(req.Category))
		if err != nil {
			return err
		}
		inv, err := s.feedRepo.LockInventoryForFeedType(ctx, tx, feedTypeID)
		if err != nil {
			return err
		}

		inv.UnitCostNGN = WeightedAverageCost(inv.CurrentStockKg, inv.UnitCostNGN, quantity, totalCost)
		inv.CurrentStockKg = inv.CurrentStockKg.Add(quantity)
		if supplier != nil {
			inv.Supplier = supplier
		}
		if err := s.feedRepo.UpdateInventory(ctx, tx, inv); err != nil {
			return err
		}

		purchase := models.FeedPurchase{
			InventoryID:     inv.ID,
			PurchaseDate:    purchaseDate,
			BagSizeKg:       *req.BagSizeKg,
			NumBags:         req.NumBags.Int(),
			TotalQuantityKg: quantity,
			CostPerBag:      *req.CostPerBag,
			TotalCostNGN:    totalCost,
			Supplier:        supplier,
			Notes:           utils.TrimmedOrNil(req.Notes),
			FeedName:        name,
		}
		if _, err := s.feedRepo.CreatePurchase(ctx, tx, &purchase); err != nil {
			return err
		}

		categoryID, err := s.expenseRepo.EnsureCategory(ctx, tx, models.ExpenseCategoryFeed)
		if err != nil {
			return err
		}
		expense := models.Expense{
			AmountNGN:    totalCost,
			CategoryID:   categoryID,
			ExpenseDate:  purchaseDate,
			Description:  fmt.Sprintf("Feed purchase: %d x %skg %s", req.NumBags, req.BagSizeKg.String(), name),
			CategoryName: models.ExpenseCategoryFeed,
		}
		if _, err := s.expenseRepo.CreateExpense(ctx, tx, &expense); err != nil {
			return err
		}

		result = &FeedPurchaseResult{Purchase: purchase, Inventory: *s.withLowStock(inv), Expense: expense}
		return nil
	})
	if err != nil {
		utils.LogError(err, "Failed to record feed purchase", map[string]interface{}{"feed_name": name})
		return nil, err
	}

	s.metrics.SetFeedStock(result.Inventory.FeedName, result.Inventory.CurrentStockKg.InexactFloat64())
	utils.LogInfo("Feed purchase recorded", map[string]interface{}{
		"feed_name":     name,
		"quantity_kg":   quantity.String(),
		"total_cost":    totalCost.String(),
		"unit_cost_ngn": result.Inventory.UnitCostNGN.String(),
		"stock_kg":      result.Inventory.CurrentStockKg.String(),
	})
	return result, nil
}

func (s *feedService) LogUsage(ctx context.Context, req LogFeedUsageRequest) (result *FeedUsageResult, err error) {
	defer func() { s.metrics.ObserveOperation("log_feed_usage", outcomeOf(err)) }()

	if req.QuantityKg == nil || !req.QuantityKg.IsPositive() {
		return nil, validationErrorf("quantity_kg must be greater than 0")
	}
	if req.InventoryID <= 0 {
		return nil, validationErrorf("inventory_id is required")
	}
	logDate := utils.Today()
	if req.LogDate != nil && !utils.IsEmpty(*req.LogDate) {
		if logDate, err = utils.ParseDate(*req.LogDate); err != nil {
			return nil, ErrDateFormat
		}
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		inv, err := s.feedRepo.LockInventory(ctx, tx, req.InventoryID)
		if err != nil {
			return notFoundOr(err, ErrFeedInventoryNotFound)
		}
		var batchCode *string
		if req.BatchID != nil {
			batch, err := s.batchRepo.GetBatchByID(ctx, tx, *req.BatchID)
			if err != nil {
				return notFoundOr(err, ErrBatchNotFound)
			}
			batchCode = &batch.BatchCode
		}
		if req.QuantityKg.GreaterThan(inv.CurrentStockKg) {
			return fmt.Errorf("%w: requested %s kg, available %s kg", ErrInsufficientStock,
				req.QuantityKg.String(), inv.CurrentStockKg.String())
		}

		inv.CurrentStockKg = inv.CurrentStockKg.Sub(*req.QuantityKg)
		if err := s.feedRepo.UpdateInventory(ctx, tx, inv); err != nil {
			return err
		}

		feedingLog := models.FeedingLog{
			BatchID:    req.BatchID,
			FeedTypeID: inv.FeedTypeID,
			AmountKg:   *req.QuantityKg,
			LogDate:    logDate,
			Notes:      utils.TrimmedOrNil(req.Notes),
			FeedName:   inv.FeedName,
			BatchCode:  batchCode,
		}
		if _, err := s.feedRepo.CreateFeedingLog(ctx, tx, &feedingLog); err != nil {
			return err
		}

		result = &FeedUsageResult{FeedingLog: feedingLog, Inventory: *s.withLowStock(inv)}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientStock) && !errors.Is(err, ErrNotFound) {
			utils.LogError(err, "Failed to log feed usage", map[string]interface{}{"inventory_id": req.InventoryID})
		}
		return nil, err
	}

	s.metrics.SetFeedStock(result.Inventory.FeedName, result.Inventory.CurrentStockKg.InexactFloat64())
	if result.Inventory.LowStock {
		utils.LogWarn("Feed stock below threshold", map[string]interface{}{
			"feed_name": result.Inventory.FeedName,
			"stock_kg":  result.Inventory.CurrentStockKg.String(),
		})
	}
	return result, nil
}

func (s *feedService) UpdateFeedItem(ctx context.Context, inventoryID int64, req UpdateFeedItemRequest) (result *models.FeedInventory, err error) {
	defer func() { s.metrics.ObserveOperation("update_feed_item", outcomeOf(err)) }()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErrorf("name is required")
	}
	if req.CostPerKg != nil && req.CostPerKg.IsNegative() {
		return nil, validationErrorf("cost_per_kg must be 0 or more")
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		inv, err := s.feedRepo.LockInventory(ctx, tx, inventoryID)
		if err != nil {
			return notFoundOr(err, ErrFeedInventoryNotFound)
		}
		category := utils.TrimmedOrNil(req.Category)
		if err := s.feedRepo.UpdateFeedType(ctx, tx, inv.FeedTypeID, name, category); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return ErrFeedNameExists
			}
			return err
		}
		inv.FeedName = name
		inv.Category = category
		if req.CostPerKg != nil {
			inv.UnitCostNGN = req.CostPerKg.Round(unitCostPlaces)
		}
		inv.Supplier = utils.TrimmedOrNil(req.Supplier)
		inv.Notes = utils.TrimmedOrNil(req.Notes)
		if err := s.feedRepo.UpdateInventory(ctx, tx, inv); err != nil {
			return err
		}
		result = s.withLowStock(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Feed item updated manually", map[string]interface{}{
		"inventory_id":  inventoryID,
		"unit_cost_ngn": result.UnitCostNGN.String(),
	})
	return result, nil
}

func (s *feedService) GetInventory(ctx context.Context, inventoryID int64) (*models.FeedInventory, error) {
	inv, err := s.feedRepo.GetInventoryByID(ctx, s.tx, inventoryID)
	if err != nil {
		return nil, notFoundOr(err, ErrFeedInventoryNotFound)
	}
	return s.withLowStock(inv), nil
}

func (s *feedService) ListInventory(ctx context.Context) ([]models.FeedInventory, error) {
	items, err := s.feedRepo.ListInventory(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.withLowStock(&items[i])
	}
	return items, nil
}

func (s *feedService) ListPurchases(ctx context.Context, inventoryID *int64) ([]models.FeedPurchase, error) {
	return s.feedRepo.ListPurchases(ctx, inventoryID)
}

func (s *feedService) ListFeedingLogs(ctx context.Context, batchID, inventoryID *int64) ([]models.FeedingLog, error) {
	filters := models.FeedingLogFilters{BatchID: batchID}
	if inventoryID != nil {
		inv, err := s.feedRepo.GetInventoryByID(ctx, s.tx, *inventoryID)
		if err != nil {
			return nil, notFoundOr(err, ErrFeedInventoryNotFound)
		}
		filters.FeedTypeID = &inv.FeedTypeID
	}
	return s.feedRepo.ListFeedingLogs(ctx, filters)
}
