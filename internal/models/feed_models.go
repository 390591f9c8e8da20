package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeedType is a named feed product (e.g. "Coppens 2mm"). Created the first time a purchase names it.
type FeedType struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  *string   `json:"category,omitempty" db:"category"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FeedInventory holds the current stock and weighted-average unit cost for one feed type.
type FeedInventory struct {
	ID             int64           `json:"id" db:"id"`
	FeedTypeID     int64           `json:"feed_type_id" db:"feed_type_id"`
	FeedName       string          `json:"feed_name"`
	Category       *string         `json:"category,omitempty"`
	CurrentStockKg decimal.Decimal `json:"current_stock_kg" db:"current_stock_kg"`
	UnitCostNGN    decimal.Decimal `json:"unit_cost_ngn" db:"unit_cost_ngn"`
	Supplier       *string         `json:"supplier,omitempty" db:"supplier"`
	Notes          *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	LowStock       bool            `json:"low_stock"` // Computed against the configured threshold, not stored
}

// StockValueNGN is the book value of the stock at the current unit cost.
func (i FeedInventory) StockValueNGN() decimal.Decimal {
	return i.CurrentStockKg.Mul(i.UnitCostNGN)
}

// FeedPurchase is the immutable audit record of a feed purchase.
type FeedPurchase struct {
	ID              int64           `json:"id" db:"id"`
	InventoryID     int64           `json:"inventory_id" db:"inventory_id"`
	PurchaseDate    time.Time       `json:"purchase_date" db:"purchase_date"`
	BagSizeKg       decimal.Decimal `json:"bag_size_kg" db:"bag_size_kg"`
	NumBags         int             `json:"num_bags" db:"num_bags"`
	TotalQuantityKg decimal.Decimal `json:"total_quantity_kg" db:"total_quantity_kg"`
	CostPerBag      decimal.Decimal `json:"cost_per_bag" db:"cost_per_bag"`
	TotalCostNGN    decimal.Decimal `json:"total_cost_ngn" db:"total_cost_ngn"`
	Supplier        *string         `json:"supplier,omitempty" db:"supplier"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	FeedName        string          `json:"feed_name,omitempty"` // Joined from feed_types
}

// FeedingLog is the immutable record of feed taken out of stock.
type FeedingLog struct {
	ID         int64           `json:"id" db:"id"`
	BatchID    *int64          `json:"batch_id,omitempty" db:"batch_id"`
	FeedTypeID int64           `json:"feed_type_id" db:"feed_type_id"`
	AmountKg   decimal.Decimal `json:"amount_kg" db:"amount_kg"`
	LogDate    time.Time       `json:"log_date" db:"log_date"`
	Notes      *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	FeedName   string          `json:"feed_name,omitempty"`
	BatchCode  *string         `json:"batch_code,omitempty"`
}

// FeedingLogFilters narrows ListFeedingLogs.
type FeedingLogFilters struct {
	BatchID    *int64
	FeedTypeID *int64
}
