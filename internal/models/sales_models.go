package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses for a sale.
const (
	PaymentStatusPaid    = "Paid"
	PaymentStatusPending = "Pending"
	PaymentStatusPartial = "Partial"
)

// Sale is the immutable record of fish sold out of a batch.
type Sale struct {
	ID               int64            `json:"id" db:"id"`
	CustomerID       int64            `json:"customer_id" db:"customer_id"`
	BatchID          int64            `json:"batch_id" db:"batch_id"`
	SaleDate         time.Time        `json:"sale_date" db:"sale_date"`
	QuantitySold     int              `json:"quantity_sold" db:"quantity_sold"`
	TotalWeightKg    *decimal.Decimal `json:"total_weight_kg,omitempty" db:"total_weight_kg"`
	AvgSizeG         *decimal.Decimal `json:"avg_size_g,omitempty" db:"avg_size_g"`
	PricePerPieceNGN decimal.Decimal  `json:"price_per_piece_ngn" db:"price_per_piece_ngn"`
	TotalAmountNGN   decimal.Decimal  `json:"total_amount_ngn" db:"total_amount_ngn"`
	PaymentStatus    string           `json:"payment_status" db:"payment_status"`
	Notes            *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	CustomerName     string           `json:"customer_name,omitempty"`
	BatchCode        string           `json:"batch_code,omitempty"`
}

// SaleFilters narrows ListSales. Dates are inclusive.
type SaleFilters struct {
	StartDate  *time.Time
	EndDate    *time.Time
	BatchID    *int64
	CustomerID *int64
}

// Customer buys fish.
type Customer struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Location  *string   `json:"location,omitempty" db:"location"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
