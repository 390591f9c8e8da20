package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense category names booked automatically by the bookkeeping services.
const (
	ExpenseCategoryFeed      = "Feed"
	ExpenseCategoryTreatment = "Treatment"
)

// Worker statuses.
const (
	WorkerStatusActive   = "Active"
	WorkerStatusInactive = "Inactive"
)

// ExpenseCategory groups expenses.
type ExpenseCategory struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Expense is an immutable ledger entry for money spent.
type Expense struct {
	ID           int64           `json:"id" db:"id"`
	AmountNGN    decimal.Decimal `json:"amount_ngn" db:"amount_ngn"`
	CategoryID   int64           `json:"category_id" db:"category_id"`
	ExpenseDate  time.Time       `json:"expense_date" db:"expense_date"`
	Description  string          `json:"description" db:"description"`
	BatchID      *int64          `json:"batch_id,omitempty" db:"batch_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	CategoryName string          `json:"category_name,omitempty"`
}

// ExpenseFilters narrows ListExpenses. Dates are inclusive.
type ExpenseFilters struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CategoryID *int64
	BatchID    *int64
}

// Worker is a farm employee. Active workers' salaries count as expenses.
type Worker struct {
	ID        int64           `json:"id" db:"id"`
	FullName  string          `json:"full_name" db:"full_name"`
	Role      *string         `json:"role,omitempty" db:"role"`
	Phone     *string         `json:"phone,omitempty" db:"phone"`
	SalaryNGN decimal.Decimal `json:"salary_ngn" db:"salary_ngn"`
	Status    string          `json:"status" db:"status"`
	HireDate  *time.Time      `json:"hire_date,omitempty" db:"hire_date"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// FinancialSummary is the revenue/expense rollup over the whole ledger.
type FinancialSummary struct {
	TotalRevenueNGN        decimal.Decimal `json:"total_revenue_ngn"`
	LedgerExpensesNGN      decimal.Decimal `json:"ledger_expenses_ngn"`
	SalariesNGN            decimal.Decimal `json:"salaries_ngn"`
	TotalExpensesNGN       decimal.Decimal `json:"total_expenses_ngn"`
	NetProfitNGN           decimal.Decimal `json:"net_profit_ngn"`
	OutstandingReceivables decimal.Decimal `json:"outstanding_receivables_ngn"`
	GeneratedAt            time.Time       `json:"generated_at"`
}

// SalesReportSummary aggregates the filtered sales.
type SalesReportSummary struct {
	TransactionCount    int             `json:"transaction_count"`
	TotalFishSold       int             `json:"total_fish_sold"`
	TotalRevenueNGN     decimal.Decimal `json:"total_revenue_ngn"`
	AvgPricePerPieceNGN decimal.Decimal `json:"avg_price_per_piece_ngn"`
}

// CustomerSpend is one row of the top-customers table.
type CustomerSpend struct {
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	PurchaseCount int             `json:"purchase_count"`
	FishBought    int             `json:"fish_bought"`
	TotalSpentNGN decimal.Decimal `json:"total_spent_ngn"`
}

// BatchRevenue is revenue rolled up per batch.
type BatchRevenue struct {
	BatchID    int64           `json:"batch_id"`
	BatchCode  string          `json:"batch_code"`
	SalesCount int             `json:"sales_count"`
	FishSold   int             `json:"fish_sold"`
	RevenueNGN decimal.Decimal `json:"revenue_ngn"`
}

// SalesReport is the date-filtered sales report.
type SalesReport struct {
	StartDate    *time.Time         `json:"start_date,omitempty"`
	EndDate      *time.Time         `json:"end_date,omitempty"`
	Summary      SalesReportSummary `json:"summary"`
	TopCustomers []CustomerSpend    `json:"top_customers"`
	BatchRevenue []BatchRevenue     `json:"batch_revenue"`
	Transactions []Sale             `json:"transactions"`
}

// BatchSurvival is one row of the production report.
type BatchSurvival struct {
	BatchID      int64   `json:"batch_id"`
	BatchCode    string  `json:"batch_code"`
	Stage        string  `json:"stage"`
	Status       string  `json:"status"`
	InitialCount int     `json:"initial_count"`
	CurrentCount int     `json:"current_count"`
	SurvivalRate float64 `json:"survival_rate"`
}

// StageCount is one row of the stage distribution.
type StageCount struct {
	Stage      string `json:"stage"`
	BatchCount int    `json:"batch_count"`
	FishCount  int    `json:"fish_count"`
}

// ProductionReport shows survival per batch and how fish are spread across stages.
type ProductionReport struct {
	Batches           []BatchSurvival `json:"batches"`
	StageDistribution []StageCount    `json:"stage_distribution"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
