package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
	"hatchery_backend/pkg/utils"
)

const topCustomersLimit = 10

var hundred = decimal.NewFromInt(100)

// RecordExpenseRequest books a manual expense.
type RecordExpenseRequest struct {
	AmountNGN   *decimal.Decimal `json:"amount_ngn"`
	Category    string           `json:"category"`
	ExpenseDate *string          `json:"expense_date"`
	Description string           `json:"description"`
	BatchID     *int64           `json:"batch_id"`
}

// FinanceService computes read-only rollups over the ledger and books manual expenses.
type FinanceService interface {
	GetFinancialSummary(ctx context.Context) (*models.FinancialSummary, error)
	GetSalesReport(ctx context.Context, startDate, endDate *string) (*models.SalesReport, error)
	GetProductionReport(ctx context.Context) (*models.ProductionReport, error)
	RecordExpense(ctx context.Context, req RecordExpenseRequest) (*models.Expense, error)
	ListExpenses(ctx context.Context, startDate, endDate *string, batchID *int64) ([]models.Expense, error)
	ListExpenseCategories(ctx context.Context) ([]models.ExpenseCategory, error)
}

type financeService struct {
	salesRepo   repositories.SalesRepository
	expenseRepo repositories.ExpenseRepository
	workerRepo  repositories.WorkerRepository
	batchRepo   repositories.BatchRepository
	tx          repositories.Transactor
	metrics     *metrics.Metrics
}

// NewFinanceService creates a new instance of FinanceService.
func NewFinanceService(
	sr repositories.SalesRepository,
	er repositories.ExpenseRepository,
	wr repositories.WorkerRepository,
	br repositories.BatchRepository,
	tx repositories.Transactor,
	m *metrics.Metrics,
) FinanceService {
	return &financeService{salesRepo: sr, expenseRepo: er, workerRepo: wr, batchRepo: br, tx: tx, metrics: m}
}

func (s *financeService) GetFinancialSummary(ctx context.Context) (*models.FinancialSummary, error) {
	revenue, err := s.salesRepo.SumRevenue(ctx)
	if err != nil {
		return nil, err
	}
	ledgerExpenses, err := s.expenseRepo.SumExpenses(ctx)
	if err != nil {
		return nil, err
	}
	salaries, err := s.workerRepo.SumActiveSalaries(ctx)
	if err != nil {
		return nil, err
	}

	// Receivables are informational; a failure here must not fail the summary.
	outstanding, err := s.salesRepo.SumOutstanding(ctx)
	if err != nil {
		utils.LogError(err, "Failed to compute outstanding receivables, reporting 0")
		outstanding = decimal.Zero
	}

	totalExpenses := ledgerExpenses.Add(salaries)
	return &models.FinancialSummary{
		TotalRevenueNGN:        revenue,
		LedgerExpensesNGN:      ledgerExpenses,
		SalariesNGN:            salaries,
		TotalExpensesNGN:       totalExpenses,
		NetProfitNGN:           revenue.Sub(totalExpenses),
		OutstandingReceivables: outstanding,
		GeneratedAt:            time.Now(),
	}, nil
}

func parseRange(startDate, endDate *string) (*time.Time, *time.Time, error) {
	start, err := utils.ParseOptionalDate(startDate)
	if err != nil {
		return nil, nil, ErrDateFormat
	}
	end, err := utils.ParseOptionalDate(endDate)
	if err != nil {
		return nil, nil, ErrDateFormat
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, validationErrorf("end_date must not be before start_date")
	}
	return start, end, nil
}

func (s *financeService) GetSalesReport(ctx context.Context, startDate, endDate *string) (*models.SalesReport, error) {
	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	sales, err := s.salesRepo.ListSales(ctx, models.SaleFilters{StartDate: start, EndDate: end})
	if err != nil {
		return nil, err
	}
	return BuildSalesReport(start, end, sales), nil
}

// BuildSalesReport aggregates an already filtered list of sales.
func BuildSalesReport(start, end *time.Time, sales []models.Sale) *models.SalesReport {
	report := &models.SalesReport{
		StartDate:    start,
		EndDate:      end,
		TopCustomers: []models.CustomerSpend{},
		BatchRevenue: []models.BatchRevenue{},
		Transactions: sales,
	}
	summary := models.SalesReportSummary{TotalRevenueNGN: decimal.Zero, AvgPricePerPieceNGN: decimal.Zero}

	customers := map[int64]*models.CustomerSpend{}
	batches := map[int64]*models.BatchRevenue{}
	for _, sale := range sales {
		summary.TransactionCount++
		summary.TotalFishSold += sale.QuantitySold
		summary.TotalRevenueNGN = summary.TotalRevenueNGN.Add(sale.TotalAmountNGN)

		c, ok := customers[sale.CustomerID]
		if !ok {
			c = &models.CustomerSpend{CustomerID: sale.CustomerID, CustomerName: sale.CustomerName, TotalSpentNGN: decimal.Zero}
			customers[sale.CustomerID] = c
		}
		c.PurchaseCount++
		c.FishBought += sale.QuantitySold
		c.TotalSpentNGN = c.TotalSpentNGN.Add(sale.TotalAmountNGN)

		b, ok := batches[sale.BatchID]
		if !ok {
			b = &models.BatchRevenue{BatchID: sale.BatchID, BatchCode: sale.BatchCode, RevenueNGN: decimal.Zero}
			batches[sale.BatchID] = b
		}
		b.SalesCount++
		b.FishSold += sale.QuantitySold
		b.RevenueNGN = b.RevenueNGN.Add(sale.TotalAmountNGN)
	}
	if summary.TotalFishSold > 0 {
		summary.AvgPricePerPieceNGN = summary.TotalRevenueNGN.Div(decimal.NewFromInt(int64(summary.TotalFishSold))).Round(2)
	}
	report.Summary = summary

	for _, c := range customers {
		report.TopCustomers = append(report.TopCustomers, *c)
	}
	sort.Slice(report.TopCustomers, func(i, j int) bool {
		a, b := report.TopCustomers[i], report.TopCustomers[j]
		if !a.TotalSpentNGN.Equal(b.TotalSpentNGN) {
			return a.TotalSpentNGN.GreaterThan(b.TotalSpentNGN)
		}
		return a.CustomerName < b.CustomerName
	})
	if len(report.TopCustomers) > topCustomersLimit {
		report.TopCustomers = report.TopCustomers[:topCustomersLimit]
	}

	for _, b := range batches {
		report.BatchRevenue = append(report.BatchRevenue, *b)
	}
	sort.Slice(report.BatchRevenue, func(i, j int) bool {
		a, b := report.BatchRevenue[i], report.BatchRevenue[j]
		if !a.RevenueNGN.Equal(b.RevenueNGN) {
			return a.RevenueNGN.GreaterThan(b.RevenueNGN)
		}
		return a.BatchCode < b.BatchCode
	})
	return report
}

// SurvivalRate is current/initial as a percentage rounded to one decimal, 0 when initial is 0.
func SurvivalRate(current, initial int) float64 {
	if initial <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(current)).Mul(hundred).Div(decimal.NewFromInt(int64(initial))).Round(1).InexactFloat64()
}

func (s *financeService) GetProductionReport(ctx context.Context) (*models.ProductionReport, error) {
	batches, err := s.batchRepo.ListBatches(ctx, models.BatchFilters{})
	if err != nil {
		return nil, err
	}
	return BuildProductionReport(batches), nil
}

// BuildProductionReport computes survival for every batch and the stage spread of active batches.
func BuildProductionReport(batches []models.Batch) *models.ProductionReport {
	report := &models.ProductionReport{
		Batches:           make([]models.BatchSurvival, 0, len(batches)),
		StageDistribution: []models.StageCount{},
		GeneratedAt:       time.Now(),
	}
	stages := map[string]*models.StageCount{}
	for _, b := range batches {
		report.Batches = append(report.Batches, models.BatchSurvival{
			BatchID:      b.ID,
			BatchCode:    b.BatchCode,
			Stage:        b.CurrentStage,
			Status:       b.Status,
			InitialCount: b.InitialCount,
			CurrentCount: b.CurrentCount,
			SurvivalRate: SurvivalRate(b.CurrentCount, b.InitialCount),
		})
		if b.Status != models.BatchStatusActive {
			continue
		}
		sc, ok := stages[b.CurrentStage]
		if !ok {
			sc = &models.StageCount{Stage: b.CurrentStage}
			stages[b.CurrentStage] = sc
		}
		sc.BatchCount++
		sc.FishCount += b.CurrentCount
	}
	for _, sc := range stages {
		report.StageDistribution = append(report.StageDistribution, *sc)
	}
	sort.Slice(report.StageDistribution, func(i, j int) bool {
		a, b := report.StageDistribution[i], report.StageDistribution[j]
		if ra, rb := models.StageRank(a.Stage), models.StageRank(b.Stage); ra != rb {
			return ra < rb
		}
		return a.Stage < b.Stage
	})
	return report
}

func (s *financeService) RecordExpense(ctx context.Context, req RecordExpenseRequest) (result *models.Expense, err error) {
	defer func() { s.metrics.ObserveOperation("record_expense", outcomeOf(err)) }()

	if req.AmountNGN == nil || !req.AmountNGN.IsPositive() {
		return nil, validationErrorf("amount_ngn must be greater than 0")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, validationErrorf("category is required")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, validationErrorf("description is required")
	}
	expenseDate := utils.Today()
	if req.ExpenseDate != nil && !utils.IsEmpty(*req.ExpenseDate) {
		if expenseDate, err = utils.ParseDate(*req.ExpenseDate); err != nil {
			return nil, ErrDateFormat
		}
	}

	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if req.BatchID != nil {
			if _, err := s.batchRepo.GetBatchByID(ctx, tx, *req.BatchID); err != nil {
				return notFoundOr(err, ErrBatchNotFound)
			}
		}
		categoryID, err := s.expenseRepo.EnsureCategory(ctx, tx, category)
		if err != nil {
			return err
		}
		expense := models.Expense{
			AmountNGN:    *req.AmountNGN,
			CategoryID:   categoryID,
			ExpenseDate:  expenseDate,
			Description:  description,
			BatchID:      req.BatchID,
			CategoryName: category,
		}
		if _, err := s.expenseRepo.CreateExpense(ctx, tx, &expense); err != nil {
			return err
		}
		result = &expense
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *financeService) ListExpenses(ctx context.Context, startDate, endDate *string, batchID *int64) ([]models.Expense, error) {
	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return s.expenseRepo.ListExpenses(ctx, models.ExpenseFilters{StartDate: start, EndDate: end, BatchID: batchID})
}

func (s *financeService) ListExpenseCategories(ctx context.Context) ([]models.ExpenseCategory, error) {
	return s.expenseRepo.ListCategories(ctx)
}
