package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hatchery_backend/internal/services"
)

// FinanceHandler serves expenses and the read-only reports.
type FinanceHandler struct {
	financeService services.FinanceService
}

// NewFinanceHandler creates a new FinanceHandler.
func NewFinanceHandler(fs services.FinanceService) *FinanceHandler {
	return &FinanceHandler{financeService: fs}
}

func (h *FinanceHandler) RecordExpense(c *gin.Context) {
	var req services.RecordExpenseRequest
	if !bindJSON(c, &req, "RecordExpense") {
		return
	}
	expense, err := h.financeService.RecordExpense(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "record expense")
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (h *FinanceHandler) ListExpenses(c *gin.Context) {
	batchID, ok := queryID(c, "batch_id")
	if !ok {
		return
	}
	expenses, err := h.financeService.ListExpenses(c.Request.Context(), queryString(c, "start_date"), queryString(c, "end_date"), batchID)
	if err != nil {
		respondServiceError(c, err, "list expenses")
		return
	}
	c.JSON(http.StatusOK, expenses)
}

func (h *FinanceHandler) ListExpenseCategories(c *gin.Context) {
	categories, err := h.financeService.ListExpenseCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list expense categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *FinanceHandler) GetFinancialSummary(c *gin.Context) {
	summary, err := h.financeService.GetFinancialSummary(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "compute financial summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetSalesReport supports ?start_date= and ?end_date= (inclusive, YYYY-MM-DD).
func (h *FinanceHandler) GetSalesReport(c *gin.Context) {
	report, err := h.financeService.GetSalesReport(c.Request.Context(), queryString(c, "start_date"), queryString(c, "end_date"))
	if err != nil {
		respondServiceError(c, err, "build sales report")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *FinanceHandler) GetProductionReport(c *gin.Context) {
	report, err := h.financeService.GetProductionReport(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "build production report")
		return
	}
	c.JSON(http.StatusOK, report)
}
