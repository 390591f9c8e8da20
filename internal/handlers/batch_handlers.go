package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hatchery_backend/internal/models"
	"hatchery_backend/internal/services"
	"hatchery_backend/pkg/utils"
)

// BatchHandler holds the batch service, which also owns sales.
type BatchHandler struct {
	batchService services.BatchService
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(bs services.BatchService) *BatchHandler {
	return &BatchHandler{batchService: bs}
}

func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req services.CreateBatchRequest
	if !bindJSON(c, &req, "CreateBatch") {
		return
	}
	batch, err := h.batchService.CreateBatch(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create batch")
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// ListBatches supports ?status= and ?tank_id= filters.
func (h *BatchHandler) ListBatches(c *gin.Context) {
	tankID, ok := queryID(c, "tank_id")
	if !ok {
		return
	}
	filters := models.BatchFilters{Status: queryString(c, "status"), TankID: tankID}
	batches, err := h.batchService.ListBatches(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "list batches")
		return
	}
	c.JSON(http.StatusOK, batches)
}

// GetBatch returns a batch with its growth samples and movement history.
func (h *BatchHandler) GetBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batchService.GetBatch(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get batch")
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *BatchHandler) UpdateBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateBatchRequest
	if !bindJSON(c, &req, "UpdateBatch") {
		return
	}
	result, err := h.batchService.UpdateBatch(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "update batch")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *BatchHandler) RecordGrowthSample(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.RecordGrowthSampleRequest
	if !bindJSON(c, &req, "RecordGrowthSample") {
		return
	}
	sample, err := h.batchService.RecordGrowthSample(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "record growth sample")
		return
	}
	c.JSON(http.StatusCreated, sample)
}

func (h *BatchHandler) MoveBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.MoveBatchRequest
	if !bindJSON(c, &req, "MoveBatch") {
		return
	}
	result, err := h.batchService.MoveBatch(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "move batch")
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecordSale sells fish out of a batch and decrements its population.
func (h *BatchHandler) RecordSale(c *gin.Context) {
	var req services.RecordSaleRequest
	if !bindJSON(c, &req, "RecordSale") {
		return
	}
	result, err := h.batchService.RecordSale(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "record sale")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListSales supports ?start_date=, ?end_date=, ?batch_id= and ?customer_id=.
func (h *BatchHandler) ListSales(c *gin.Context) {
	var filters models.SaleFilters
	var ok bool
	if filters.BatchID, ok = queryID(c, "batch_id"); !ok {
		return
	}
	if filters.CustomerID, ok = queryID(c, "customer_id"); !ok {
		return
	}
	start, err := utils.ParseOptionalDate(queryString(c, "start_date"))
	if err != nil {
		respondServiceError(c, services.ErrDateFormat, "list sales")
		return
	}
	end, err := utils.ParseOptionalDate(queryString(c, "end_date"))
	if err != nil {
		respondServiceError(c, services.ErrDateFormat, "list sales")
		return
	}
	filters.StartDate, filters.EndDate = start, end

	sales, err := h.batchService.ListSales(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "list sales")
		return
	}
	c.JSON(http.StatusOK, sales)
}
