package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hatchery_backend/internal/services"
)

// FeedHandler holds the feed service.
type FeedHandler struct {
	feedService services.FeedService
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(fs services.FeedService) *FeedHandler {
	return &FeedHandler{feedService: fs}
}

// RecordPurchase books a feed purchase, its stock increase and its expense.
func (h *FeedHandler) RecordPurchase(c *gin.Context) {
	var req services.RecordFeedPurchaseRequest
	if !bindJSON(c, &req, "RecordPurchase") {
		return
	}
	result, err := h.feedService.RecordPurchase(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "record feed purchase")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListPurchases returns purchases, newest first, optionally for one inventory item.
func (h *FeedHandler) ListPurchases(c *gin.Context) {
	inventoryID, ok := queryID(c, "inventory_id")
	if !ok {
		return
	}
	purchases, err := h.feedService.ListPurchases(c.Request.Context(), inventoryID)
	if err != nil {
		respondServiceError(c, err, "list feed purchases")
		return
	}
	c.JSON(http.StatusOK, purchases)
}

// LogUsage records feed given to fish and draws down stock.
func (h *FeedHandler) LogUsage(c *gin.Context) {
	var req services.LogFeedUsageRequest
	if !bindJSON(c, &req, "LogUsage") {
		return
	}
	result, err := h.feedService.LogUsage(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "log feed usage")
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *FeedHandler) ListFeedingLogs(c *gin.Context) {
	batchID, ok := queryID(c, "batch_id")
	if !ok {
		return
	}
	inventoryID, ok := queryID(c, "inventory_id")
	if !ok {
		return
	}
	logs, err := h.feedService.ListFeedingLogs(c.Request.Context(), batchID, inventoryID)
	if err != nil {
		respondServiceError(c, err, "list feeding logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *FeedHandler) ListInventory(c *gin.Context) {
	items, err := h.feedService.ListInventory(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list feed inventory")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *FeedHandler) GetInventory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.feedService.GetInventory(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get feed inventory")
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateInventory lets a manager correct a feed item's details and unit cost.
func (h *FeedHandler) UpdateInventory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateFeedItemRequest
	if !bindJSON(c, &req, "UpdateInventory") {
		return
	}
	item, err := h.feedService.UpdateFeedItem(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "update feed inventory")
		return
	}
	c.JSON(http.StatusOK, item)
}
