package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hatchery_backend/internal/services"
)

// ReferenceHandler serves tanks, customers and workers.
type ReferenceHandler struct {
	referenceService services.ReferenceService
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(rs services.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{referenceService: rs}
}

// --- Tanks ---

func (h *ReferenceHandler) CreateTank(c *gin.Context) {
	var req services.CreateTankRequest
	if !bindJSON(c, &req, "CreateTank") {
		return
	}
	tank, err := h.referenceService.CreateTank(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create tank")
		return
	}
	c.JSON(http.StatusCreated, tank)
}

func (h *ReferenceHandler) ListTanks(c *gin.Context) {
	tanks, err := h.referenceService.ListTanks(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list tanks")
		return
	}
	c.JSON(http.StatusOK, tanks)
}

func (h *ReferenceHandler) GetTank(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tank, err := h.referenceService.GetTank(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get tank")
		return
	}
	c.JSON(http.StatusOK, tank)
}

// --- Customers ---

func (h *ReferenceHandler) CreateCustomer(c *gin.Context) {
	var req services.CreateCustomerRequest
	if !bindJSON(c, &req, "CreateCustomer") {
		return
	}
	customer, err := h.referenceService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create customer")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *ReferenceHandler) ListCustomers(c *gin.Context) {
	customers, err := h.referenceService.ListCustomers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list customers")
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *ReferenceHandler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	customer, err := h.referenceService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get customer")
		return
	}
	c.JSON(http.StatusOK, customer)
}

// --- Workers ---

func (h *ReferenceHandler) CreateWorker(c *gin.Context) {
	var req services.CreateWorkerRequest
	if !bindJSON(c, &req, "CreateWorker") {
		return
	}
	worker, err := h.referenceService.CreateWorker(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create worker")
		return
	}
	c.JSON(http.StatusCreated, worker)
}

func (h *ReferenceHandler) ListWorkers(c *gin.Context) {
	workers, err := h.referenceService.ListWorkers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list workers")
		return
	}
	c.JSON(http.StatusOK, workers)
}

// UpdateWorkerStatus handles PATCH /workers/:id/status with {"status": "Active"|"Inactive"}.
func (h *ReferenceHandler) UpdateWorkerStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req, "UpdateWorkerStatus") {
		return
	}
	if err := h.referenceService.SetWorkerStatus(c.Request.Context(), id, req.Status); err != nil {
		respondServiceError(c, err, "update worker status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Worker status updated", "status": req.Status})
}
