package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hatchery_backend/internal/models"
	"hatchery_backend/internal/services"
)

// HealthHandler holds the health service.
type HealthHandler struct {
	healthService services.HealthService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(hs services.HealthService) *HealthHandler {
	return &HealthHandler{healthService: hs}
}

func (h *HealthHandler) LogHealthIssue(c *gin.Context) {
	var req services.LogHealthIssueRequest
	if !bindJSON(c, &req, "LogHealthIssue") {
		return
	}
	healthLog, err := h.healthService.LogHealthIssue(c.Request.Context(), caller(c), req)
	if err != nil {
		respondServiceError(c, err, "log health issue")
		return
	}
	c.JSON(http.StatusCreated, healthLog)
}

func (h *HealthHandler) ListHealthLogs(c *gin.Context) {
	var filters models.HealthLogFilters
	var ok bool
	if filters.BatchID, ok = queryID(c, "batch_id"); !ok {
		return
	}
	if filters.TankID, ok = queryID(c, "tank_id"); !ok {
		return
	}
	filters.Severity = queryString(c, "severity")

	logs, err := h.healthService.ListHealthLogs(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "list health logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *HealthHandler) GetHealthLog(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	healthLog, err := h.healthService.GetHealthLog(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get health log")
		return
	}
	c.JSON(http.StatusOK, healthLog)
}

// AddTreatment records a medication against a health log and books its cost.
func (h *HealthHandler) AddTreatment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.AddTreatmentRequest
	if !bindJSON(c, &req, "AddTreatment") {
		return
	}
	result, err := h.healthService.AddTreatment(c.Request.Context(), id, caller(c), req)
	if err != nil {
		respondServiceError(c, err, "add treatment")
		return
	}
	c.JSON(http.StatusCreated, result)
}
