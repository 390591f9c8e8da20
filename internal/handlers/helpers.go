package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hatchery_backend/internal/repositories"
	"hatchery_backend/internal/services"
	"hatchery_backend/pkg/utils"
)

// respondServiceError maps the service error taxonomy onto HTTP responses.
// Unexpected errors are logged with their detail and answered with a generic 500.
func respondServiceError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
	case errors.Is(err, services.ErrNotFound), errors.Is(err, repositories.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), ""))
	case errors.Is(err, services.ErrInsufficientStock):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInsufficientStock, err.Error(), ""))
	case errors.Is(err, services.ErrInsufficientPopulation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInsufficientPopulation, err.Error(), ""))
	case errors.Is(err, services.ErrConflict), errors.Is(err, repositories.ErrDuplicateKey):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), ""))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid username or password.", ""))
	case errors.Is(err, services.ErrUserInactive):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "User account is inactive.", ""))
	case errors.Is(err, services.ErrRegistrationClosed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Registration is closed. Ask an admin to create your account.", ""))
	case errors.Is(err, context.DeadlineExceeded):
		utils.LogError(err, action+": request timed out")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusGatewayTimeout, utils.ErrCodeTimeout, "The request took too long to complete.", ""))
	default:
		utils.LogError(err, action+": unexpected error", map[string]interface{}{"request_id": c.GetString(utils.RequestIDKey)})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to "+action+".", "Internal error"))
	}
}

// bindJSON decodes the request body, answering 400 on malformed payloads.
func bindJSON(c *gin.Context, dst interface{}, action string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.LogWarn(action+": failed to bind JSON", map[string]interface{}{"error": err.Error()})
		utils.RespondValidationFailed(c, err.Error())
		return false
	}
	return true
}

// pathID parses a positive int64 path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := utils.StrToInt64(c.Param(name))
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid "+name+" format.", c.Param(name)))
		return 0, false
	}
	return id, true
}

// queryID parses an optional int64 query parameter.
func queryID(c *gin.Context, name string) (*int64, bool) {
	id, err := utils.OptionalInt64(c.Query(name))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", err.Error()))
		return nil, false
	}
	return id, true
}

// queryString returns an optional query parameter, nil when absent or blank.
func queryString(c *gin.Context, name string) *string {
	v := c.Query(name)
	return utils.TrimmedOrNil(&v)
}

// caller is the authenticated username, empty for unauthenticated requests.
func caller(c *gin.Context) string {
	return c.GetString("username")
}
