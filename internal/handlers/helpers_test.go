package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hatchery_backend/internal/repositories"
	"hatchery_backend/internal/services"
	"hatchery_backend/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func TestRespondServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", fmt.Errorf("%w: quantity must be positive", services.ErrValidation), http.StatusBadRequest, utils.ErrCodeValidationFailed},
		{"date format", services.ErrDateFormat, http.StatusBadRequest, utils.ErrCodeValidationFailed},
		{"service not found", services.ErrBatchNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
		{"repository not found", repositories.ErrNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
		{"insufficient stock", fmt.Errorf("%w: 10 kg left", services.ErrInsufficientStock), http.StatusConflict, utils.ErrCodeInsufficientStock},
		{"insufficient population", services.ErrInsufficientPopulation, http.StatusConflict, utils.ErrCodeInsufficientPopulation},
		{"conflict", services.ErrTankNameExists, http.StatusConflict, utils.ErrCodeConflict},
		{"duplicate key", repositories.ErrDuplicateKey, http.StatusConflict, utils.ErrCodeConflict},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, utils.ErrCodeUnauthorized},
		{"inactive", services.ErrUserInactive, http.StatusForbidden, utils.ErrCodeForbidden},
		{"registration closed", services.ErrRegistrationClosed, http.StatusForbidden, utils.ErrCodeForbidden},
		{"timeout", fmt.Errorf("locking batch: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, utils.ErrCodeTimeout},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, utils.ErrCodeInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondServiceError(c, tc.err, "do things")

			if w.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, w.Code)
			}
			var body struct {
				Error utils.APIError `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tc.code {
				t.Fatalf("expected code %s got %s", tc.code, body.Error.Code)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-4"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		if _, ok := pathID(c, "id"); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q got %d", raw, w.Code)
		}
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	if id, ok := pathID(c, "id"); !ok || id != 42 {
		t.Fatalf("expected 42 got %d", id)
	}
}

func TestQueryHelpers(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?batch_id=7&severity=%20High%20&tank_id=", nil)

	id, ok := queryID(c, "batch_id")
	if !ok || id == nil || *id != 7 {
		t.Fatalf("expected batch_id 7, got %v", id)
	}
	if id, ok := queryID(c, "tank_id"); !ok || id != nil {
		t.Fatalf("a blank id should be nil, got %v", id)
	}
	if s := queryString(c, "severity"); s == nil || *s != "High" {
		t.Fatalf("expected trimmed severity, got %v", s)
	}
	if s := queryString(c, "missing"); s != nil {
		t.Fatalf("expected nil for a missing parameter")
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?batch_id=seven", nil)
	if _, ok := queryID(c, "batch_id"); ok {
		t.Fatalf("expected a non-numeric id to be rejected")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}
