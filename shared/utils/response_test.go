package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
)

func TestDomainErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", apperr.Validation("create room", "totalBeds must be at least 1"), http.StatusBadRequest, "create room: validation failed: totalBeds must be at least 1"},
		{"not found", apperr.NotFound("get room", "room", "r1"), http.StatusNotFound, `get room: not found: room "r1" not found`},
		{"conflict", apperr.Conflict("delete room", "room has occupied beds"), http.StatusConflict, "delete room: conflict: room has occupied beds"},
		{"transition", apperr.InvalidTransition("check in", "tenant is checked-out"), http.StatusUnprocessableEntity, "check in: invalid state transition: tenant is checked-out"},
		{"transient", apperr.Transient("get room", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "Service temporarily unavailable, please retry"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			DomainErrorResponse(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestOKResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OKResponse(c, "Room retrieved", gin.H{"id": "r1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Room retrieved","data":{"id":"r1"}}`, w.Body.String())
}
