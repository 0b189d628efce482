package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperror.NewNotFoundError("PromoCode", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperror.NewConflictError("dup"), http.StatusConflict, "CONFLICT"},
		{"validation", apperror.NewValidationError("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"forbidden", apperror.NewForbiddenError("no"), http.StatusForbidden, "FORBIDDEN"},
		{"storage", apperror.NewStorageError("find promo", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Error(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotContains(t, body.Error.Message, "dial tcp")
		})
	}
}

func TestPaginatedMeta(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Paginated(c, []int{1, 2}, 41, 2, 20)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(3), body.Meta.TotalPages)
	assert.Equal(t, 2, body.Meta.Page)
}
