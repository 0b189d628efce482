package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkline-eats/service-promo/internal/platform/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(jwtManager *auth.JWTManager, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id, ok := GetUserID(c)
		if !ok {
			c.String(http.StatusOK, "guest")
			return
		}
		c.String(http.StatusOK, id.String())
	})
	r.GET("/", handlers...)
	return r
}

func TestOptionalAuthAllowsGuests(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute)
	r := newTestRouter(m, OptionalAuthMiddleware(m))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "guest", w.Body.String())
}

func TestOptionalAuthAttachesIdentity(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute)
	r := newTestRouter(m, OptionalAuthMiddleware(m))
	userID := uuid.New()
	token, err := m.GenerateAccessToken(userID, auth.RoleCustomer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())
}

func TestOptionalAuthRejectsBadToken(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute)
	r := newTestRouter(m, OptionalAuthMiddleware(m))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute)
	r := newTestRouter(m, AuthMiddleware(m), RequireRole(auth.RoleOwner, auth.RoleAdmin))

	customer, err := m.GenerateAccessToken(uuid.New(), auth.RoleCustomer)
	require.NoError(t, err)
	owner, err := m.GenerateAccessToken(uuid.New(), auth.RoleOwner)
	require.NoError(t, err)

	for token, want := range map[string]int{
		customer: http.StatusForbidden,
		owner:    http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
