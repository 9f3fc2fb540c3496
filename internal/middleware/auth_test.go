package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bank-payments-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuth(testSecret, []string{"admin", "service_role"}))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"actor": reconciliation.ActorFrom(c.Request.Context()),
			"keys":  len(c.Keys),
		})
	})
	return r
}

func request(r http.Handler, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	r := setupRouter()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		token  string
		status int
		actor  string
	}{
		{name: "missing header", token: "", status: http.StatusUnauthorized},
		{name: "garbage", token: "not-a-jwt", status: http.StatusUnauthorized},
		{
			name:   "wrong secret",
			token:  sign(t, jwt.MapClaims{"sub": "u1", "role": "admin", "exp": exp}, []byte("other")),
			status: http.StatusUnauthorized,
		},
		{
			name:   "expired",
			token:  sign(t, jwt.MapClaims{"sub": "u1", "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret),
			status: http.StatusUnauthorized,
		},
		{
			name:   "plain authenticated user",
			token:  sign(t, jwt.MapClaims{"sub": "u1", "role": "authenticated", "exp": exp}, testSecret),
			status: http.StatusForbidden,
		},
		{
			name:   "admin via app_metadata",
			token:  sign(t, jwt.MapClaims{"sub": "u1", "email": "admin@example.org", "role": "authenticated", "app_metadata": map[string]interface{}{"role": "admin"}, "exp": exp}, testSecret),
			status: http.StatusOK,
			actor:  "admin@example.org",
		},
		{
			name:   "service role falls back to subject",
			token:  sign(t, jwt.MapClaims{"sub": "svc", "role": "service_role", "exp": exp}, testSecret),
			status: http.StatusOK,
			actor:  "svc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(r, tt.token)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.actor != "" {
				assert.Contains(t, rec.Body.String(), tt.actor)
				// the actor travels only in the request context
				assert.Contains(t, rec.Body.String(), `"keys":0`)
			}
		})
	}
}
