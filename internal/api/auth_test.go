package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	admin := r.Group("/admin", AdminAuth(secret))
	admin.GET("/ping", func(c *gin.Context) {
		respondOK(c, gin.H{"subject": c.GetString("admin_subject")})
	})
	return r
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := IssueAdminToken("test-secret-0123456789abcdefghijklmnop", "ops@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := verifyAdminToken("test-secret-0123456789abcdefghijklmnop", token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestAdminTokenWrongSecret(t *testing.T) {
	token, err := IssueAdminToken("test-secret-0123456789abcdefghijklmnop", "ops@example.com", time.Minute)
	require.NoError(t, err)

	_, err = verifyAdminToken("other-secret-0123456789abcdefghijklmno", token)
	assert.Error(t, err)
}

func TestAdminTokenExpired(t *testing.T) {
	token, err := IssueAdminToken("test-secret-0123456789abcdefghijklmnop", "ops@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = verifyAdminToken("test-secret-0123456789abcdefghijklmnop", token)
	assert.ErrorContains(t, err, "expired")
}

func TestAdminTokenMalformed(t *testing.T) {
	_, err := verifyAdminToken("test-secret-0123456789abcdefghijklmnop", "not-a-jwt")
	assert.Error(t, err)
}

func TestAdminAuthAllowsValidToken(t *testing.T) {
	r := adminRouter("test-secret-0123456789abcdefghijklmnop")
	token, err := IssueAdminToken("test-secret-0123456789abcdefghijklmnop", "ops@example.com", time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
}

func TestAdminAuthRejectsMissingHeader(t *testing.T) {
	r := adminRouter("test-secret-0123456789abcdefghijklmnop")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
}

func TestAdminAuthRejectsNonBearerScheme(t *testing.T) {
	r := adminRouter("test-secret-0123456789abcdefghijklmnop")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthRejectsForgedToken(t *testing.T) {
	r := adminRouter("test-secret-0123456789abcdefghijklmnop")
	token, err := IssueAdminToken("attacker-secret-0123456789abcdefghijklm", "ops@example.com", time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
