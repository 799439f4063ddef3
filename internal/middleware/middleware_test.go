package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/clubconnect-api/internal/models"
	"github.com/noah-isme/clubconnect-api/internal/service"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: role}})
	r.GET("/covers", auth, AnyStaff(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.DELETE("/schools/:id", auth, AdminOnly(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/meta", WithResponseMeta(), func(c *gin.Context) {
		c.JSON(http.StatusOK, ExtractMeta(c))
	})
	return r
}

func perform(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newRouter(models.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/covers", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/covers", "bad").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/covers", "good").Code)
}

func TestRolePolicies(t *testing.T) {
	staff := newRouter(models.RoleStaff)
	assert.Equal(t, http.StatusOK, perform(staff, http.MethodGet, "/covers", "good").Code)
	assert.Equal(t, http.StatusForbidden, perform(staff, http.MethodDelete, "/schools/s1", "good").Code)

	admin := newRouter(models.RoleAdmin)
	assert.Equal(t, http.StatusNoContent, perform(admin, http.MethodDelete, "/schools/s1", "good").Code)

	other := newRouter(models.UserRole("TEACHER"))
	assert.Equal(t, http.StatusForbidden, perform(other, http.MethodGet, "/covers", "good").Code)
}

func TestResponseMetaReportsProcessingTime(t *testing.T) {
	w := perform(newRouter(models.RoleAdmin), http.MethodGet, "/meta", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "processing_time_ms")
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/covers/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, http.MethodGet, "/covers/occ-1", "")
	perform(r, http.MethodGet, "/covers/occ-2", "")
	perform(r, http.MethodGet, "/no-such-route/42", "")
	perform(r, http.MethodGet, "/health", "")

	assert.Equal(t, uint64(3), metrics.Snapshot().RequestsTotal)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/covers/:id",status="200"} 2`)
	assert.Contains(t, body, `path="unmatched",status="404"`)
	assert.NotContains(t, body, "occ-1")
	assert.NotContains(t, body, "no-such-route")
	assert.NotContains(t, body, `path="/health"`)
}
