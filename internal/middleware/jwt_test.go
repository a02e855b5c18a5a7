package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newGuardedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := staticValidator{
		"admin":   {UserID: "u-1", Role: models.RoleAdmin},
		"teacher": {UserID: "t-1", Role: models.RoleTeacher},
	}
	router := gin.New()
	router.Use(JWT(validator))
	router.POST("/generator/runs", RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	router.GET("/timetables/teachers/:id", RBAC(string(models.RoleAdmin), RoleSelf), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func perform(router *gin.Engine, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestJWTRejectsMissingOrInvalidTokens(t *testing.T) {
	router := newGuardedRouter()

	assert.Equal(t, http.StatusUnauthorized, perform(router, http.MethodPost, "/generator/runs", ""))
	assert.Equal(t, http.StatusUnauthorized, perform(router, http.MethodPost, "/generator/runs", "forged"))

	req := httptest.NewRequest(http.MethodPost, "/generator/runs", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACAllowsConfiguredRoles(t *testing.T) {
	router := newGuardedRouter()

	assert.Equal(t, http.StatusAccepted, perform(router, http.MethodPost, "/generator/runs", "admin"))
	assert.Equal(t, http.StatusForbidden, perform(router, http.MethodPost, "/generator/runs", "teacher"))
}

func TestRBACSelfAccess(t *testing.T) {
	router := newGuardedRouter()

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/timetables/teachers/t-1", "teacher"))
	assert.Equal(t, http.StatusForbidden, perform(router, http.MethodGet, "/timetables/teachers/t-2", "teacher"))
	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/timetables/teachers/t-2", "admin"))
}
