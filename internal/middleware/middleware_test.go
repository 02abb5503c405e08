package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/service"
)

type stubAuth map[string]*model.User

func (s stubAuth) Authenticate(_ context.Context, tok string) (*model.User, error) {
	if u, ok := s[tok]; ok {
		return u, nil
	}
	return nil, service.ErrInvalidToken
}

var (
	student = &model.User{ID: "s1", Role: model.RoleStudent}
	admin   = &model.User{ID: "a1", Role: model.RoleAdmin}
	auth    = stubAuth{"student-token": student, "admin-token": admin}
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(auth), func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "token": CurrentToken(c)})
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", "bogus").Code)

	w := perform(r, http.MethodGet, "/me", "student-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"s1","token":"student-token"}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/x", OptionalAuth(auth), func(c *gin.Context) {
		if u, ok := CurrentUser(c); ok {
			c.String(http.StatusOK, u.ID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", perform(r, http.MethodGet, "/x", "").Body.String())
	assert.Equal(t, "anonymous", perform(r, http.MethodGet, "/x", "bogus").Body.String())
	assert.Equal(t, "s1", perform(r, http.MethodGet, "/x", "student-token").Body.String())
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AuthMiddleware(auth), RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/bare", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/admin", "student-token").Code)
	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodGet, "/admin", "admin-token").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/bare", "").Code)
}

func TestRequestLoggerKeepsBodyReadable(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(`{"email":"a@b.c","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"a@b.c","password":"secret"}`, w.Body.String())
}

func TestLoggableMasksSecrets(t *testing.T) {
	got := loggable([]byte(`{"email":"a@b.c","password": "hunter2","token":"abc"}`))
	assert.NotContains(t, got, "hunter2")
	assert.NotContains(t, got, `"abc"`)
	assert.Contains(t, got, `"password":"***"`)
	assert.Contains(t, got, "a@b.c")
}
