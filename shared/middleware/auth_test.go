package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

type stubResolver struct {
	identities map[string]models.Identity
	err        error
}

func (s stubResolver) CurrentIdentity(_ context.Context, token string) (*models.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	identity, ok := s.identities[token]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

type stubValidator struct{ reject bool }

func (s stubValidator) ValidateIdentity(string) (*models.Identity, error) {
	if s.reject {
		return nil, errors.New("bad signature")
	}
	return &models.Identity{}, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		identity, ok := GetIdentityFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID, "email": identity.Email, "token": GetAccessToken(c)})
	})
	router.GET("/me", handlers...)
	return router
}

func TestRequireAuth(t *testing.T) {
	resolver := stubResolver{identities: map[string]models.Identity{
		"good": {UserID: "sub-1", Email: "owner@example.com"},
	}}

	tests := []struct {
		name      string
		header    string
		resolver  IdentityResolver
		validator TokenValidator
		want      int
	}{
		{"missing header", "", resolver, nil, http.StatusUnauthorized},
		{"unknown token", "Bearer stale", resolver, nil, http.StatusUnauthorized},
		{"bearer token", "Bearer good", resolver, nil, http.StatusOK},
		{"raw token", "good", resolver, nil, http.StatusOK},
		{"bad signature", "Bearer good", resolver, stubValidator{reject: true}, http.StatusUnauthorized},
		{"valid signature", "Bearer good", resolver, stubValidator{}, http.StatusOK},
		{"session store down", "Bearer good", stubResolver{err: errors.New("redis down")}, nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(NewAuthMiddleware(tt.resolver, tt.validator).RequireAuth())
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"sub-1","email":"owner@example.com","token":"good"}`, w.Body.String())
			}
		})
	}
}

func TestRequireForwardedIdentity(t *testing.T) {
	router := newRouter(RequireForwardedIdentity())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderUserID, "sub-1")
	req.Header.Set(HeaderUserEmail, "owner@example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"sub-1","email":"owner@example.com","token":""}`, w.Body.String())
}
