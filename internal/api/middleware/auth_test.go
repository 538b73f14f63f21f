package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lostmahbles/listial-api/internal/model"

	"github.com/gin-gonic/gin"
)

type stubResolver struct {
	users map[string]*model.User
}

func (s stubResolver) ResolveByToken(ctx context.Context, token string) (*model.User, error) {
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, errors.New("unknown token")
}

func newAuthRouter(resolver TokenResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(resolver))
	r.GET("/whoami", func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": user.Email})
	})
	return r
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	r := newAuthRouter(stubResolver{users: map[string]*model.User{
		"tok-1": {ID: 1, Email: "a@b.com"},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami?access_token=tok-1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_HeaderToken(t *testing.T) {
	r := newAuthRouter(stubResolver{users: map[string]*model.User{
		"tok-1": {ID: 1, Email: "a@b.com"},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Access-Token", "tok-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 via header token, got %d", w.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	r := newAuthRouter(stubResolver{users: map[string]*model.User{}})

	for _, path := range []string{"/whoami", "/whoami?access_token=bogus"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}
}
