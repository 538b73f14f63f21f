package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lostmahbles/listial-api/internal/api/middleware"
	"github.com/lostmahbles/listial-api/internal/credential"
	"github.com/lostmahbles/listial-api/internal/model"

	"github.com/gin-gonic/gin"
)

type mockCredentialStore struct {
	registerFunc      func(ctx context.Context, email, password string) (*model.User, error)
	authenticateFunc  func(ctx context.Context, email, password string) (*model.User, error)
	getByIDFunc       func(ctx context.Context, id uint) (*model.User, error)
	updateProfileFunc func(ctx context.Context, userID uint, upd credential.ProfileUpdate) (*model.User, error)
}

func (m *mockCredentialStore) Register(ctx context.Context, email, password string) (*model.User, error) {
	return m.registerFunc(ctx, email, password)
}

func (m *mockCredentialStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	return m.authenticateFunc(ctx, email, password)
}

func (m *mockCredentialStore) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCredentialStore) UpdateProfile(ctx context.Context, userID uint, upd credential.ProfileUpdate) (*model.User, error) {
	return m.updateProfileFunc(ctx, userID, upd)
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, token string) {
	m.invalidated = append(m.invalidated, token)
}

func newHandler(store CredentialStore, cache TokenInvalidator) *Handler {
	gin.SetMode(gin.TestMode)
	return NewHandler(store, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"email taken", credential.ErrEmailTaken, http.StatusBadRequest},
		{"email required", credential.ErrEmailRequired, http.StatusBadRequest},
		{"password required", credential.ErrPasswordRequired, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockCredentialStore{
				registerFunc: func(ctx context.Context, email, password string) (*model.User, error) {
					return nil, tc.err
				},
			}
			h := newHandler(store, nil)

			r := gin.New()
			r.POST("/users", h.Register)

			w := doJSON(r, http.MethodPost, "/users", gin.H{"email": "a@b.com", "password": "pw"})
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestRegister_ReturnsToken(t *testing.T) {
	store := &mockCredentialStore{
		registerFunc: func(ctx context.Context, email, password string) (*model.User, error) {
			return &model.User{ID: 3, Email: email, AccessToken: "fresh-token"}, nil
		},
	}
	h := newHandler(store, nil)

	r := gin.New()
	r.POST("/users", h.Register)

	w := doJSON(r, http.MethodPost, "/users", gin.H{"email": "a@b.com", "password": "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != 3 || resp.AccessToken != "fresh-token" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestShow_OmitsCredentialMaterial(t *testing.T) {
	store := &mockCredentialStore{
		getByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
			return &model.User{
				ID:             id,
				Email:          "a@b.com",
				Salt:           "salty",
				HashedPassword: "digest",
				AccessToken:    "secret-token",
			}, nil
		},
	}
	h := newHandler(store, nil)

	r := gin.New()
	r.GET("/users/:id", h.Show)

	w := doJSON(r, http.MethodGet, "/users/3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, leaked := range []string{"salty", "digest", "secret-token"} {
		if bytes.Contains(w.Body.Bytes(), []byte(leaked)) {
			t.Fatalf("response leaks credential material: %s", w.Body.String())
		}
	}
}

func TestShow_UnknownUser(t *testing.T) {
	store := &mockCredentialStore{
		getByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
			return nil, credential.ErrNotFound
		},
	}
	h := newHandler(store, nil)

	r := gin.New()
	r.GET("/users/:id", h.Show)

	if w := doJSON(r, http.MethodGet, "/users/99", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/users/abc", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", w.Code)
	}
}

func TestUpdate_InvalidatesCachedToken(t *testing.T) {
	store := &mockCredentialStore{
		updateProfileFunc: func(ctx context.Context, userID uint, upd credential.ProfileUpdate) (*model.User, error) {
			return &model.User{ID: userID, Email: "a@b.com", AccessToken: "rotated"}, nil
		},
	}
	cache := &mockInvalidator{}
	h := newHandler(store, cache)

	current := &model.User{ID: 3, Email: "a@b.com", AccessToken: "stale"}
	r := gin.New()
	r.PUT("/users/:id", func(c *gin.Context) {
		middleware.SetCurrentUser(c, current)
		h.Update(c)
	})

	w := doJSON(r, http.MethodPut, "/users/3", gin.H{"password": "new-pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "stale" {
		t.Fatalf("expected stale token invalidated, got %v", cache.invalidated)
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "rotated" {
		t.Fatalf("expected rotated token in response, got %+v", resp)
	}
}

func TestUpdate_ForeignAccountForbidden(t *testing.T) {
	called := false
	store := &mockCredentialStore{
		updateProfileFunc: func(ctx context.Context, userID uint, upd credential.ProfileUpdate) (*model.User, error) {
			called = true
			return nil, nil
		},
	}
	h := newHandler(store, nil)

	current := &model.User{ID: 4, Email: "other@b.com", AccessToken: "tok"}
	r := gin.New()
	r.PUT("/users/:id", func(c *gin.Context) {
		middleware.SetCurrentUser(c, current)
		h.Update(c)
	})

	w := doJSON(r, http.MethodPut, "/users/3", gin.H{"email": "evil@b.com"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if called {
		t.Fatalf("expected no store call for foreign account")
	}
}
