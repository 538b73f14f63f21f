package api

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
	"github.com/lostmahbles/listial-api/internal/config"
	"github.com/lostmahbles/listial-api/internal/model"
	"github.com/lostmahbles/listial-api/internal/pkg/metrics"
	"github.com/lostmahbles/listial-api/internal/store"

	"github.com/gin-gonic/gin"
)

type mockListStore struct {
	createFunc       func(ctx context.Context, title string, ownerID uint) (*model.List, error)
	listsForFunc     func(ctx context.Context, userID uint, email string) ([]model.List, error)
	getFunc          func(ctx context.Context, listID, userID uint) (*model.List, error)
	inviteFunc       func(ctx context.Context, listID, userID uint, email string) (*model.Invitation, error)
	respondFunc      func(ctx context.Context, listID uint, user *model.User, accept bool) (*model.List, error)
	removeMemberFunc func(ctx context.Context, listID, userID uint) (bool, error)
	addItemFunc      func(ctx context.Context, listID, userID uint, text string) ([]model.ListItem, error)
	setCompletedFunc func(ctx context.Context, listID, itemID, userID uint, completed bool) (*model.ListItem, error)
	clearFunc        func(ctx context.Context, listID, userID uint) (*model.List, error)
	createCalls      int
}

func (m *mockListStore) Create(ctx context.Context, title string, ownerID uint) (*model.List, error) {
	m.createCalls++
	return m.createFunc(ctx, title, ownerID)
}

func (m *mockListStore) ListsFor(ctx context.Context, userID uint, email string) ([]model.List, error) {
	return m.listsForFunc(ctx, userID, email)
}

func (m *mockListStore) Get(ctx context.Context, listID, userID uint) (*model.List, error) {
	return m.getFunc(ctx, listID, userID)
}

func (m *mockListStore) Invite(ctx context.Context, listID, userID uint, email string) (*model.Invitation, error) {
	return m.inviteFunc(ctx, listID, userID, email)
}

func (m *mockListStore) RespondToInvite(ctx context.Context, listID uint, user *model.User, accept bool) (*model.List, error) {
	return m.respondFunc(ctx, listID, user, accept)
}

func (m *mockListStore) RemoveMember(ctx context.Context, listID, userID uint) (bool, error) {
	return m.removeMemberFunc(ctx, listID, userID)
}

func (m *mockListStore) AddItem(ctx context.Context, listID, userID uint, text string) ([]model.ListItem, error) {
	return m.addItemFunc(ctx, listID, userID, text)
}

func (m *mockListStore) SetItemCompleted(ctx context.Context, listID, itemID, userID uint, completed bool) (*model.ListItem, error) {
	return m.setCompletedFunc(ctx, listID, itemID, userID, completed)
}

func (m *mockListStore) ClearCompleted(ctx context.Context, listID, userID uint) (*model.List, error) {
	return m.clearFunc(ctx, listID, userID)
}

type mockQuota struct {
	allow bool
}

func (m mockQuota) CanAddList(ctx context.Context, userID uint) (bool, error) {
	return m.allow, nil
}

type mockNotifier struct {
	sent []string
}

func (m *mockNotifier) SendInvitation(ctx context.Context, listID uint, toEmail, listTitle, inviterEmail string) error {
	m.sent = append(m.sent, toEmail)
	return nil
}

func newMockServer(lists ListStore, quota QuotaPolicy) (*Server, *mockNotifier) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	notifier := &mockNotifier{}
	s := &Server{
		cfg:      &config.Config{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		lists:    lists,
		quota:    quota,
		notifier: notifier,
	}
	return s, notifier
}

func asUser(user *model.User, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetCurrentUser(c, user)
		handler(c)
	}
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

func TestCreateList_QuotaExceeded(t *testing.T) {
	lists := &mockListStore{
		createFunc: func(ctx context.Context, title string, ownerID uint) (*model.List, error) {
			return &model.List{ID: 1, Title: title}, nil
		},
	}
	s, _ := newMockServer(lists, mockQuota{allow: false})

	r := gin.New()
	r.POST("/lists", asUser(&model.User{ID: 1, Email: "a@b.com"}, s.handleCreateList))

	w := doJSON(r, http.MethodPost, "/lists", gin.H{"title": "Groceries"})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", w.Code)
	}
	if lists.createCalls != 0 {
		t.Fatalf("expected no create on quota rejection")
	}
}

func TestCreateList_Normal(t *testing.T) {
	lists := &mockListStore{
		createFunc: func(ctx context.Context, title string, ownerID uint) (*model.List, error) {
			return &model.List{
				ID:      7,
				Title:   title,
				Members: []model.ListMember{{ListID: 7, UserID: ownerID}},
			}, nil
		},
	}
	s, _ := newMockServer(lists, mockQuota{allow: true})

	r := gin.New()
	r.POST("/lists", asUser(&model.User{ID: 3, Email: "a@b.com"}, s.handleCreateList))

	w := doJSON(r, http.MethodPost, "/lists", gin.H{"title": "Groceries"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 7 || len(resp.UserIDs) != 1 || resp.UserIDs[0] != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Items == nil || resp.InvitedEmails == nil {
		t.Fatalf("expected empty arrays, not null")
	}
}

func TestCreateList_EmptyTitle(t *testing.T) {
	lists := &mockListStore{
		createFunc: func(ctx context.Context, title string, ownerID uint) (*model.List, error) {
			return nil, store.ErrTitleRequired
		},
	}
	s, _ := newMockServer(lists, mockQuota{allow: true})

	r := gin.New()
	r.POST("/lists", asUser(&model.User{ID: 1, Email: "a@b.com"}, s.handleCreateList))

	w := doJSON(r, http.MethodPost, "/lists", gin.H{"title": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestInvite_SendsEmailBestEffort(t *testing.T) {
	lists := &mockListStore{
		inviteFunc: func(ctx context.Context, listID, userID uint, email string) (*model.Invitation, error) {
			return &model.Invitation{ListID: listID, Email: "bob@x.com"}, nil
		},
		getFunc: func(ctx context.Context, listID, userID uint) (*model.List, error) {
			return &model.List{ID: listID, Title: "Groceries"}, nil
		},
	}
	s, notifier := newMockServer(lists, mockQuota{allow: true})

	r := gin.New()
	r.POST("/lists/:id/invitation", asUser(&model.User{ID: 1, Email: "alice@x.com"}, s.handleInvite))

	w := doJSON(r, http.MethodPost, "/lists/5/invitation", gin.H{"email": "Bob@X.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "bob@x.com" {
		t.Fatalf("expected invitation email to bob, got %v", notifier.sent)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("invitation")) {
		t.Fatalf("expected invitation payload, got %s", w.Body.String())
	}
}

func TestInvite_DuplicateMapsToNotFound(t *testing.T) {
	lists := &mockListStore{
		inviteFunc: func(ctx context.Context, listID, userID uint, email string) (*model.Invitation, error) {
			return nil, store.ErrNotFound
		},
	}
	s, notifier := newMockServer(lists, mockQuota{allow: true})

	r := gin.New()
	r.POST("/lists/:id/invitation", asUser(&model.User{ID: 1, Email: "alice@x.com"}, s.handleInvite))

	w := doJSON(r, http.MethodPost, "/lists/5/invitation", gin.H{"email": "bob@x.com"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no email on failed invite")
	}
}

func TestRespondInvite_RequiresBoolean(t *testing.T) {
	s, _ := newMockServer(&mockListStore{}, mockQuota{allow: true})

	r := gin.New()
	r.PUT("/lists/:id/invitation", asUser(&model.User{ID: 2, Email: "bob@x.com"}, s.handleRespondInvite))

	w := doJSON(r, http.MethodPut, "/lists/5/invitation", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing accept, got %d", w.Code)
	}

	w = doJSON(r, http.MethodPut, "/lists/5/invitation", gin.H{"accept": "yes"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-boolean accept, got %d", w.Code)
	}
}

func TestRespondInvite_DeclineReturnsEmpty(t *testing.T) {
	lists := &mockListStore{
		respondFunc: func(ctx context.Context, listID uint, user *model.User, accept bool) (*model.List, error) {
			if accept {
				t.Fatalf("expected decline")
			}
			return nil, nil
		},
	}
	s, _ := newMockServer(lists, mockQuota{allow: true})

	r := gin.New()
	r.PUT("/lists/:id/invitation", asUser(&model.User{ID: 2, Email: "bob@x.com"}, s.handleRespondInvite))

	w := doJSON(r, http.MethodPut, "/lists/5/invitation", gin.H{"accept": false})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := bytes.TrimSpace(w.Body.Bytes()); !bytes.Equal(body, []byte("null")) {
		t.Fatalf("expected null body on decline, got %s", body)
	}
}

func TestDeleteList_NotFound(t *testing.T) {
	lists := &mockListStore{
		removeMemberFunc: func(ctx context.Context, listID, userID uint) (bool, error) {
			return false, store.ErrNotFound
		},
	}
	s, _ := newMockServer(lists, mockQuota{allow: true})

	r := gin.New()
	r.DELETE("/lists/:id", asUser(&model.User{ID: 1, Email: "a@b.com"}, s.handleDeleteList))

	w := doJSON(r, http.MethodDelete, "/lists/99", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestShowList_BadID(t *testing.T) {
	s, _ := newMockServer(&mockListStore{}, mockQuota{allow: true})

	r := gin.New()
	r.GET("/lists/:id", asUser(&model.User{ID: 1, Email: "a@b.com"}, s.handleShowList))

	w := doJSON(r, http.MethodGet, "/lists/abc", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", w.Code)
	}
}
