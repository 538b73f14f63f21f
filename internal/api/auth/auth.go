package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lostmahbles/listial-api/internal/api/middleware"
	"github.com/lostmahbles/listial-api/internal/credential"
	"github.com/lostmahbles/listial-api/internal/model"

	"github.com/gin-gonic/gin"
)

// CredentialStore 是 Handler 需要的凭证存储切面。
type CredentialStore interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, upd credential.ProfileUpdate) (*model.User, error)
}

// TokenInvalidator 在令牌轮换后清掉缓存里的旧令牌。
type TokenInvalidator interface {
	Invalidate(ctx context.Context, token string)
}

// Handler 提供注册、登录与账号资料接口。
type Handler struct {
	store  CredentialStore
	cache  TokenInvalidator
	logger *slog.Logger
}

// NewHandler 创建 Auth Handler。cache 可以为 nil（不启用令牌缓存时）。
func NewHandler(store CredentialStore, cache TokenInvalidator, logger *slog.Logger) *Handler {
	return &Handler{store: store, cache: cache, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// tokenResponse 注册/登录/改密的统一响应：用户 ID 加当前有效令牌。
type tokenResponse struct {
	UserID      uint   `json:"user_id"`
	AccessToken string `json:"access_token"`
}

type userResponse struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// Register 创建新用户。
//
// POST /users
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrEmailRequired),
			errors.Is(err, credential.ErrPasswordRequired),
			errors.Is(err, credential.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			if h.logger != nil {
				h.logger.Error("register failed", slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		}
		return
	}

	c.JSON(http.StatusOK, tokenResponse{UserID: user.ID, AccessToken: user.AccessToken})
}

// Login 校验邮箱密码并返回当前令牌。
//
// POST /auth
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	user, err := h.store.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no such user"})
		case errors.Is(err, credential.ErrBadPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		default:
			if h.logger != nil {
				h.logger.Error("login failed", slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	if h.logger != nil {
		h.logger.Info("user logged in", slog.String("email", user.Email))
	}
	c.JSON(http.StatusOK, tokenResponse{UserID: user.ID, AccessToken: user.AccessToken})
}

// Show 返回用户资料（不含任何凭证材料）。
//
// GET /users/:id
func (h *Handler) Show(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if h.logger != nil {
			h.logger.Error("load user failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
		return
	}

	c.JSON(http.StatusOK, userResponse{UserID: user.ID, Email: user.Email})
}

// Update 修改自己的邮箱或密码。
//
// PUT /users/:id — 只能改自己的账号；改密码会轮换访问令牌，
// 响应里带回新令牌，旧令牌（包括缓存里的）立即作废。
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	current, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if current.ID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot modify another account"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.UpdateProfile(c.Request.Context(), id, credential.ProfileUpdate{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, credential.ErrEmailRequired),
			errors.Is(err, credential.ErrPasswordRequired),
			errors.Is(err, credential.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			if h.logger != nil {
				h.logger.Error("update profile failed", slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		}
		return
	}

	// 资料变了就清掉旧令牌的缓存；改密码时旧令牌本身也已失效。
	if h.cache != nil && current.AccessToken != "" {
		h.cache.Invalidate(c.Request.Context(), current.AccessToken)
	}

	c.JSON(http.StatusOK, tokenResponse{UserID: user.ID, AccessToken: user.AccessToken})
}

// parseID 解析 :id 路径参数，非法值按资源不存在处理。
func parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return 0, false
	}
	return uint(id), true
}
