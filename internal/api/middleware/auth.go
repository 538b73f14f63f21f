package middleware

import (
	"context"
	"net/http"

	"github.com/lostmahbles/listial-api/internal/model"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

// TokenResolver maps an access token to its user. Backed by the credential
// store, optionally wrapped by the token cache.
type TokenResolver interface {
	ResolveByToken(ctx context.Context, token string) (*model.User, error)
}

// AuthMiddleware 解析 access_token 请求参数（或 X-Access-Token 头）并把
// 用户写入上下文。没有令牌或令牌无主一律 401，不再进入业务逻辑。
func AuthMiddleware(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("access_token")
		if token == "" {
			token = c.GetHeader("X-Access-Token")
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing access token"})
			c.Abort()
			return
		}

		user, err := resolver.ResolveByToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
			c.Abort()
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// SetCurrentUser 把用户写入请求上下文，测试路由也用它注入身份。
func SetCurrentUser(c *gin.Context, user *model.User) {
	c.Set(currentUserKey, user)
}

// CurrentUser 取出 AuthMiddleware 存入的用户。
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
