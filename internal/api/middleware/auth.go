package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/session"
	"github.com/d60-Lab/persona-graph/pkg/response"
	"github.com/d60-Lab/persona-graph/pkg/token"
)

const sessionKey = "persona.session"

// AccountChecker 确认令牌签发给的账号仍然存在
type AccountChecker interface {
	Verify(ctx context.Context, username, accountID string) error
}

// Auth 校验 Bearer 令牌与其账号，并把会话放入 gin.Context
func Auth(tokens *token.Manager, accounts AccountChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		if err := accounts.Verify(c.Request.Context(), claims.Username(), claims.AccountID); err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				response.Unauthorized(c, "account no longer exists")
				return
			}
			response.InternalError(c, err)
			return
		}
		c.Set(sessionKey, session.Session{ID: claims.SessionID(), AccountUsername: claims.Username()})
		c.Next()
	}
}

// SessionFrom 取出 Auth 写入的会话
func SessionFrom(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}
