package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/phytul/nightingale-platform/internal/auth"
	apperrors "github.com/phytul/nightingale-platform/pkg/errors"
	"github.com/phytul/nightingale-platform/pkg/response"
)

const (
	CtxUserIDKey = "userID"
)

// Auth enforces a Bearer access token on the request. Any failure, from a
// missing header to an expired or refresh-kind token, yields the same 403 so
// clients cannot distinguish why a token was rejected.
func Auth(tokens *iauth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, apperrors.ErrAccessTokenInvalid)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		userID, err := tokens.Decode(token, iauth.KindAccess)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, apperrors.ErrAccessTokenInvalid.WithInternal(err))
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID extracts the authenticated user id set by Auth.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
