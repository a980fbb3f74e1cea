package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/uploadvault/internal/common"
	"github.com/dmitrijs2005/uploadvault/internal/server/auth"
)

// Context keys set by the authentication middleware.
const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// respondError maps service errors to HTTP status codes and the uniform
// {"error": "..."} envelope. Unexpected errors never leak their details.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": common.ErrTokenExpired.Error()})
	case errors.Is(err, common.ErrRefreshTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": common.ErrRefreshTokenExpired.Error()})
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, common.ErrorForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, common.ErrorNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrorAlreadyExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// authenticate verifies the Bearer token and stores the caller's identity in
// the request context. Expired tokens get a distinct message so clients know
// to refresh instead of re-authenticating.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		if header == "" || !strings.HasPrefix(header, common.BearerPrefix) {
			respondError(c, common.ErrorUnauthorized)
			return
		}

		claims, err := auth.ParseToken(strings.TrimPrefix(header, common.BearerPrefix), []byte(s.cfg.SecretKey))
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// requireRole allows the request through only when the authenticated role is
// in the allow-list.
func (s *Server) requireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(ctxRole)]; !ok {
			respondError(c, common.ErrorForbidden)
			return
		}
		c.Next()
	}
}
