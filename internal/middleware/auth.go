package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/univento/leaderboard-service/internal/apierr"
	"github.com/univento/leaderboard-service/internal/handlers"
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/requestdata"
	"github.com/univento/leaderboard-service/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	middlewareLog := log.With("middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLog, authService: authService}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			abortWith(c, apierr.New(http.StatusUnauthorized, "", errors.New("missing or invalid token")))
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			abortWith(c, apierr.New(http.StatusUnauthorized, "", errors.New("invalid token")))
			return
		}
		c.Request = c.Request.WithContext(ctx)
		rd := requestdata.GetRequestData(ctx)
		if rd == nil || rd.UserID == uuid.Nil {
			abortWith(c, apierr.Forbidden("forbidden"))
			return
		}
		c.Next()
	}
}

// RequireRole gates mutation endpoints: the caller must carry one of the
// allowed roles. Runs after RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil {
			abortWith(c, apierr.New(http.StatusUnauthorized, "", errors.New("not authenticated")))
			return
		}
		for _, role := range roles {
			if rd.Role == role {
				c.Next()
				return
			}
		}
		am.log.Debug("Role check failed", "user_id", rd.UserID, "role", rd.Role)
		abortWith(c, apierr.Forbidden("insufficient role"))
	}
}

func abortWith(c *gin.Context, err *apierr.Error) {
	handlers.RespondError(c, err)
	c.Abort()
}

// extractToken accepts the Authorization header or, for EventSource
// clients that cannot set headers, a token query parameter.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	return ""
}
