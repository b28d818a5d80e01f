package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timecard-io/timecard-api/internal/models"
	"github.com/timecard-io/timecard-api/internal/service"
	appErrors "github.com/timecard-io/timecard-api/pkg/errors"
	"github.com/timecard-io/timecard-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// ContextAccountKey is the gin context key storing the loaded user record.
const ContextAccountKey = "currentAccount"

// JWT protects routes by requiring a valid access token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CurrentUser resolves the token's subject to a user record. Access scope
// depends on department code, which lives in the database rather than the
// token, so every protected request loads the account.
func CurrentUser(users userFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		account, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists"))
			c.Abort()
			return
		}
		if !account.Active {
			response.Error(c, appErrors.ErrInactiveAccount)
			c.Abort()
			return
		}

		c.Set(ContextAccountKey, account)
		c.Next()
	}
}
