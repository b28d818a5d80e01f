package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/timecard-io/timecard-api/internal/middleware"
	"github.com/timecard-io/timecard-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func accountFromContext(c *gin.Context) *models.User {
	value, exists := c.Get(middleware.ContextAccountKey)
	if !exists {
		return nil
	}
	account, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return account
}
