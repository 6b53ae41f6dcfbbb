package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/urjc-apps/checkin-api/internal/middleware"
	"github.com/urjc-apps/checkin-api/internal/models"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
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

// pathID parses a numeric path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

// feedParams reads the shared cursor query parameters. A missing or
// malformed cursor reads as 0, which bootstraps the feed.
func feedParams(c *gin.Context) (cursor int64, older bool) {
	cursor, _ = strconv.ParseInt(c.Query("cursor"), 10, 64)
	older = c.Query("direction") == "older"
	return cursor, older
}
