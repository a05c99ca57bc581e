package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-links-api/internal/middleware"
	"github.com/noah-isme/compliance-links-api/internal/models"
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

// operatorFromContext returns the zero Operator for anonymous requests.
func operatorFromContext(c *gin.Context) models.Operator {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Operator{}
	}
	return claims.Operator()
}

func requestContext(c *gin.Context) models.RequestContext {
	return models.RequestContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
