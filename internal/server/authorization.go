package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/telecomservice/internal/authorization"
)

// authorizeConsumption checks the caller's role grants for a consumption action.
func (s *Server) authorizeConsumption(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		err := s.authzSvc.Authorize(
			c.Request.Context(),
			"user:"+identity.UserID.String(),
			identity.CompanyID.String(),
			authorization.ObjectConsumption,
			action,
		)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
