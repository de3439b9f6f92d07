package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/joy095/property-booking/utils/jwt_parse"
)

const (
	RoleAdmin = "admin"

	actorIDKey = "actor_id"
)

// AdminMiddleware admits only bearer tokens signed with secret that carry
// role=admin. The token subject is stored as the actor id.
func AdminMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := jwt_parse.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			logger.WarnLogger.Warnf("Admin request to %s rejected: %v", c.FullPath(), err)
			apperr.Respond(c, apperr.Unauthorized("UNAUTHORIZED", "Missing or malformed authorization token"))
			return
		}

		claims, err := jwt_parse.ParseClaims(tokenString, secret)
		if err != nil {
			logger.WarnLogger.Warnf("Admin request to %s rejected: %v", c.FullPath(), err)
			apperr.Respond(c, apperr.Unauthorized("INVALID_TOKEN", "Invalid token"))
			return
		}

		actorID := jwt_parse.Subject(claims)
		if actorID == "" {
			apperr.Respond(c, apperr.Unauthorized("INVALID_TOKEN", "Token has no subject"))
			return
		}

		if role, _ := claims["role"].(string); role != RoleAdmin {
			logger.WarnLogger.Warnf("User %s lacks admin role for %s", actorID, c.FullPath())
			apperr.Respond(c, apperr.Forbidden("FORBIDDEN", "Admin access required"))
			return
		}

		c.Set(actorIDKey, actorID)
		c.Next()
	}
}

// ActorID returns the authenticated admin's id, or "" outside AdminMiddleware.
func ActorID(c *gin.Context) string {
	return c.GetString(actorIDKey)
}
