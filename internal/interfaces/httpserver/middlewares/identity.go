package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"qc-vision/backend/internal/domain/identity"
	"qc-vision/backend/internal/domain/user"
)

const userHeader = "X-User"

// Identity resolves the X-User header into a principal, provisioning a
// user row on first sight. Requests without the header (or with a
// malformed one) proceed unauthenticated; endpoints that need an identity
// enforce it themselves.
func Identity(users *user.Service, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader(userHeader)
		if username == "" {
			c.Next()
			return
		}

		u, err := users.Resolve(c.Request.Context(), username)
		if err != nil {
			log.Debug().Err(err).Str("username", username).Msg("could not resolve request identity")
			c.Next()
			return
		}

		ctx := identity.WithPrincipal(c.Request.Context(), u.Principal())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
