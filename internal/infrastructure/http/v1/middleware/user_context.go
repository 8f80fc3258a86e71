// Package middleware provides HTTP middleware for the machshop API.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "machshop/internal/core/context"
)

// HeaderUser carries the operator name for audit trails.
const HeaderUser = "X-User"

// UserContext extracts the operator from the X-User header and adds it to
// the request context. Payment entries, audit rows and processed-by fields
// read it via context.GetUserName.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.GetHeader(HeaderUser))
		if name != "" {
			ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{
				UserID: name,
				Name:   name,
			})
			c.Request = c.Request.WithContext(ctx)
			c.Set("user_name", name)
		}
		c.Next()
	}
}
