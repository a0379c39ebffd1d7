package utils

import (
	"skyport-server/models"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/exp/slices"
)

// UserIDFromTokenMiddleware extracts the caller's ID from the JWT and stores
// it in the request context for downstream handlers.
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// RequireRoles gates a route to a closed set of roles. Role comes from the
// signed access token, never from request input.
func RequireRoles(roles ...models.Role) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*AccessToken)
		if !slices.Contains(roles, claims.Role) {
			CreateForbidden(ctx)
			return
		}
		ctx.Values().Set("userID", claims.ID)
		ctx.Next()
	}
}

func SenderOnlyMiddleware(ctx iris.Context)  { RequireRoles(models.RoleSender)(ctx) }
func CarrierOnlyMiddleware(ctx iris.Context) { RequireRoles(models.RoleCarrier)(ctx) }
func AgentOnlyMiddleware(ctx iris.Context)   { RequireRoles(models.RoleAgent)(ctx) }
