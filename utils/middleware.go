package utils

import (
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
)

// UserIDFromTokenMiddleware stores the caller's ID in the context values as "userID".
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := CurrentUser(ctx)
	if claims == nil || claims.ID == "" {
		CreateError(iris.StatusUnauthorized, "Unauthorized", "Unauthorized", ctx)
		return
	}
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// RoleMiddleware lets through only callers whose token carries one of roles.
func RoleMiddleware(roles ...string) iris.Handler {
	return func(ctx iris.Context) {
		claims := CurrentUser(ctx)
		if claims == nil || !slices.Contains(roles, claims.Role) {
			JSONError(ctx, iris.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		ctx.Next()
	}
}

// AdminOnlyMiddleware ensures the requester has the admin role.
func AdminOnlyMiddleware(ctx iris.Context) {
	claims := CurrentUser(ctx)
	if claims == nil || claims.Role != models.RoleAdmin {
		JSONError(ctx, iris.StatusForbidden, "forbidden", "Admin access required")
		return
	}
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// NotBannedMiddleware rejects callers present in the ban list.
func NotBannedMiddleware(ctx iris.Context) {
	claims := CurrentUser(ctx)
	if claims == nil {
		CreateError(iris.StatusUnauthorized, "Unauthorized", "Unauthorized", ctx)
		return
	}
	var n int64
	if err := storage.DB.Model(&models.BanEntry{}).Where("user_id = ?", claims.ID).Count(&n).Error; err != nil {
		InternalError(ctx, err)
		return
	}
	if n > 0 {
		JSONError(ctx, iris.StatusForbidden, "banned", "Account is banned")
		return
	}
	ctx.Next()
}
