package utils

import (
	"encoding/json"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/kataras/golog"
	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
)

func Audit(ctx iris.Context, action, resourceType, resourceID string, before interface{}, after interface{}) {
	entry := models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Before:       snapshot(before),
		After:        snapshot(after),
		IPAddress:    clientIP(ctx),
	}
	if claims := CurrentUser(ctx); claims != nil {
		entry.AdminUserID = claims.ID
	}
	if err := storage.DB.Create(&entry).Error; err != nil {
		golog.Errorf("audit %s %s/%s: %v", action, resourceType, resourceID, err)
	}
}

func snapshot(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func clientIP(ctx iris.Context) string {
	if ip := ctx.GetHeader("X-Forwarded-For"); ip != "" {
		return ip
	}
	return ctx.RemoteAddr()
}
