package routes

import (
	"strings"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// GET /admin/properties
func AdminListProperties(ctx iris.Context) {
	page, perPage := utils.Paging(ctx, 25)

	status := ctx.URLParamDefault("status", "")
	search := strings.TrimSpace(ctx.URLParamDefault("search", ""))
	ownerID := ctx.URLParamDefault("owner_id", "")
	location := strings.TrimSpace(ctx.URLParamDefault("location", ""))
	createdFrom := ctx.URLParamDefault("created_from", "")
	createdTo := ctx.URLParamDefault("created_to", "")

	q := storage.DB.Model(&models.Property{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("lower(title) LIKE ? OR lower(description) LIKE ? OR lower(address) LIKE ?", like, like, like)
	}
	if location != "" {
		l := strings.ToLower(location)
		q = q.Where("lower(town) = ? OR lower(county) = ?", l, l)
	}
	if createdFrom != "" {
		if t, err := time.Parse(time.RFC3339, createdFrom); err == nil {
			q = q.Where("created_at >= ?", t)
		}
	}
	if createdTo != "" {
		if t, err := time.Parse(time.RFC3339, createdTo); err == nil {
			q = q.Where("created_at <= ?", t)
		}
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	props := []models.Property{}
	if err := q.Offset((page - 1) * perPage).Limit(perPage).Order("created_at DESC").Find(&props).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.JSONPage(ctx, props, page, perPage, total)
}
