package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// GET /admin/reviews?property_id=&rating=&page=&per_page=
func AdminListReviews(ctx iris.Context) {
	page, perPage := utils.Paging(ctx, 25)

	q := storage.DB.Model(&models.Review{})
	if propertyID := ctx.URLParam("property_id"); propertyID != "" {
		q = q.Where("property_id = ?", propertyID)
	}
	if r, err := strconv.Atoi(ctx.URLParam("rating")); err == nil {
		q = q.Where("rating = ?", r)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	items := []models.Review{}
	if err := q.Offset((page - 1) * perPage).Limit(perPage).Order("created_at DESC").Find(&items).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.JSONPage(ctx, items, page, perPage, total)
}

// DELETE /admin/reviews/{id}
func AdminDeleteReview(ctx iris.Context) {
	var rev models.Review
	if err := storage.DB.First(&rev, "id = ?", ctx.Params().Get("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(ctx, http.StatusNotFound, "not_found", "review not found")
			return
		}
		utils.InternalError(ctx, err)
		return
	}
	if err := storage.DB.Delete(&rev).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.Audit(ctx, "review.delete", "review", rev.ID, rev, nil)
	ctx.StatusCode(http.StatusNoContent)
}
