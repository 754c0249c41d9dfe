package routes

import (
	"errors"
	"net/http"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// GET /admin/users handled in admin.go (AdminListUsers)

// GET /admin/users/{id} - profile, ban status, allowance, listings and payments
func AdminGetUser(ctx iris.Context) {
	id := ctx.Params().Get("id")

	var user models.Profile
	if err := storage.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(ctx, http.StatusNotFound, "not_found", "user not found")
			return
		}
		utils.InternalError(ctx, err)
		return
	}

	var ban *models.BanEntry
	var entry models.BanEntry
	if res := storage.DB.Limit(1).Find(&entry, "user_id = ?", id); res.Error != nil {
		utils.InternalError(ctx, res.Error)
		return
	} else if res.RowsAffected > 0 {
		ban = &entry
	}

	var allowance *models.ListingAllowance
	var a models.ListingAllowance
	if res := storage.DB.Limit(1).Find(&a, "user_id = ?", id); res.Error != nil {
		utils.InternalError(ctx, res.Error)
		return
	} else if res.RowsAffected > 0 {
		allowance = &a
	}

	properties := []models.Property{}
	if err := storage.DB.Where("owner_id = ?", id).Order("created_at DESC").Limit(50).Find(&properties).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	transactions := []models.Transaction{}
	if err := storage.DB.Where("user_id = ?", id).Order("created_at DESC").Limit(50).Find(&transactions).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"user":                user,
			"ban":                 ban,
			"listing_allowance":   allowance,
			"properties":          properties,
			"recent_transactions": transactions,
		},
	})
}
