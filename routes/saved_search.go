package routes

import (
	"encoding/json"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
)

func CreateSavedSearch(ctx iris.Context) {
	var input SavedSearchInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	filters, err := json.Marshal(input.Filters)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid filters", ctx)
		return
	}

	search := models.SavedSearch{
		UserID:  ctx.Values().GetString("userID"),
		Name:    input.Name,
		Filters: datatypes.JSON(filters),
	}
	if err := storage.DB.Create(&search).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(search)
}

func GetSavedSearches(ctx iris.Context) {
	searches := []models.SavedSearch{}
	err := storage.DB.Where("user_id = ?", ctx.Values().GetString("userID")).
		Order("created_at DESC").Find(&searches).Error
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}
	ctx.JSON(searches)
}

func DeleteSavedSearch(ctx iris.Context) {
	res := storage.DB.Where("id = ? AND user_id = ?", ctx.Params().Get("id"), ctx.Values().GetString("userID")).
		Delete(&models.SavedSearch{})
	if res.Error != nil {
		utils.InternalError(ctx, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.StatusCode(iris.StatusNoContent)
}

type SavedSearchInput struct {
	Name    string            `json:"name" validate:"required,max=128"`
	Filters map[string]string `json:"filters" validate:"required"`
}
