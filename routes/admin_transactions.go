package routes

import (
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// GET /admin/transactions?status=&user_id=&property_id=
func AdminListTransactions(ctx iris.Context) {
	page, perPage := utils.Paging(ctx, 25)

	q := storage.DB.Model(&models.Transaction{})
	for _, col := range []string{"status", "user_id", "property_id"} {
		if v := ctx.URLParam(col); v != "" {
			q = q.Where(col+" = ?", v)
		}
	}
	if receipt := ctx.URLParam("receipt_no"); receipt != "" {
		q = q.Where("receipt_no = ?", receipt)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	txs := []models.Transaction{}
	if err := q.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&txs).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.JSONPage(ctx, txs, page, perPage, total)
}
