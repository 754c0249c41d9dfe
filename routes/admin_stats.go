package routes

import (
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type Analytics struct {
	TotalUsers        int64   `json:"total_users"`
	TotalProperties   int64   `json:"total_properties"`
	TotalTransactions int64   `json:"total_transactions"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// ComputeAnalytics counts all users, active listings and successful
// payments with their summed amount.
func ComputeAnalytics(db *gorm.DB) (Analytics, error) {
	var a Analytics
	if err := db.Model(&models.Profile{}).Count(&a.TotalUsers).Error; err != nil {
		return a, err
	}
	if err := db.Model(&models.Property{}).Where("status = ?", models.ListingActive).Count(&a.TotalProperties).Error; err != nil {
		return a, err
	}
	success := db.Model(&models.Transaction{}).Where("status = ?", models.TxSuccess).Session(&gorm.Session{})
	if err := success.Count(&a.TotalTransactions).Error; err != nil {
		return a, err
	}
	if err := success.Select("COALESCE(SUM(amount_kes), 0)").Scan(&a.TotalRevenue).Error; err != nil {
		return a, err
	}
	return a, nil
}

func adminAnalytics(ctx iris.Context) {
	analytics, err := ComputeAnalytics(storage.DB)
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}
	ctx.JSON(analytics)
}

// GET /admin/activity
func AdminActivity(ctx iris.Context) {
	page, perPage := utils.Paging(ctx, 50)

	query := storage.DB.Model(&models.AuditLog{})
	if action := ctx.URLParam("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if adminID := ctx.URLParam("admin_user_id"); adminID != "" {
		query = query.Where("admin_user_id = ?", adminID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	logs := []models.AuditLog{}
	if err := query.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&logs).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.JSONPage(ctx, logs, page, perPage, total)
}
