package routes

import (
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
)

type statusCount struct {
	Status string
	Count  int64
}

// GetDashboard summarises the caller's listings, bookings and conversations.
func GetDashboard(ctx iris.Context) {
	userID := ctx.Values().GetString("userID")

	var rows []statusCount
	if err := storage.DB.Model(&models.Property{}).
		Select("status, COUNT(*) AS count").
		Where("owner_id = ?", userID).
		Group("status").Scan(&rows).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	byStatus := map[string]int64{}
	var totalProperties int64
	for _, r := range rows {
		byStatus[r.Status] = r.Count
		totalProperties += r.Count
	}

	owned := storage.DB.Model(&models.Property{}).Select("id").Where("owner_id = ?", userID)

	var bookingsMade, bookingsReceived, pendingReceived, conversations int64
	if err := storage.DB.Model(&models.Booking{}).Where("renter_id = ?", userID).Count(&bookingsMade).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	if err := storage.DB.Model(&models.Booking{}).Where("property_id IN (?)", owned).Count(&bookingsReceived).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	if err := storage.DB.Model(&models.Booking{}).Where("property_id IN (?) AND status = ?", owned, models.BookingPending).Count(&pendingReceived).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	if err := storage.DB.Model(&models.Conversation{}).Where("participant_a = ? OR participant_b = ?", userID, userID).Count(&conversations).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	var avgRating float64
	if err := storage.DB.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0)").
		Where("property_id IN (?)", owned).
		Scan(&avgRating).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{
		"properties": iris.Map{
			"total":     totalProperties,
			"by_status": byStatus,
		},
		"bookings_made":             bookingsMade,
		"bookings_received":         bookingsReceived,
		"pending_bookings_received": pendingReceived,
		"conversations":             conversations,
		"average_rating":            avgRating,
	})
}
