package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/golog"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ActionBanUser          = "ban_user"
	ActionUnbanUser        = "unban_user"
	ActionUpdateListingFee = "update_listing_fee"
	ActionRemoveListing    = "remove_listing"
	ActionGetAnalytics     = "get_analytics"
)

type AdminActionInput struct {
	Action string          `json:"action" validate:"required"`
	Data   json.RawMessage `json:"data"`
}

type banUserData struct {
	UserID      string `json:"user_id"`
	Reason      string `json:"reason"`
	PhoneNumber string `json:"phone_number"`
}

type unbanUserData struct {
	UnbanUserID string `json:"unban_user_id"`
}

type listingFeeData struct {
	NewFee flexFloat `json:"new_fee"`
}

type removeListingData struct {
	ListingID     string `json:"listing_id"`
	RemovalReason string `json:"removal_reason"`
}

// flexFloat accepts 1500, 1500.5 and "1500".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 {
		return errors.New("empty number")
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// AdminAction - POST /admin/actions {action, data}
func AdminAction(ctx iris.Context) {
	var input AdminActionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	switch input.Action {
	case ActionBanUser:
		adminBanUser(ctx, input.Data)
	case ActionUnbanUser:
		adminUnbanUser(ctx, input.Data)
	case ActionUpdateListingFee:
		adminUpdateListingFee(ctx, input.Data)
	case ActionRemoveListing:
		adminRemoveListing(ctx, input.Data)
	case ActionGetAnalytics:
		adminAnalytics(ctx)
	default:
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid action", ctx)
	}
}

// decodeActionData answers 400 itself and returns false on a bad payload.
func decodeActionData(ctx iris.Context, raw json.RawMessage, dest interface{}) bool {
	if len(raw) == 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Missing required fields", ctx)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid action data", ctx)
		return false
	}
	return true
}

func adminBanUser(ctx iris.Context, raw json.RawMessage) {
	var data banUserData
	if !decodeActionData(ctx, raw, &data) {
		return
	}
	if data.UserID == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Missing required fields", ctx)
		return
	}
	adminID := ctx.Values().GetString("userID")
	if data.UserID == adminID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Cannot ban yourself", ctx)
		return
	}

	var user models.Profile
	if err := storage.DB.First(&user, "id = ?", data.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "User not found", ctx)
			return
		}
		utils.InternalError(ctx, err)
		return
	}

	phone := data.PhoneNumber
	if phone == "" {
		phone = user.PhoneNumber
	}
	entry := models.BanEntry{
		UserID:      user.ID,
		PhoneNumber: utils.NormalizePhoneNumber(phone),
		Reason:      data.Reason,
		BannedBy:    adminID,
	}

	var deactivated int64
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.BanEntry{}).Where("user_id = ?", user.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errAlreadyBanned
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Property{}).
			Where("owner_id = ? AND status <> ?", user.ID, models.ListingRemoved).
			Update("status", models.ListingInactive)
		deactivated = res.RowsAffected
		return res.Error
	})
	if errors.Is(err, errAlreadyBanned) {
		utils.CreateError(iris.StatusConflict, "Conflict", "User is already banned", ctx)
		return
	}
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}

	invalidateSearchCache(ctx)
	utils.Audit(ctx, "user.ban", "user", user.ID, nil, iris.Map{"ban": entry, "listings_deactivated": deactivated})
	golog.Infof("admin %s banned user %s (%d listings deactivated)", adminID, user.ID, deactivated)
	ctx.JSON(iris.Map{"success": true, "message": "User banned successfully"})
}

var errAlreadyBanned = errors.New("user already banned")

func adminUnbanUser(ctx iris.Context, raw json.RawMessage) {
	var data unbanUserData
	if !decodeActionData(ctx, raw, &data) {
		return
	}
	if data.UnbanUserID == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Missing required fields", ctx)
		return
	}

	var entry models.BanEntry
	res := storage.DB.Limit(1).Find(&entry, "user_id = ?", data.UnbanUserID)
	if res.Error != nil {
		utils.InternalError(ctx, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "User is not banned", ctx)
		return
	}
	if err := storage.DB.Delete(&entry).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	utils.Audit(ctx, "user.unban", "user", data.UnbanUserID, entry, nil)
	ctx.JSON(iris.Map{"success": true, "message": "User unbanned successfully"})
}

func adminUpdateListingFee(ctx iris.Context, raw json.RawMessage) {
	var data listingFeeData
	if !decodeActionData(ctx, raw, &data) {
		return
	}
	if data.NewFee <= 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Listing fee must be greater than zero", ctx)
		return
	}

	var before models.ListingFee
	if err := storage.DB.Limit(1).Find(&before, models.ListingFeeRowID).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	fee := models.ListingFee{ID: models.ListingFeeRowID, Amount: float64(data.NewFee), UpdatedAt: time.Now()}
	err := storage.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&fee).Error
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}

	utils.Audit(ctx, "listing_fee.update", "listing_fee", strconv.Itoa(models.ListingFeeRowID), before, fee)
	ctx.JSON(iris.Map{"success": true, "message": "Listing fee updated successfully", "amount": fee.Amount})
}

func adminRemoveListing(ctx iris.Context, raw json.RawMessage) {
	var data removeListingData
	if !decodeActionData(ctx, raw, &data) {
		return
	}
	if data.ListingID == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Missing required fields", ctx)
		return
	}

	var property models.Property
	if err := storage.DB.First(&property, "id = ?", data.ListingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
			return
		}
		utils.InternalError(ctx, err)
		return
	}

	before := iris.Map{"status": property.Status, "removal_reason": property.RemovalReason}
	if err := storage.DB.Model(&property).Updates(map[string]interface{}{
		"status":         models.ListingRemoved,
		"removal_reason": strings.TrimSpace(data.RemovalReason),
	}).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	invalidateSearchCache(ctx)
	utils.Audit(ctx, "property.remove", "property", property.ID, before,
		iris.Map{"status": models.ListingRemoved, "removal_reason": data.RemovalReason})
	ctx.JSON(iris.Map{"success": true, "message": "Listing removed successfully"})
}

// ListUsers - GET /admin/users?role=&q=&banned=&page=&per_page=
func AdminListUsers(ctx iris.Context) {
	page, perPage := utils.Paging(ctx, 25)

	q := strings.TrimSpace(ctx.URLParamDefault("q", ""))
	role := strings.TrimSpace(ctx.URLParamDefault("role", ""))

	query := storage.DB.Model(&models.Profile{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("lower(full_name) LIKE ? OR lower(email) LIKE ? OR phone_number LIKE ?", like, like, like)
	}
	if banned, err := strconv.ParseBool(ctx.URLParam("banned")); err == nil {
		bannedIDs := storage.DB.Model(&models.BanEntry{}).Select("user_id")
		if banned {
			query = query.Where("id IN (?)", bannedIDs)
		} else {
			query = query.Where("id NOT IN (?)", bannedIDs)
		}
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	users := []models.Profile{}
	if err := query.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&users).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.JSONPage(ctx, users, page, perPage, total)
}
