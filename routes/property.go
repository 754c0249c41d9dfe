package routes

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/services"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/golog"
	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchCacheTTL is how long a search result page stays in Redis.
var SearchCacheTTL = time.Minute

var listingModes = []string{models.ModeRent, models.ModeSale, models.ModeRentToOwn}

func CreateProperty(ctx iris.Context) {
	var propertyInput CreatePropertyInput
	err := ctx.ReadJSON(&propertyInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !slices.Contains(models.PropertyTypes, propertyInput.PropertyType) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid property type", ctx)
		return
	}
	if !slices.Contains(listingModes, propertyInput.ListingType) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid listing type", ctx)
		return
	}

	userID := ctx.Values().GetString("userID")
	town, county := splitLocation(propertyInput.Location)

	property := models.Property{
		OwnerID:      userID,
		Title:        strings.TrimSpace(propertyInput.Title),
		Description:  propertyInput.Description,
		PropertyType: propertyInput.PropertyType,
		ListingMode:  propertyInput.ListingType,
		RentRateType: propertyInput.RentRateType,
		Currency:     "KES",
		County:       county,
		Town:         town,
		Address:      strings.TrimSpace(propertyInput.Location),
		Bedrooms:     propertyInput.Bedrooms,
		Bathrooms:    propertyInput.Bathrooms,
		Furnished:    propertyInput.Furnished,
		Latitude:     propertyInput.Latitude,
		Longitude:    propertyInput.Longitude,
	}
	price := propertyInput.Price
	if propertyInput.ListingType == models.ModeSale {
		property.SalePrice = &price
	} else {
		property.RentPrice = &price
		if property.RentRateType == "" {
			property.RentRateType = "monthly"
		}
	}
	for i, url := range propertyInput.Images {
		property.Media = append(property.Media, models.PropertyMedia{URL: url, MediaType: "image", SortOrder: i})
	}

	requiresPayment := false
	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		var allowance models.ListingAllowance
		found := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).Limit(1).Find(&allowance)
		if found.Error != nil {
			return found.Error
		}
		hasAllowance := found.RowsAffected > 0
		requiresPayment = hasAllowance && allowance.Exhausted()

		property.Status = models.ListingActive
		if requiresPayment {
			property.Status = models.ListingDraft
		}

		if len(propertyInput.Amenities) > 0 {
			if err := tx.Where("id IN ?", propertyInput.Amenities).Find(&property.Amenities).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&property).Error; err != nil {
			return err
		}

		if hasAllowance && !requiresPayment {
			return tx.Model(&allowance).UpdateColumn("used_listings", gorm.Expr("used_listings + 1")).Error
		}
		return nil
	})
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}

	message := "Property created and published successfully!"
	if requiresPayment {
		message = "Property created as draft. Payment required to publish."
	} else {
		invalidateSearchCache(ctx)
	}
	golog.Infof("listing %s created by %s (status %s)", property.ID, userID, property.Status)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"success":          true,
		"property":         property,
		"requires_payment": requiresPayment,
		"message":          message,
	})
}

type searchPage struct {
	Data []models.Property `json:"data"`
	Meta utils.PageMeta    `json:"meta"`
}

// SearchProperties lists active listings matching the query filters.
func SearchProperties(ctx iris.Context) {
	page, perPage := utils.Paging(ctx, 20)
	filters := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
	}
	for _, k := range []string{"search", "property_type", "listing_mode", "min_price", "max_price", "bedrooms", "location", "furnished"} {
		if v := strings.TrimSpace(ctx.URLParam(k)); v != "" {
			filters[k] = strings.ToLower(v)
		}
	}

	reqCtx := ctx.Request().Context()
	cacheKey := storage.GenerateQueryCacheKey(services.SearchCachePrefix, filters)
	var cached searchPage
	if hit, err := storage.GetCached(reqCtx, cacheKey, &cached); err != nil {
		golog.Warnf("search cache get: %v", err)
	} else if hit {
		ctx.Header("X-Cache", "HIT")
		ctx.JSON(cached)
		return
	}

	query, err := applySearchFilters(storage.DB.Model(&models.Property{}).Where("status = ?", models.ListingActive), filters)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", err.Error(), ctx)
		return
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	properties := []models.Property{}
	err = query.Preload("Media", orderMedia).
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&properties).Error
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}

	result := searchPage{Data: properties, Meta: utils.PageMeta{Page: page, PerPage: perPage, Total: total}}
	if err := storage.SetCached(reqCtx, cacheKey, result, SearchCacheTTL); err != nil {
		golog.Warnf("search cache set: %v", err)
	}
	ctx.Header("X-Cache", "MISS")
	ctx.JSON(result)
}

func applySearchFilters(query *gorm.DB, filters map[string]string) (*gorm.DB, error) {
	if v, ok := filters["search"]; ok {
		like := "%" + v + "%"
		query = query.Where("lower(title) LIKE ? OR lower(description) LIKE ? OR lower(address) LIKE ?", like, like, like)
	}
	if v, ok := filters["property_type"]; ok {
		query = query.Where("property_type = ?", v)
	}
	if v, ok := filters["listing_mode"]; ok {
		query = query.Where("listing_mode = ?", v)
	}
	if v, ok := filters["min_price"]; ok {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.New("min_price must be a number")
		}
		query = query.Where("COALESCE(rent_price, sale_price) >= ?", min)
	}
	if v, ok := filters["max_price"]; ok {
		max, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.New("max_price must be a number")
		}
		query = query.Where("COALESCE(rent_price, sale_price) <= ?", max)
	}
	if v, ok := filters["bedrooms"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("bedrooms must be a whole number")
		}
		query = query.Where("bedrooms >= ?", n)
	}
	if v, ok := filters["location"]; ok {
		like := "%" + v + "%"
		query = query.Where("lower(town) LIKE ? OR lower(county) LIKE ? OR lower(address) LIKE ?", like, like, like)
	}
	if v, ok := filters["furnished"]; ok {
		furnished, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("furnished must be true or false")
		}
		query = query.Where("furnished = ?", furnished)
	}
	return query.Session(&gorm.Session{}), nil
}

func orderMedia(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

// GetProperty returns an active listing. Owners also see their own
// listings in any other status.
func GetProperty(ctx iris.Context) {
	id := ctx.Params().Get("id")

	property := GetPropertyAndAssociationsByPropertyID(id, ctx)
	if property == nil {
		return
	}

	if property.Status != models.ListingActive && property.OwnerID != ctx.Values().GetString("userID") {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
		return
	}

	var owner *models.ProfileSummary
	if property.Owner != nil {
		s := property.Owner.Summary()
		owner = &s
	}
	ctx.JSON(iris.Map{"property": property, "owner": owner})
}

func GetMyProperties(ctx iris.Context) {
	userID := ctx.Values().GetString("userID")
	page, perPage := utils.Paging(ctx, 20)

	query := storage.DB.Model(&models.Property{}).Where("owner_id = ?", userID)
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	properties := []models.Property{}
	if err := query.Preload("Media", orderMedia).Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).Find(&properties).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.JSONPage(ctx, properties, page, perPage, total)
}

func UpdatePropertyStatus(ctx iris.Context) {
	id := ctx.Params().Get("id")
	userID := ctx.Values().GetString("userID")

	var input UpdatePropertyStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var property models.Property
	if err := storage.DB.First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
			return
		}
		utils.InternalError(ctx, err)
		return
	}
	if property.OwnerID != userID {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "You do not own this listing", ctx)
		return
	}
	if !property.CanOwnerMoveTo(input.Status) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			"Cannot change status from "+property.Status+" to "+input.Status, ctx)
		return
	}

	from := property.Status
	if err := storage.DB.Model(&property).Update("status", input.Status).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	property.Status = input.Status
	invalidateSearchCache(ctx)
	golog.Infof("listing %s moved %s -> %s by owner", property.ID, from, input.Status)

	ctx.JSON(iris.Map{"success": true, "property": property})
}

func DeleteProperty(ctx iris.Context) {
	id := ctx.Params().Get("id")
	userID := ctx.Values().GetString("userID")

	var property models.Property
	propertyExists := storage.DB.Limit(1).Find(&property, "id = ?", id)
	if propertyExists.Error != nil {
		utils.InternalError(ctx, propertyExists.Error)
		return
	}
	if propertyExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}
	if property.OwnerID != userID {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "You do not own this listing", ctx)
		return
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyMedia{}).Error; err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyAmenity{}).Error; err != nil {
			return err
		}
		return tx.Delete(&property).Error
	})
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}
	if property.Status == models.ListingActive {
		invalidateSearchCache(ctx)
	}
	ctx.StatusCode(iris.StatusNoContent)
}

func GetPropertyAndAssociationsByPropertyID(id string, ctx iris.Context) *models.Property {
	var property models.Property
	propertyExists := storage.DB.Preload("Owner").
		Preload("Media", orderMedia).
		Preload("Amenities").
		Limit(1).
		Find(&property, "id = ?", id)

	if propertyExists.Error != nil {
		utils.InternalError(ctx, propertyExists.Error)
		return nil
	}
	if propertyExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
		return nil
	}
	return &property
}

func GetAmenities(ctx iris.Context) {
	amenities := []models.Amenity{}
	if err := storage.DB.Order("name ASC").Find(&amenities).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	ctx.JSON(amenities)
}

func GetListingFee(ctx iris.Context) {
	var fee models.ListingFee
	res := storage.DB.Limit(1).Find(&fee, models.ListingFeeRowID)
	if res.Error != nil {
		utils.InternalError(ctx, res.Error)
		return
	}
	ctx.JSON(iris.Map{"amount": fee.Amount, "currency": "KES", "updated_at": fee.UpdatedAt})
}

// splitLocation reads "Town, County"; a location without a comma is used for both.
func splitLocation(location string) (town, county string) {
	location = strings.TrimSpace(location)
	parts := strings.Split(location, ",")
	town, county = location, location
	if t := strings.TrimSpace(parts[0]); t != "" {
		town = t
	}
	if len(parts) > 1 {
		if c := strings.TrimSpace(parts[1]); c != "" {
			county = c
		}
	}
	return town, county
}

func invalidateSearchCache(ctx iris.Context) {
	if err := storage.InvalidatePrefix(ctx.Request().Context(), services.SearchCachePrefix); err != nil {
		golog.Warnf("invalidate search cache: %v", err)
	}
}

type CreatePropertyInput struct {
	Title        string   `json:"title" validate:"required,max=256"`
	Description  string   `json:"description" validate:"max=10000"`
	PropertyType string   `json:"property_type" validate:"required"`
	ListingType  string   `json:"listing_type" validate:"required"`
	Price        float64  `json:"price" validate:"required,gt=0"`
	RentRateType string   `json:"rent_rate_type" validate:"omitempty,oneof=nightly weekly monthly yearly"`
	Location     string   `json:"location" validate:"required,max=512"`
	Bedrooms     *int     `json:"bedrooms" validate:"omitempty,gte=0,lte=100"`
	Bathrooms    *int     `json:"bathrooms" validate:"omitempty,gte=0,lte=100"`
	Furnished    bool     `json:"furnished"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Amenities    []string `json:"amenities" validate:"max=50"`
	Images       []string `json:"images" validate:"max=30,dive,required,url"`
}

type UpdatePropertyStatusInput struct {
	Status string `json:"status" validate:"required"`
}
