package routes

import (
	"errors"
	"math"
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
)

var (
	ownerBookingStatuses  = []string{models.BookingConfirmed, models.BookingRejected, models.BookingCompleted}
	renterBookingStatuses = []string{models.BookingCancelled}
)

func CreateBooking(ctx iris.Context) {
	var input CreateBookingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	userID := ctx.Values().GetString("userID")

	booking := models.Booking{
		PropertyID:  input.PropertyID,
		RenterID:    userID,
		BookingType: input.BookingType,
		Message:     utils.NilIfEmpty(strings.TrimSpace(input.Message)),
		Guests:      input.Guests,
		Status:      models.BookingPending,
		Currency:    "KES",
	}
	if booking.Guests <= 0 {
		booking.Guests = 1
	}

	switch input.BookingType {
	case models.BookingRental:
		if input.StartDate == "" || input.EndDate == "" {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Start date and end date required for rental bookings", ctx)
			return
		}
		start, err := parseDate(input.StartDate)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid start_date", ctx)
			return
		}
		end, err := parseDate(input.EndDate)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid end_date", ctx)
			return
		}
		if !end.After(start) {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "End date must be after start date", ctx)
			return
		}
		booking.StartDate, booking.EndDate = &start, &end
	case models.BookingViewing:
		if input.ViewingDate == "" {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Viewing date required for viewing bookings", ctx)
			return
		}
		viewing, err := parseDate(input.ViewingDate)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid viewing_date", ctx)
			return
		}
		booking.ViewingDate = &viewing
	default:
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid booking type", ctx)
		return
	}

	var property models.Property
	if err := storage.DB.First(&property, "id = ?", input.PropertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
			return
		}
		utils.InternalError(ctx, err)
		return
	}
	if property.OwnerID == userID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Cannot book your own property", ctx)
		return
	}

	if booking.BookingType == models.BookingRental {
		booking.TotalAmount = RentalTotal(property.Price(), *booking.StartDate, *booking.EndDate)
	}

	if err := storage.DB.Create(&booking).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	booking.Property = &property

	golog.Infof("new %s booking %s for property %s", booking.BookingType, booking.ID, property.ID)
	services.Publish(ctx.Request().Context(), services.EventBookingCreated, services.BookingCreated{
		BookingID:   booking.ID,
		PropertyID:  property.ID,
		Title:       property.Title,
		RenterID:    userID,
		OwnerID:     property.OwnerID,
		BookingType: booking.BookingType,
		TotalAmount: booking.TotalAmount,
	})

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"success": true,
		"booking": booking,
		"message": "Booking request sent successfully",
	})
}

// RentalTotal charges price for every started day between start and end.
func RentalTotal(price float64, start, end time.Time) float64 {
	days := math.Ceil(end.Sub(start).Hours() / 24)
	return price * days
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// GetMyBookings lists the caller's bookings as a renter.
func GetMyBookings(ctx iris.Context) {
	listBookings(ctx, storage.DB.Model(&models.Booking{}).Where("renter_id = ?", ctx.Values().GetString("userID")))
}

// GetHostingBookings lists bookings made on the caller's properties.
func GetHostingBookings(ctx iris.Context) {
	owned := storage.DB.Model(&models.Property{}).Select("id").Where("owner_id = ?", ctx.Values().GetString("userID"))
	listBookings(ctx, storage.DB.Model(&models.Booking{}).Where("property_id IN (?)", owned))
}

func listBookings(ctx iris.Context, query *gorm.DB) {
	page, perPage := utils.Paging(ctx, 20)
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	bookings := []models.Booking{}
	if err := query.Preload("Property").Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).Find(&bookings).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.JSONPage(ctx, bookings, page, perPage, total)
}

func UpdateBookingStatus(ctx iris.Context) {
	id := ctx.Params().Get("id")
	userID := ctx.Values().GetString("userID")

	var input UpdateBookingStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var booking models.Booking
	if err := storage.DB.Preload("Property").First(&booking, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Booking not found", ctx)
			return
		}
		utils.InternalError(ctx, err)
		return
	}

	isOwner := booking.Property != nil && booking.Property.OwnerID == userID
	isRenter := booking.RenterID == userID
	switch {
	case isOwner && slices.Contains(ownerBookingStatuses, input.Status):
	case isRenter && slices.Contains(renterBookingStatuses, input.Status):
	case !isOwner && !isRenter:
		utils.CreateError(iris.StatusForbidden, "Forbidden", "Not your booking", ctx)
		return
	default:
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Status not allowed", ctx)
		return
	}

	if !booking.Open() || !bookingTransitionAllowed(booking.Status, input.Status) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			"Cannot change booking from "+booking.Status+" to "+input.Status, ctx)
		return
	}

	from := booking.Status
	if err := storage.DB.Model(&booking).Update("status", input.Status).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	booking.Status = input.Status

	services.Publish(ctx.Request().Context(), services.EventBookingStatusChanged, services.BookingStatusChanged{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		RenterID:   booking.RenterID,
		OwnerID:    booking.Property.OwnerID,
		From:       from,
		To:         booking.Status,
	})
	ctx.JSON(iris.Map{"success": true, "booking": booking})
}

// A booking is confirmed or rejected while pending, completed once confirmed
// and cancelled from either.
func bookingTransitionAllowed(from, to string) bool {
	switch to {
	case models.BookingConfirmed, models.BookingRejected:
		return from == models.BookingPending
	case models.BookingCompleted:
		return from == models.BookingConfirmed
	case models.BookingCancelled:
		return from == models.BookingPending || from == models.BookingConfirmed
	}
	return false
}

type CreateBookingInput struct {
	PropertyID  string `json:"property_id" validate:"required"`
	BookingType string `json:"booking_type" validate:"required"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	ViewingDate string `json:"viewing_date"`
	Message     string `json:"message" validate:"max=2000"`
	Guests      int    `json:"guests" validate:"gte=0,lte=50"`
}

type UpdateBookingStatusInput struct {
	Status string `json:"status" validate:"required"`
}
