package routes

import (
	"errors"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type CreateReviewRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

type ReviewResponse struct {
	ID        string                `json:"id"`
	Rating    int                   `json:"rating"`
	Comment   string                `json:"comment"`
	CreatedAt time.Time             `json:"created_at"`
	Reviewer  models.ProfileSummary `json:"reviewer"`
}

// CreateReview lets the renter of a completed booking review the property once.
func CreateReview(ctx iris.Context) {
	var input CreateReviewRequest
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	userID := ctx.Values().GetString("userID")

	var booking models.Booking
	if err := storage.DB.First(&booking, "id = ?", input.BookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Booking not found", ctx)
			return
		}
		utils.InternalError(ctx, err)
		return
	}
	if booking.RenterID != userID {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "Only the renter can review this booking", ctx)
		return
	}
	if booking.Status != models.BookingCompleted {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Only completed bookings can be reviewed", ctx)
		return
	}

	var existing int64
	if err := storage.DB.Model(&models.Review{}).Where("booking_id = ?", booking.ID).Count(&existing).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	if existing > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "This booking has already been reviewed", ctx)
		return
	}

	review := models.Review{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		ReviewerID: userID,
		Rating:     input.Rating,
		Comment:    input.Comment,
	}
	if err := storage.DB.Create(&review).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(review)
}

// GetPropertyReviews returns the reviews of a property with its average rating.
func GetPropertyReviews(ctx iris.Context) {
	propertyID := ctx.Params().Get("id")

	var reviews []models.Review
	if err := storage.DB.Preload("Reviewer").
		Where("property_id = ?", propertyID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}

	out := make([]ReviewResponse, 0, len(reviews))
	total := 0
	for _, r := range reviews {
		resp := ReviewResponse{ID: r.ID, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt}
		if r.Reviewer != nil {
			resp.Reviewer = r.Reviewer.Summary()
		}
		total += r.Rating
		out = append(out, resp)
	}
	avgRating := 0.0
	if len(reviews) > 0 {
		avgRating = float64(total) / float64(len(reviews))
	}

	ctx.JSON(iris.Map{
		"reviews":        out,
		"average_rating": avgRating,
		"count":          len(reviews),
	})
}
