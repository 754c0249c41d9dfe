package routes

import (
	"net/http"
	"testing"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentalTotal(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		end  time.Time
		want float64
	}{
		{"one night", start.AddDate(0, 0, 1), 3000},
		{"five nights", start.AddDate(0, 0, 5), 15000},
		{"partial day rounds up", start.Add(26 * time.Hour), 6000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RentalTotal(3000, start, tt.end))
		})
	}
}

func TestCreateRentalBooking(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	renter := createTestUser(t, models.RoleTenant)
	property := createTestProperty(t, owner.ID, models.ListingActive)

	rec := doRequest(t, app, http.MethodPost, "/api/bookings", tokenFor(t, renter), map[string]interface{}{
		"property_id":  property.ID,
		"booking_type": models.BookingRental,
		"start_date":   "2025-06-01",
		"end_date":     "2025-06-04",
		"message":      "Arriving in the evening",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	booking := decodeBody(t, rec)["booking"].(map[string]interface{})
	assert.Equal(t, models.BookingPending, booking["status"])
	assert.Equal(t, *property.RentPrice*3, booking["total_amount"])
	assert.Equal(t, float64(1), booking["guests"])
}

func TestCreateViewingBooking(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	renter := createTestUser(t, models.RoleTenant)
	property := createTestProperty(t, owner.ID, models.ListingActive)

	rec := doRequest(t, app, http.MethodPost, "/api/bookings", tokenFor(t, renter), map[string]interface{}{
		"property_id":  property.ID,
		"booking_type": models.BookingViewing,
		"viewing_date": "2025-06-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(0), decodeBody(t, rec)["booking"].(map[string]interface{})["total_amount"])
}

func TestCreateBookingValidation(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	renter := createTestUser(t, models.RoleTenant)
	property := createTestProperty(t, owner.ID, models.ListingActive)

	tests := []struct {
		name   string
		token  string
		body   map[string]interface{}
		status int
	}{
		{"rental without dates", tokenFor(t, renter), map[string]interface{}{
			"property_id": property.ID, "booking_type": models.BookingRental,
		}, http.StatusBadRequest},
		{"end before start", tokenFor(t, renter), map[string]interface{}{
			"property_id": property.ID, "booking_type": models.BookingRental,
			"start_date": "2025-06-04", "end_date": "2025-06-01",
		}, http.StatusBadRequest},
		{"viewing without date", tokenFor(t, renter), map[string]interface{}{
			"property_id": property.ID, "booking_type": models.BookingViewing,
		}, http.StatusBadRequest},
		{"unknown type", tokenFor(t, renter), map[string]interface{}{
			"property_id": property.ID, "booking_type": "purchase",
		}, http.StatusBadRequest},
		{"own property", tokenFor(t, owner), map[string]interface{}{
			"property_id": property.ID, "booking_type": models.BookingViewing, "viewing_date": "2025-06-01",
		}, http.StatusBadRequest},
		{"missing property", tokenFor(t, renter), map[string]interface{}{
			"property_id": "missing", "booking_type": models.BookingViewing, "viewing_date": "2025-06-01",
		}, http.StatusNotFound},
		{"anonymous", "", map[string]interface{}{
			"property_id": property.ID, "booking_type": models.BookingViewing, "viewing_date": "2025-06-01",
		}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, app, http.MethodPost, "/api/bookings", tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	var n int64
	storage.DB.Model(&models.Booking{}).Count(&n)
	assert.Zero(t, n)
}

func TestBookingLists(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	renter := createTestUser(t, models.RoleTenant)
	property := createTestProperty(t, owner.ID, models.ListingActive)
	require.NoError(t, storage.DB.Create(&models.Booking{
		PropertyID: property.ID, RenterID: renter.ID, BookingType: models.BookingViewing, Status: models.BookingPending,
	}).Error)

	rec := doRequest(t, app, http.MethodGet, "/api/bookings", tokenFor(t, renter), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	rec = doRequest(t, app, http.MethodGet, "/api/bookings/hosting", tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	rec = doRequest(t, app, http.MethodGet, "/api/bookings", tokenFor(t, owner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 0)
}

func TestUpdateBookingStatus(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	renter := createTestUser(t, models.RoleTenant)
	stranger := createTestUser(t, models.RoleTenant)
	property := createTestProperty(t, owner.ID, models.ListingActive)
	booking := models.Booking{
		PropertyID: property.ID, RenterID: renter.ID, BookingType: models.BookingViewing, Status: models.BookingPending,
	}
	require.NoError(t, storage.DB.Create(&booking).Error)
	path := "/api/bookings/" + booking.ID + "/status"

	rec := doRequest(t, app, http.MethodPatch, path, tokenFor(t, stranger), map[string]string{"status": models.BookingCancelled})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, app, http.MethodPatch, path, tokenFor(t, renter), map[string]string{"status": models.BookingConfirmed})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "renters cannot confirm")

	rec = doRequest(t, app, http.MethodPatch, path, tokenFor(t, owner), map[string]string{"status": models.BookingCompleted})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "pending bookings cannot complete")

	rec = doRequest(t, app, http.MethodPatch, path, tokenFor(t, owner), map[string]string{"status": models.BookingConfirmed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, app, http.MethodPatch, path, tokenFor(t, owner), map[string]string{"status": models.BookingCompleted})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, app, http.MethodPatch, path, tokenFor(t, renter), map[string]string{"status": models.BookingCancelled})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "completed bookings are closed")

	require.NoError(t, storage.DB.First(&booking, "id = ?", booking.ID).Error)
	assert.Equal(t, models.BookingCompleted, booking.Status)
}

func TestBookingTransitionAllowed(t *testing.T) {
	assert.True(t, bookingTransitionAllowed(models.BookingPending, models.BookingConfirmed))
	assert.True(t, bookingTransitionAllowed(models.BookingPending, models.BookingRejected))
	assert.True(t, bookingTransitionAllowed(models.BookingConfirmed, models.BookingCancelled))
	assert.False(t, bookingTransitionAllowed(models.BookingRejected, models.BookingConfirmed))
	assert.False(t, bookingTransitionAllowed(models.BookingPending, models.BookingPending))
}
