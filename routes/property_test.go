package routes

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func propertyBody() map[string]interface{} {
	return map[string]interface{}{
		"title":         gofakeit.Street() + " residence",
		"description":   gofakeit.Paragraph(1, 3, 12, " "),
		"property_type": "apartment",
		"listing_type":  models.ModeRent,
		"price":         45000,
		"location":      "Westlands, Nairobi",
		"bedrooms":      2,
		"bathrooms":     1,
		"images":        []string{"https://images.example.com/1.jpg", "https://images.example.com/2.jpg"},
	}
}

func TestCreatePropertyFreeThenDraft(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	token := tokenFor(t, owner)

	rec := doRequest(t, app, http.MethodPost, "/api/properties", token, propertyBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decodeBody(t, rec)
	assert.Equal(t, false, out["requires_payment"])
	first := out["property"].(map[string]interface{})
	assert.Equal(t, models.ListingActive, first["status"])
	assert.Equal(t, "Westlands", first["town"])
	assert.Equal(t, "Nairobi", first["county"])
	assert.Len(t, first["media"], 2)

	var allowance models.ListingAllowance
	require.NoError(t, storage.DB.First(&allowance, "user_id = ?", owner.ID).Error)
	assert.Equal(t, 1, allowance.UsedListings)

	rec = doRequest(t, app, http.MethodPost, "/api/properties", token, propertyBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out = decodeBody(t, rec)
	assert.Equal(t, true, out["requires_payment"])
	assert.Equal(t, models.ListingDraft, out["property"].(map[string]interface{})["status"])

	require.NoError(t, storage.DB.First(&allowance, "user_id = ?", owner.ID).Error)
	assert.Equal(t, 1, allowance.UsedListings, "draft listings do not consume the allowance")
}

func TestCreatePropertySalePrice(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)

	body := propertyBody()
	body["listing_type"] = models.ModeSale
	body["price"] = 12500000
	rec := doRequest(t, app, http.MethodPost, "/api/properties", tokenFor(t, owner), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	property := decodeBody(t, rec)["property"].(map[string]interface{})
	assert.Equal(t, float64(12500000), property["sale_price"])
	assert.Nil(t, property["rent_price"])
}

func TestCreatePropertyRules(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	tenant := createTestUser(t, models.RoleTenant)

	rec := doRequest(t, app, http.MethodPost, "/api/properties", "", propertyBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, app, http.MethodPost, "/api/properties", tokenFor(t, tenant), propertyBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := propertyBody()
	body["property_type"] = "castle"
	rec = doRequest(t, app, http.MethodPost, "/api/properties", tokenFor(t, owner), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = propertyBody()
	delete(body, "title")
	rec = doRequest(t, app, http.MethodPost, "/api/properties", tokenFor(t, owner), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, storage.DB.Create(&models.BanEntry{UserID: owner.ID, PhoneNumber: owner.PhoneNumber}).Error)
	rec = doRequest(t, app, http.MethodPost, "/api/properties", tokenFor(t, owner), propertyBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSearchPropertiesOnlyActive(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	active := createTestProperty(t, owner.ID, models.ListingActive)
	createTestProperty(t, owner.ID, models.ListingDraft)
	createTestProperty(t, owner.ID, models.ListingRemoved)

	rec := doRequest(t, app, http.MethodGet, "/api/properties", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	out := decodeBody(t, rec)
	data := out["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, active.ID, data[0].(map[string]interface{})["id"])
	assert.Equal(t, float64(1), out["meta"].(map[string]interface{})["total"])
}

func TestSearchPropertiesCache(t *testing.T) {
	app := buildTestApp(t, "")
	useMiniredis(t)
	owner := createTestUser(t, models.RoleHomeowner)
	createTestProperty(t, owner.ID, models.ListingActive)

	rec := doRequest(t, app, http.MethodGet, "/api/properties?location=Kilimani", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	// normalised query hits the same entry
	rec = doRequest(t, app, http.MethodGet, "/api/properties?location=kilimani", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	body := propertyBody()
	body["location"] = "Kilimani, Nairobi"
	rec = doRequest(t, app, http.MethodPost, "/api/properties", tokenFor(t, owner), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, app, http.MethodGet, "/api/properties?location=kilimani", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Len(t, decodeBody(t, rec)["data"], 2)
}

func TestSearchPropertiesFilters(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	p := createTestProperty(t, owner.ID, models.ListingActive)

	rec := doRequest(t, app, http.MethodGet, "/api/properties?location=kilimani&property_type=apartment", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	rec = doRequest(t, app, http.MethodGet, "/api/properties?location=mombasa", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 0)

	rec = doRequest(t, app, http.MethodGet, "/api/properties?max_price=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 0)

	rec = doRequest(t, app, http.MethodGet, "/api/properties?min_price="+formatPrice(*p.RentPrice), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 1)

	rec = doRequest(t, app, http.MethodGet, "/api/properties?min_price=cheap", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func TestGetPropertyVisibility(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	tenant := createTestUser(t, models.RoleTenant)
	draft := createTestProperty(t, owner.ID, models.ListingDraft)
	active := createTestProperty(t, owner.ID, models.ListingActive)

	rec := doRequest(t, app, http.MethodGet, "/api/properties/"+active.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, owner.FullName, out["owner"].(map[string]interface{})["full_name"])

	rec = doRequest(t, app, http.MethodGet, "/api/properties/"+draft.ID, tokenFor(t, tenant), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, app, http.MethodGet, "/api/properties/"+draft.ID, tokenFor(t, owner), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, app, http.MethodGet, "/api/properties/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePropertyStatus(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	other := createTestUser(t, models.RoleHomeowner)
	active := createTestProperty(t, owner.ID, models.ListingActive)
	draft := createTestProperty(t, owner.ID, models.ListingDraft)
	token := tokenFor(t, owner)

	rec := doRequest(t, app, http.MethodPatch, "/api/properties/"+active.ID+"/status", token, map[string]string{"status": models.ListingPaused})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.ListingPaused, decodeBody(t, rec)["property"].(map[string]interface{})["status"])

	rec = doRequest(t, app, http.MethodPatch, "/api/properties/"+draft.ID+"/status", token, map[string]string{"status": models.ListingActive})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "drafts are published by paying")

	rec = doRequest(t, app, http.MethodPatch, "/api/properties/"+active.ID+"/status", tokenFor(t, other), map[string]string{"status": models.ListingArchived})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteProperty(t *testing.T) {
	app := buildTestApp(t, "")
	owner := createTestUser(t, models.RoleHomeowner)
	property := createTestProperty(t, owner.ID, models.ListingActive)
	require.NoError(t, storage.DB.Create(&models.PropertyMedia{PropertyID: property.ID, URL: "https://images.example.com/x.jpg"}).Error)

	rec := doRequest(t, app, http.MethodDelete, "/api/properties/"+property.ID, tokenFor(t, owner), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var n int64
	storage.DB.Model(&models.PropertyMedia{}).Where("property_id = ?", property.ID).Count(&n)
	assert.Zero(t, n)
}

func TestGetListingFeeAndAmenities(t *testing.T) {
	app := buildTestApp(t, "")

	rec := doRequest(t, app, http.MethodGet, "/api/listing-fee", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(storage.DefaultListingFee), decodeBody(t, rec)["amount"])

	rec = doRequest(t, app, http.MethodGet, "/api/amenities", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "[]", rec.Body.String())
}

func TestSplitLocation(t *testing.T) {
	tests := []struct {
		in, town, county string
	}{
		{"Kilimani, Nairobi", "Kilimani", "Nairobi"},
		{"Nyali,Mombasa", "Nyali", "Mombasa"},
		{"Nakuru", "Nakuru", "Nakuru"},
		{"  Ruaka , Kiambu ", "Ruaka", "Kiambu"},
	}
	for _, tt := range tests {
		town, county := splitLocation(tt.in)
		assert.Equal(t, tt.town, town, tt.in)
		assert.Equal(t, tt.county, county, tt.in)
	}
}
