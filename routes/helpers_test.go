package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/config"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/services"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-redis/redis/v8"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "secret123"

// setupTestDB points storage.DB at a fresh in-memory sqlite database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, storage.Migrate(db))
	require.NoError(t, storage.SeedReferenceData(db))

	storage.DB = db
	storage.Redis = nil
	return db
}

// buildTestApp creates the full API on top of a fresh database. The M-Pesa
// client points at darajaURL.
func buildTestApp(t *testing.T, darajaURL string) *iris.Application {
	t.Helper()
	db := setupTestDB(t)
	utils.InitializeTokens("test-access-secret", "test-refresh-secret")
	services.Events = nil
	services.Payments = services.NewPaymentService(db, services.NewMpesaClient(config.Mpesa{
		BaseURL:           darajaURL,
		ConsumerKey:       "key",
		ConsumerSecret:    "secret",
		BusinessShortCode: "174379",
		Passkey:           "passkey",
		CallbackURL:       "https://api.example.com/api/payments/mpesa/callback",
		TransactionDesc:   "Listing fee",
		RequestTimeout:    2 * time.Second,
	}))

	app := iris.New()
	app.Logger().SetLevel("disable")
	app.Validator = validator.New()
	Router(app)
	require.NoError(t, app.Build())
	return app
}

// useMiniredis backs storage.Redis with an in-process server. Call it after
// buildTestApp, which resets storage.Redis.
func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	storage.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		storage.Redis.Close()
		storage.Redis = nil
	})
	return mr
}

func createTestUser(t *testing.T, role string) models.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.Profile{
		Email:        gofakeit.Email(),
		PhoneNumber:  "2547" + gofakeit.Numerify("########"),
		FullName:     gofakeit.Name(),
		Role:         role,
		PasswordHash: string(hash),
	}
	require.NoError(t, storage.DB.Create(&user).Error)
	if role == models.RoleHomeowner {
		require.NoError(t, storage.DB.Create(&models.ListingAllowance{UserID: user.ID, FreeListings: 1}).Error)
	}
	return user
}

func tokenFor(t *testing.T, user models.Profile) string {
	t.Helper()
	pair, err := utils.CreateTokenPair(context.Background(), user.ID, user.Role)
	require.NoError(t, err)
	return pair.AccessToken
}

func createTestProperty(t *testing.T, ownerID, status string) models.Property {
	t.Helper()
	price := float64(gofakeit.IntRange(5, 200) * 1000)
	bedrooms := gofakeit.IntRange(1, 5)
	property := models.Property{
		OwnerID:      ownerID,
		Title:        gofakeit.Street() + " apartment",
		Description:  gofakeit.Sentence(12),
		PropertyType: "apartment",
		ListingMode:  models.ModeRent,
		RentPrice:    &price,
		RentRateType: "monthly",
		Currency:     "KES",
		Town:         "Kilimani",
		County:       "Nairobi",
		Address:      "Kilimani, Nairobi",
		Bedrooms:     &bedrooms,
		Status:       status,
	}
	require.NoError(t, storage.DB.Create(&property).Error)
	return property
}

func doRequest(t *testing.T, app *iris.Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// fakeDaraja answers the OAuth and STK push endpoints. stkStatus and stkBody
// are what the STK push endpoint returns.
func fakeDaraja(t *testing.T, stkStatus int, stkBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"test-token","expires_in":"3599"}`)
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stkStatus)
		io.WriteString(w, stkBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

const acceptedSTKResponse = `{
	"MerchantRequestID": "29115-34620561-1",
	"CheckoutRequestID": "ws_CO_191220191020363925",
	"ResponseCode": "0",
	"ResponseDescription": "Success. Request accepted for processing",
	"CustomerMessage": "Success. Request accepted for processing"
}`
