package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/config"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMpesaConfig(baseURL string) config.Mpesa {
	return config.Mpesa{
		BaseURL:           baseURL,
		ConsumerKey:       "key",
		ConsumerSecret:    "secret",
		BusinessShortCode: "174379",
		Passkey:           "passkey",
		CallbackURL:       "https://api.example.com/api/payments/mpesa/callback",
		TransactionDesc:   "Listing fee",
		RequestTimeout:    2 * time.Second,
	}
}

func TestTimestampIsEastAfricaTime(t *testing.T) {
	utc := time.Date(2024, 12, 31, 22, 30, 5, 0, time.UTC)
	assert.Equal(t, "20250101013005", Timestamp(utc))
}

func TestPassword(t *testing.T) {
	c := NewMpesaClient(testMpesaConfig(""))
	got := c.Password("20250101013005")

	decoded, err := base64.StdEncoding.DecodeString(got)
	require.NoError(t, err)
	assert.Equal(t, "174379passkey20250101013005", string(decoded))
}

func TestAccountReference(t *testing.T) {
	assert.Equal(t, "KDC-9abcdef0", AccountReference("5f0c1e2a-1b2c-4d5e-8f90-12349abcdef0"))
	assert.Equal(t, "KDC-short", AccountReference("short"))
}

func TestTokenTTL(t *testing.T) {
	assert.Equal(t, 3539*time.Second, tokenTTL("3599"))
	assert.Zero(t, tokenTTL("30"))
	assert.Zero(t, tokenTTL("soon"))
}

func TestNewSTKPushRequest(t *testing.T) {
	c := NewMpesaClient(testMpesaConfig(""))
	c.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }

	req := c.NewSTKPushRequest("254712345678", 200, "KDC-12345678")
	assert.Equal(t, "20250501120000", req.Timestamp)
	assert.Equal(t, c.Password("20250501120000"), req.Password)
	assert.Equal(t, "174379", req.BusinessShortCode)
	assert.Equal(t, "174379", req.PartyB)
	assert.Equal(t, "254712345678", req.PartyA)
	assert.Equal(t, "254712345678", req.PhoneNumber)
	assert.Equal(t, "CustomerPayBillOnline", req.TransactionType)
	assert.Equal(t, int64(200), req.Amount)
}

func TestAccessTokenAndSTKPush(t *testing.T) {
	storage.Redis = nil
	var oauthCalls int32
	var received STKPushRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&oauthCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" || r.URL.Query().Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"access_token":"tok-1","expires_in":"3599"}`)
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		io.WriteString(w, `{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success","CustomerMessage":"Success"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewMpesaClient(testMpesaConfig(srv.URL))
	ctx := context.Background()

	token, err := c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	resp, raw, err := c.STKPush(ctx, token, c.NewSTKPushRequest("254712345678", 200, "KDC-12345678"))
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, "ws_CO_1", resp.CheckoutRequestID)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "KDC-12345678", received.AccountReference)
	assert.Equal(t, "https://api.example.com/api/payments/mpesa/callback", received.CallBackURL)
	assert.Equal(t, int32(1), atomic.LoadInt32(&oauthCalls))
}

func TestAccessTokenCachedInRedis(t *testing.T) {
	mr := useMiniredis(t)
	var oauthCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&oauthCalls, 1)
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":"3599"}`, n)
	}))
	defer srv.Close()

	c := NewMpesaClient(testMpesaConfig(srv.URL))
	ctx := context.Background()

	first, err := c.AccessToken(ctx)
	require.NoError(t, err)
	second, err := c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&oauthCalls))
	assert.Equal(t, 3539*time.Second, mr.TTL(mpesaTokenCacheKey))

	mr.FastForward(3540 * time.Second)
	third, err := c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", third)
	assert.Equal(t, int32(2), atomic.LoadInt32(&oauthCalls))
}

func TestAccessTokenRejectedCredentials(t *testing.T) {
	storage.Redis = nil
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewMpesaClient(testMpesaConfig(srv.URL)).AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSTKPushNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "<html>upstream down</html>")
	}))
	defer srv.Close()

	c := NewMpesaClient(testMpesaConfig(srv.URL))
	_, _, err := c.STKPush(context.Background(), "tok", c.NewSTKPushRequest("254712345678", 1, "KDC-1"))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSTKPushResponseReason(t *testing.T) {
	assert.Equal(t, "Invalid Access Token", (&STKPushResponse{ErrorMessage: "Invalid Access Token"}).Reason())
	assert.Equal(t, "Duplicate", (&STKPushResponse{ResponseCode: "1", ResponseDescription: "Duplicate"}).Reason())
	assert.Equal(t, "STK push failed", (&STKPushResponse{}).Reason())
}
