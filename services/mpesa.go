package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/config"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/kataras/golog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	mpesaTokenCacheKey = "mpesa:access_token"
	stkTransactionType = "CustomerPayBillOnline"
)

// Daraja timestamps are East Africa Time, which has no DST.
var eat = time.FixedZone("EAT", 3*60*60)

// ErrProviderUnavailable covers transport failures and unusable responses
// from Daraja, as opposed to a well-formed rejection of the request.
var ErrProviderUnavailable = errors.New("mpesa: provider unavailable")

// MpesaClient talks to the Safaricom Daraja API.
type MpesaClient struct {
	cfg  config.Mpesa
	http *http.Client
	now  func() time.Time
}

func NewMpesaClient(cfg config.Mpesa) *MpesaClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MpesaClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		now:  time.Now,
	}
}

type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse carries both the success fields and the error fields Daraja
// returns on 4xx/5xx.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`

	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (r *STKPushResponse) Accepted() bool {
	return r.ResponseCode == "0"
}

// Reason is the most specific human readable message in the response.
func (r *STKPushResponse) Reason() string {
	switch {
	case r.ErrorMessage != "":
		return r.ErrorMessage
	case r.ResponseDescription != "":
		return r.ResponseDescription
	case r.CustomerMessage != "":
		return r.CustomerMessage
	}
	return "STK push failed"
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// Timestamp formats t as YYYYMMDDHHMMSS in East Africa Time.
func Timestamp(t time.Time) string {
	return t.In(eat).Format("20060102150405")
}

// Password is base64(shortcode + passkey + timestamp).
func (c *MpesaClient) Password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.BusinessShortCode + c.cfg.Passkey + timestamp))
}

// AccountReference is shown to the payer on the STK prompt.
func AccountReference(transactionID string) string {
	if len(transactionID) > 8 {
		transactionID = transactionID[len(transactionID)-8:]
	}
	return "KDC-" + transactionID
}

// AccessToken returns an OAuth token, reusing the Redis-cached one until
// a minute before it expires.
func (c *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	var cached string
	if ok, err := storage.GetCached(ctx, mpesaTokenCacheKey, &cached); err != nil {
		golog.Warnf("mpesa token cache: %v", err)
	} else if ok && cached != "" {
		return cached, nil
	}

	ctx, span := tracer().Start(ctx, "mpesa.oauth")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "oauth request")
		return "", fmt.Errorf("%w: oauth: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		span.SetStatus(codes.Error, resp.Status)
		return "", fmt.Errorf("%w: oauth status %d: %s", ErrProviderUnavailable, resp.StatusCode, body)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil || tok.AccessToken == "" {
		span.SetStatus(codes.Error, "oauth decode")
		return "", fmt.Errorf("%w: oauth response unreadable", ErrProviderUnavailable)
	}

	if ttl := tokenTTL(tok.ExpiresIn); ttl > 0 {
		if err := storage.SetCached(ctx, mpesaTokenCacheKey, tok.AccessToken, ttl); err != nil {
			golog.Warnf("mpesa token cache: %v", err)
		}
	}
	return tok.AccessToken, nil
}

func tokenTTL(expiresIn string) time.Duration {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 60 {
		return 0
	}
	return time.Duration(secs-60) * time.Second
}

// NewSTKPushRequest fills in the shortcode, password and callback for a
// payment of amount from phone.
func (c *MpesaClient) NewSTKPushRequest(phone string, amount int64, accountRef string) STKPushRequest {
	ts := Timestamp(c.now())
	return STKPushRequest{
		BusinessShortCode: c.cfg.BusinessShortCode,
		Password:          c.Password(ts),
		Timestamp:         ts,
		TransactionType:   stkTransactionType,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.BusinessShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   c.cfg.TransactionDesc,
	}
}

// STKPush sends the request and returns the decoded response together with the
// raw body. A non-2xx answer with a JSON body is returned as a response, not an error.
func (c *MpesaClient) STKPush(ctx context.Context, token string, in STKPushRequest) (*STKPushResponse, []byte, error) {
	ctx, span := tracer().Start(ctx, "mpesa.stk_push")
	defer span.End()
	span.SetAttributes(
		attribute.String("mpesa.account_reference", in.AccountReference),
		attribute.Int64("mpesa.amount", in.Amount),
	)

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stk push request")
		return nil, nil, fmt.Errorf("%w: stk push: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: stk push read: %v", ErrProviderUnavailable, err)
	}

	var out STKPushResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		span.SetStatus(codes.Error, resp.Status)
		return nil, raw, fmt.Errorf("%w: stk push status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	span.SetAttributes(attribute.String("mpesa.response_code", out.ResponseCode))
	return &out, raw, nil
}
