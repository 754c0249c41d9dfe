package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/golog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrListingNotFound     = errors.New("listing not found")
	ErrNotListingOwner     = errors.New("listing belongs to another user")
	ErrListingNotDraft     = errors.New("listing is not awaiting payment")
	ErrInvalidAmount       = errors.New("amount must be a positive whole number of KES")
	ErrInvalidCallback     = errors.New("invalid callback structure")
	ErrCallbackInProgress  = errors.New("callback already being processed")
)

const (
	callbackLockTTL = 30 * time.Second

	// SearchCachePrefix is the Redis key prefix of cached listing searches.
	SearchCachePrefix = "properties:search"
)

// PaymentService drives the STK push flow and applies Daraja callbacks.
type PaymentService struct {
	db    *gorm.DB
	mpesa *MpesaClient
}

// Payments is set up by main; handlers use it directly.
var Payments *PaymentService

func NewPaymentService(db *gorm.DB, mpesa *MpesaClient) *PaymentService {
	return &PaymentService{db: db, mpesa: mpesa}
}

type InitiatePayment struct {
	UserID      string
	PhoneNumber string
	// Amount in KES. With a ListingID the current listing fee is charged and
	// a non-zero Amount below it is rejected.
	Amount    float64
	ListingID string
}

type InitiateResult struct {
	Transaction *models.Transaction
	Accepted    bool
	Message     string
}

// InitiateSTKPush records a transaction and asks Daraja to prompt the payer.
// A rejection by Daraja is reported through InitiateResult.Accepted, transport
// failures through ErrProviderUnavailable. The transaction is marked failed in
// both cases.
func (s *PaymentService) InitiateSTKPush(ctx context.Context, in InitiatePayment) (*InitiateResult, error) {
	ctx, span := tracer().Start(ctx, "payments.initiate")
	defer span.End()

	phone, err := utils.FormatMpesaPhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		UserID:      in.UserID,
		Purpose:     models.PurposeListingFee,
		Provider:    models.ProviderMpesa,
		Status:      models.TxInitiated,
		PhoneNumber: phone,
	}

	amount := in.Amount
	if in.ListingID != "" {
		var listing models.Property
		if err := s.db.WithContext(ctx).Select("id", "owner_id", "status").First(&listing, "id = ?", in.ListingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrListingNotFound
			}
			return nil, fmt.Errorf("load listing: %w", err)
		}
		if listing.OwnerID != in.UserID {
			return nil, ErrNotListingOwner
		}
		if listing.Status != models.ListingDraft {
			return nil, ErrListingNotDraft
		}
		tx.PropertyID = &listing.ID

		fee, err := CurrentListingFee(ctx, s.db)
		if err != nil {
			return nil, err
		}
		if amount != 0 && amount < fee {
			return nil, ErrInvalidAmount
		}
		amount = fee
	}
	if amount <= 0 || amount != math.Trunc(amount) {
		return nil, ErrInvalidAmount
	}
	tx.AmountKES = int64(amount)

	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	token, err := s.mpesa.AccessToken(ctx)
	if err != nil {
		stkPushes.WithLabelValues("provider_error").Inc()
		s.markFailed(ctx, tx, err.Error(), nil)
		return nil, err
	}

	req := s.mpesa.NewSTKPushRequest(phone, tx.AmountKES, AccountReference(tx.ID))
	resp, raw, err := s.mpesa.STKPush(ctx, token, req)
	if err != nil {
		stkPushes.WithLabelValues("provider_error").Inc()
		s.markFailed(ctx, tx, err.Error(), raw)
		return nil, err
	}

	if !resp.Accepted() {
		stkPushes.WithLabelValues("rejected").Inc()
		s.markFailed(ctx, tx, resp.Reason(), raw)
		golog.Warnf("stk push rejected for transaction %s: %s", tx.ID, resp.Reason())
		return &InitiateResult{Transaction: tx, Accepted: false, Message: resp.Reason()}, nil
	}

	tx.Status = models.TxPending
	tx.CheckoutRequestID = resp.CheckoutRequestID
	tx.MerchantRequestID = resp.MerchantRequestID
	tx.RawPayload = datatypes.JSON(raw)
	if err := s.db.WithContext(ctx).Model(tx).Updates(map[string]interface{}{
		"status":                    tx.Status,
		"mpesa_checkout_request_id": tx.CheckoutRequestID,
		"merchant_request_id":       tx.MerchantRequestID,
		"raw_payload":               tx.RawPayload,
	}).Error; err != nil {
		return nil, fmt.Errorf("mark transaction pending: %w", err)
	}

	stkPushes.WithLabelValues("accepted").Inc()
	golog.Infof("stk push sent for transaction %s, checkout %s", tx.ID, tx.CheckoutRequestID)
	return &InitiateResult{Transaction: tx, Accepted: true, Message: resp.CustomerMessage}, nil
}

func (s *PaymentService) markFailed(ctx context.Context, tx *models.Transaction, desc string, raw []byte) {
	tx.Status = models.TxFailed
	tx.ResultDesc = desc
	updates := map[string]interface{}{"status": tx.Status, "mpesa_result_desc": desc}
	if len(raw) > 0 && json.Valid(raw) {
		tx.RawPayload = datatypes.JSON(raw)
		updates["raw_payload"] = tx.RawPayload
	}
	if err := s.db.WithContext(ctx).Model(tx).Updates(updates).Error; err != nil {
		golog.Errorf("mark transaction %s failed: %v", tx.ID, err)
	}
}

// CurrentListingFee returns the fee stored in row 1 of listing_fees.
func CurrentListingFee(ctx context.Context, db *gorm.DB) (float64, error) {
	var fee models.ListingFee
	err := db.WithContext(ctx).First(&fee, models.ListingFeeRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrInvalidAmount
	}
	if err != nil {
		return 0, fmt.Errorf("load listing fee: %w", err)
	}
	return fee.Amount, nil
}

type CallbackPayload struct {
	Body struct {
		StkCallback *STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        *int   `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata,omitempty"`
}

// CallbackItem values are numbers or strings depending on the field.
type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// Metadata returns the named item as text, keeping large numbers intact.
func (c *STKCallback) Metadata(name string) string {
	if c.CallbackMetadata == nil {
		return ""
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name || len(item.Value) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(item.Value, &s); err == nil {
			return s
		}
		return strings.TrimSpace(string(item.Value))
	}
	return ""
}

type CallbackResult struct {
	Transaction *models.Transaction
	// Duplicate is set when the transaction had already been settled.
	Duplicate bool
}

// HandleCallback settles the transaction matching the callback's checkout id.
// The row is locked for the duration of the database transaction and
// callbacks for already settled transactions change nothing.
func (s *PaymentService) HandleCallback(ctx context.Context, payload CallbackPayload, raw []byte) (*CallbackResult, error) {
	cb := payload.Body.StkCallback
	if cb == nil || cb.CheckoutRequestID == "" || cb.ResultCode == nil {
		return nil, ErrInvalidCallback
	}

	ctx, span := tracer().Start(ctx, "payments.callback")
	defer span.End()
	span.SetAttributes(
		attribute.String("mpesa.checkout_request_id", cb.CheckoutRequestID),
		attribute.Int("mpesa.result_code", *cb.ResultCode),
	)

	lockKey := "mpesa:callback:" + cb.CheckoutRequestID
	locked, err := storage.TryLock(ctx, lockKey, callbackLockTTL)
	if err != nil {
		golog.Warnf("callback lock %s: %v", cb.CheckoutRequestID, err)
	} else if !locked {
		mpesaCallbacks.WithLabelValues("duplicate").Inc()
		return nil, ErrCallbackInProgress
	} else {
		defer storage.Unlock(ctx, lockKey)
	}

	result := &CallbackResult{}
	var activated *models.Property

	err = s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var tx models.Transaction
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mpesa_checkout_request_id = ?", cb.CheckoutRequestID).
			First(&tx).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		if err != nil {
			return err
		}
		result.Transaction = &tx

		if tx.Terminal() && !(tx.Expired() && *cb.ResultCode == 0) {
			result.Duplicate = true
			return nil
		}

		tx.ResultCode = cb.ResultCode
		tx.ResultDesc = cb.ResultDesc
		if len(raw) > 0 {
			tx.RawPayload = datatypes.JSON(raw)
		}
		if cb.MerchantRequestID != "" {
			tx.MerchantRequestID = cb.MerchantRequestID
		}

		if *cb.ResultCode == 0 {
			tx.Status = models.TxSuccess
			tx.ReceiptNo = cb.Metadata("MpesaReceiptNumber")
			tx.TransactionDate = cb.Metadata("TransactionDate")
			if phone := cb.Metadata("PhoneNumber"); phone != "" {
				tx.PhoneNumber = phone
			}
			if err := db.Save(&tx).Error; err != nil {
				return err
			}
			if !paidInFull(cb, &tx) {
				golog.Warnf("transaction %s paid %s KES of %d, listing left unpublished", tx.ID, cb.Metadata("Amount"), tx.AmountKES)
				return nil
			}
			activated, err = activateListing(db, &tx)
			return err
		}

		// the listing stays in draft until a payment for it succeeds
		tx.Status = models.TxFailed
		return db.Save(&tx).Error
	})
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			mpesaCallbacks.WithLabelValues("unknown").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("apply callback %s: %w", cb.CheckoutRequestID, err)
	}

	tx := result.Transaction
	switch {
	case result.Duplicate:
		mpesaCallbacks.WithLabelValues("duplicate").Inc()
		golog.Infof("duplicate callback for transaction %s (%s), ignored", tx.ID, tx.Status)
	case tx.Status == models.TxSuccess:
		mpesaCallbacks.WithLabelValues("success").Inc()
		golog.Infof("payment %s succeeded, receipt %s", tx.ID, tx.ReceiptNo)
		Publish(ctx, EventPaymentSuccess, PaymentSucceeded{
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			PropertyID:    utils.Deref(tx.PropertyID),
			AmountKES:     tx.AmountKES,
			ReceiptNo:     tx.ReceiptNo,
			PhoneNumber:   tx.PhoneNumber,
		})
		if activated != nil {
			listingActivated(ctx, activated)
		}
	default:
		mpesaCallbacks.WithLabelValues("failed").Inc()
		golog.Infof("payment %s failed: %s", tx.ID, tx.ResultDesc)
		Publish(ctx, EventPaymentFailed, PaymentFailed{
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			PropertyID:    utils.Deref(tx.PropertyID),
			ResultCode:    tx.ResultCode,
			Reason:        tx.ResultDesc,
		})
	}
	return result, nil
}

// activateListing publishes the draft listing paid for by tx. Listings that
// have moved on from draft (removed by an admin, archived) are left alone.
func activateListing(db *gorm.DB, tx *models.Transaction) (*models.Property, error) {
	if tx.PropertyID == nil || tx.Purpose != models.PurposeListingFee {
		return nil, nil
	}
	res := db.Model(&models.Property{}).
		Where("id = ? AND status = ?", *tx.PropertyID, models.ListingDraft).
		Update("status", models.ListingActive)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	var p models.Property
	if err := db.Select("id", "owner_id", "title").First(&p, "id = ?", *tx.PropertyID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// paidInFull compares the Amount reported by the callback with the amount
// requested. Callbacks without an Amount item are trusted.
func paidInFull(cb *STKCallback, tx *models.Transaction) bool {
	reported := cb.Metadata("Amount")
	if reported == "" {
		return true
	}
	paid, err := strconv.ParseFloat(reported, 64)
	if err != nil {
		return false
	}
	return paid >= float64(tx.AmountKES)
}

func listingActivated(ctx context.Context, p *models.Property) {
	golog.Infof("listing %s activated", p.ID)
	if err := storage.InvalidatePrefix(ctx, SearchCachePrefix); err != nil {
		golog.Warnf("invalidate search cache: %v", err)
	}
	Publish(ctx, EventListingActivated, ListingActivated{PropertyID: p.ID, OwnerID: p.OwnerID, Title: p.Title})
}

// FindTransaction returns the caller's own transaction.
func (s *PaymentService) FindTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// SweepPending fails initiated and pending transactions created before
// now-timeout. Their listings stay in draft. It returns how many were expired.
func (s *PaymentService) SweepPending(ctx context.Context, timeout time.Duration) (int, error) {
	cutoff := time.Now().Add(-timeout)

	var stale []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []string{models.TxInitiated, models.TxPending}, cutoff).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("find stale transactions: %w", err)
	}

	expired := 0
	for _, t := range stale {
		res := s.db.WithContext(ctx).Model(&models.Transaction{}).
			Where("id = ? AND status IN ?", t.ID, []string{models.TxInitiated, models.TxPending}).
			Updates(map[string]interface{}{"status": models.TxFailed, "mpesa_result_desc": models.TxTimedOutDesc})
		if res.Error != nil {
			golog.Errorf("expire transaction %s: %v", t.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			// settled by a callback in the meantime
			continue
		}
		expired++
		Publish(ctx, EventPaymentFailed, PaymentFailed{
			TransactionID: t.ID,
			UserID:        t.UserID,
			PropertyID:    utils.Deref(t.PropertyID),
			Reason:        models.TxTimedOutDesc,
		})
	}
	if expired > 0 {
		sweptTransactions.Add(float64(expired))
		golog.Infof("expired %d pending transactions", expired)
	}
	return expired, nil
}

// RunSweeper calls SweepPending every interval until ctx is done.
func (s *PaymentService) RunSweeper(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepPending(ctx, timeout); err != nil {
				golog.Errorf("payment sweeper: %v", err)
			}
		}
	}
}
