package models

import "gorm.io/datatypes"

const (
	TxInitiated = "initiated"
	TxPending   = "pending"
	TxSuccess   = "success"
	TxFailed    = "failed"
	TxRefunded  = "refunded"
)

// TxTimedOutDesc is the result description the sweeper writes on
// transactions that never received a callback.
const TxTimedOutDesc = "timed out waiting for M-Pesa confirmation"

const (
	PurposeListingFee = "listing_fee"
	ProviderMpesa     = "mpesa"
)

type Transaction struct {
	Base
	UserID     string  `json:"user_id" gorm:"type:varchar(36);not null;index"`
	PropertyID *string `json:"property_id" gorm:"type:varchar(36);index"`
	BookingID  *string `json:"booking_id" gorm:"type:varchar(36);index"`
	AmountKES  int64   `json:"amount_kes" gorm:"column:amount_kes"`
	Purpose    string  `json:"purpose" gorm:"size:32"`
	Provider   string  `json:"provider" gorm:"size:16;default:mpesa"`
	Status     string  `json:"status" gorm:"type:varchar(12);default:initiated;index"`

	CheckoutRequestID string         `json:"checkout_request_id,omitempty" gorm:"column:mpesa_checkout_request_id;size:64;index"`
	MerchantRequestID string         `json:"merchant_request_id,omitempty" gorm:"size:64"`
	ReceiptNo         string         `json:"receipt_no,omitempty" gorm:"size:32"`
	TransactionDate   string         `json:"transaction_date,omitempty" gorm:"column:mpesa_transaction_date;size:20"`
	PhoneNumber       string         `json:"phone_number,omitempty" gorm:"size:20"`
	ResultCode        *int           `json:"result_code,omitempty"`
	ResultDesc        string         `json:"result_desc,omitempty" gorm:"column:mpesa_result_desc;type:text"`
	RawPayload        datatypes.JSON `json:"raw_payload,omitempty"`
}

// Terminal transactions are never updated by a callback again.
func (t Transaction) Terminal() bool {
	return t.Status == TxSuccess || t.Status == TxFailed || t.Status == TxRefunded
}

// Expired reports whether the sweeper failed the transaction before any
// callback arrived. A late callback may still settle it.
func (t Transaction) Expired() bool {
	return t.Status == TxFailed && t.ResultCode == nil && t.ResultDesc == TxTimedOutDesc
}
