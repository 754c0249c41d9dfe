package services

import (
	"context"

	"github.com/kataras/golog"
)

// Routing keys published on the events exchange.
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventMessageSent          = "message.sent"
	EventPaymentSuccess       = "payment.success"
	EventPaymentFailed        = "payment.failed"
	EventListingActivated     = "listing.activated"
)

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Events is nil when RabbitMQ is not configured.
var Events EventPublisher

// Publish sends an event if a publisher is configured. Failures are only logged.
func Publish(ctx context.Context, key string, v any) {
	if Events == nil {
		return
	}
	if err := Events.PublishJSON(ctx, key, v); err != nil {
		golog.Errorf("publish %s: %v", key, err)
	}
}

type BookingCreated struct {
	BookingID   string  `json:"booking_id"`
	PropertyID  string  `json:"property_id"`
	Title       string  `json:"property_title"`
	RenterID    string  `json:"renter_id"`
	OwnerID     string  `json:"owner_id"`
	BookingType string  `json:"booking_type"`
	TotalAmount float64 `json:"total_amount"`
}

type BookingStatusChanged struct {
	BookingID  string `json:"booking_id"`
	PropertyID string `json:"property_id"`
	RenterID   string `json:"renter_id"`
	OwnerID    string `json:"owner_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type MessageSent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	PropertyID     string `json:"property_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	Preview        string `json:"preview"`
}

type PaymentSucceeded struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	PropertyID    string `json:"property_id,omitempty"`
	AmountKES     int64  `json:"amount_kes"`
	ReceiptNo     string `json:"receipt_no"`
	PhoneNumber   string `json:"phone_number"`
}

type PaymentFailed struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	PropertyID    string `json:"property_id,omitempty"`
	ResultCode    *int   `json:"result_code,omitempty"`
	Reason        string `json:"reason"`
}

type ListingActivated struct {
	PropertyID string `json:"property_id"`
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
}
