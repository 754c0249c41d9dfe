package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/golog"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
)

// Notification is what a user would be told about an event.
type Notification struct {
	UserID string
	Title  string
	Body   string
	Type   string
}

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	golog.Infof("notify user=%s type=%s: %s - %s", n.UserID, n.Type, n.Title, n.Body)
	return nil
}

// NotificationWorker turns domain events from the events exchange into notifications.
type NotificationWorker struct {
	db       *gorm.DB
	notifier Notifier
}

func NewNotificationWorker(db *gorm.DB, n Notifier) *NotificationWorker {
	if n == nil {
		n = LogNotifier{}
	}
	return &NotificationWorker{db: db, notifier: n}
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
// Payloads that cannot be decoded are dropped; other failures are requeued once.
func (w *NotificationWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				golog.Warn("notification deliveries channel closed")
				return
			}
			err := w.Handle(ctx, d.RoutingKey, d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case isDecodeError(err):
				golog.Errorf("notification %s: %v, dropping", d.RoutingKey, err)
				_ = d.Nack(false, false)
			default:
				golog.Errorf("notification %s: %v", d.RoutingKey, err)
				_ = d.Nack(false, !d.Redelivered)
			}
		}
	}
}

type decodeError struct{ err error }

func (e decodeError) Error() string { return "decode event: " + e.err.Error() }
func (e decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

func decodeEvent[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, decodeError{err}
	}
	return v, nil
}

// Handle renders and delivers the notifications for one event.
func (w *NotificationWorker) Handle(ctx context.Context, key string, body []byte) error {
	notes, err := w.Render(ctx, key, body)
	if err != nil {
		return err
	}
	for _, n := range notes {
		if err := w.notifier.Notify(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// Render builds the notifications for an event without sending them.
func (w *NotificationWorker) Render(ctx context.Context, key string, body []byte) ([]Notification, error) {
	switch key {
	case EventBookingCreated:
		ev, err := decodeEvent[BookingCreated](body)
		if err != nil {
			return nil, err
		}
		what := "a booking"
		if ev.BookingType == models.BookingViewing {
			what = "a viewing"
		}
		return []Notification{{
			UserID: ev.OwnerID,
			Type:   key,
			Title:  "New booking request",
			Body:   fmt.Sprintf("%s requested %s for %s", w.displayName(ctx, ev.RenterID), what, ev.Title),
		}}, nil

	case EventBookingStatusChanged:
		ev, err := decodeEvent[BookingStatusChanged](body)
		if err != nil {
			return nil, err
		}
		recipient := ev.RenterID
		if ev.To == models.BookingCancelled {
			recipient = ev.OwnerID
		}
		return []Notification{{
			UserID: recipient,
			Type:   key,
			Title:  "Booking " + ev.To,
			Body:   fmt.Sprintf("Booking %s moved from %s to %s", ev.BookingID, ev.From, ev.To),
		}}, nil

	case EventMessageSent:
		ev, err := decodeEvent[MessageSent](body)
		if err != nil {
			return nil, err
		}
		return []Notification{{
			UserID: ev.ReceiverID,
			Type:   key,
			Title:  "New message",
			Body:   fmt.Sprintf("%s: %s", w.displayName(ctx, ev.SenderID), ev.Preview),
		}}, nil

	case EventPaymentSuccess:
		ev, err := decodeEvent[PaymentSucceeded](body)
		if err != nil {
			return nil, err
		}
		return []Notification{{
			UserID: ev.UserID,
			Type:   key,
			Title:  "Payment received",
			Body: fmt.Sprintf("KES %d received from %s, receipt %s",
				ev.AmountKES, utils.DisplayPhoneNumber(ev.PhoneNumber), ev.ReceiptNo),
		}}, nil

	case EventPaymentFailed:
		ev, err := decodeEvent[PaymentFailed](body)
		if err != nil {
			return nil, err
		}
		return []Notification{{
			UserID: ev.UserID,
			Type:   key,
			Title:  "Payment failed",
			Body:   fmt.Sprintf("Your M-Pesa payment did not complete: %s", ev.Reason),
		}}, nil

	case EventListingActivated:
		ev, err := decodeEvent[ListingActivated](body)
		if err != nil {
			return nil, err
		}
		return []Notification{{
			UserID: ev.OwnerID,
			Type:   key,
			Title:  "Listing is live",
			Body:   fmt.Sprintf("%s is now visible to tenants", ev.Title),
		}}, nil
	}

	golog.Debugf("notification: skip unknown key %s", key)
	return nil, nil
}

func (w *NotificationWorker) displayName(ctx context.Context, userID string) string {
	if w.db == nil || userID == "" {
		return "Someone"
	}
	var p models.Profile
	if err := w.db.WithContext(ctx).Select("full_name").First(&p, "id = ?", userID).Error; err != nil || p.FullName == "" {
		return "Someone"
	}
	return p.FullName
}
