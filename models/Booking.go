package models

import "time"

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
	BookingRejected  = "rejected"
)

const (
	BookingRental  = "rental"
	BookingViewing = "viewing"
)

type Booking struct {
	Base
	PropertyID  string     `json:"property_id" gorm:"type:varchar(36);not null;index"`
	RenterID    string     `json:"renter_id" gorm:"type:varchar(36);not null;index"`
	BookingType string     `json:"booking_type" gorm:"type:varchar(10)"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	ViewingDate *time.Time `json:"viewing_date"`
	Guests      int        `json:"guests" gorm:"default:1"`
	Message     *string    `json:"message" gorm:"type:text"`
	Status      string     `json:"status" gorm:"type:varchar(12);default:pending;index"`
	TotalAmount float64    `json:"total_amount"`
	Currency    string     `json:"currency" gorm:"size:3;default:KES"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Renter   *Profile  `json:"-" gorm:"foreignKey:RenterID"`
}

// Open bookings may still change status.
func (b Booking) Open() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}
