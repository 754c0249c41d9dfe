package models

type Review struct {
	Base
	BookingID  string `json:"booking_id" gorm:"type:varchar(36);uniqueIndex"`
	PropertyID string `json:"property_id" gorm:"type:varchar(36);not null;index"`
	ReviewerID string `json:"reviewer_id" gorm:"type:varchar(36);not null;index"`
	Rating     int    `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment    string `json:"comment" gorm:"type:text"`

	Reviewer *Profile `json:"-" gorm:"foreignKey:ReviewerID"`
}
