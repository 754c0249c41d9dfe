package models

import (
	"time"

	"golang.org/x/exp/slices"
)

const (
	ListingDraft    = "draft"
	ListingActive   = "active"
	ListingPaused   = "paused"
	ListingArchived = "archived"
	// set by admin actions
	ListingInactive = "inactive"
	ListingRemoved  = "removed"
)

var PropertyTypes = []string{"apartment", "house", "studio", "villa", "townhouse", "bedsitter", "land", "commercial"}

const (
	ModeRent      = "rent"
	ModeSale      = "sale"
	ModeRentToOwn = "rent_to_own"
)

type Property struct {
	Base
	OwnerID       string   `json:"owner_id" gorm:"type:varchar(36);not null;index"`
	Title         string   `json:"title" gorm:"size:256;not null"`
	Description   string   `json:"description" gorm:"type:text"`
	PropertyType  string   `json:"property_type" gorm:"type:varchar(20);index"`
	ListingMode   string   `json:"listing_mode" gorm:"type:varchar(20);index"`
	RentPrice     *float64 `json:"rent_price"`
	SalePrice     *float64 `json:"sale_price"`
	RentRateType  string   `json:"rent_rate_type,omitempty" gorm:"type:varchar(10)"`
	Currency      string   `json:"currency" gorm:"size:3;default:KES"`
	County        string   `json:"county" gorm:"size:128;index"`
	Town          string   `json:"town" gorm:"size:128;index"`
	Address       string   `json:"address" gorm:"size:512"`
	Bedrooms      *int     `json:"bedrooms"`
	Bathrooms     *int     `json:"bathrooms"`
	Furnished     bool     `json:"furnished"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Status        string   `json:"status" gorm:"type:varchar(20);default:draft;index"`
	RemovalReason string   `json:"removal_reason,omitempty" gorm:"type:text"`

	Owner     *Profile        `json:"-" gorm:"foreignKey:OwnerID"`
	Media     []PropertyMedia `json:"media" gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
	Amenities []Amenity       `json:"amenities" gorm:"many2many:property_amenities;constraint:OnDelete:CASCADE"`
}

// Price is the headline price for the listing's mode.
func (p Property) Price() float64 {
	if p.ListingMode == ModeSale {
		if p.SalePrice != nil {
			return *p.SalePrice
		}
		return 0
	}
	if p.RentPrice != nil {
		return *p.RentPrice
	}
	return 0
}

// CanOwnerMoveTo reports whether the owner may move the listing from its
// current status to next. Publishing a draft only happens through payment.
func (p Property) CanOwnerMoveTo(next string) bool {
	switch p.Status {
	case ListingActive:
		return slices.Contains([]string{ListingPaused, ListingArchived}, next)
	case ListingPaused:
		return slices.Contains([]string{ListingActive, ListingArchived}, next)
	case ListingDraft:
		return next == ListingArchived
	}
	return false
}

type PropertyMedia struct {
	Base
	PropertyID string `json:"property_id" gorm:"type:varchar(36);not null;index"`
	URL        string `json:"url" gorm:"size:1024;not null"`
	MediaType  string `json:"media_type" gorm:"type:varchar(10);default:image"`
	SortOrder  int    `json:"sort_order"`
}

func (PropertyMedia) TableName() string { return "property_media" }

type Amenity struct {
	Base
	Name string `json:"name" gorm:"size:128;uniqueIndex"`
}

// PropertyAmenity maps rows of the property_amenities join table.
type PropertyAmenity struct {
	PropertyID string `gorm:"type:varchar(36);primaryKey"`
	AmenityID  string `gorm:"type:varchar(36);primaryKey"`
}

func (PropertyAmenity) TableName() string { return "property_amenities" }

// ListingFee is a single-row table (ID 1) holding the current fee in KES.
type ListingFee struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Amount    float64   `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

const ListingFeeRowID = 1
