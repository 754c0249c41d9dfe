package models

import (
	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
)

const (
	RoleTenant    = "tenant"
	RoleHomeowner = "homeowner"
	RoleAdmin     = "admin"
)

// SignupRoles are the roles a user may pick for themselves.
var SignupRoles = []string{RoleTenant, RoleHomeowner}

func IsSignupRole(role string) bool { return slices.Contains(SignupRoles, role) }

type Profile struct {
	Base
	Email        string `json:"email" gorm:"size:256;uniqueIndex"`
	PhoneNumber  string `json:"phone_number" gorm:"size:32;index"`
	FullName     string `json:"full_name" gorm:"size:256"`
	Role         string `json:"role" gorm:"type:varchar(20);default:tenant;index"`
	PasswordHash string `json:"-"`
	AvatarURL    string `json:"avatar_url"`
	Bio          string `json:"bio" gorm:"type:text"`
}

// ProfileSummary is the public subset embedded in listings, bookings and messages.
type ProfileSummary struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{ID: p.ID, FullName: p.FullName, AvatarURL: p.AvatarURL}
}

// ListingAllowance tracks how many listings a homeowner may publish without paying.
type ListingAllowance struct {
	Base
	UserID       string `json:"user_id" gorm:"type:varchar(36);uniqueIndex"`
	FreeListings int    `json:"free_listings" gorm:"default:1"`
	UsedListings int    `json:"used_listings" gorm:"default:0"`
}

func (a ListingAllowance) Exhausted() bool { return a.UsedListings >= a.FreeListings }

type BanEntry struct {
	Base
	UserID      string `json:"user_id" gorm:"type:varchar(36);uniqueIndex"`
	PhoneNumber string `json:"phone_number" gorm:"size:32;index"`
	Reason      string `json:"reason" gorm:"type:text"`
	BannedBy    string `json:"banned_by" gorm:"type:varchar(36)"`
}

func (BanEntry) TableName() string { return "ban_list" }

type SavedSearch struct {
	Base
	UserID  string         `json:"user_id" gorm:"type:varchar(36);index"`
	Name    string         `json:"name" gorm:"size:128"`
	Filters datatypes.JSON `json:"filters"`
}
