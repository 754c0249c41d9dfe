package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyPrice(t *testing.T) {
	rent, sale := 45000.0, 9500000.0
	assert.Equal(t, rent, Property{ListingMode: ModeRent, RentPrice: &rent}.Price())
	assert.Equal(t, rent, Property{ListingMode: ModeRentToOwn, RentPrice: &rent}.Price())
	assert.Equal(t, sale, Property{ListingMode: ModeSale, SalePrice: &sale, RentPrice: &rent}.Price())
	assert.Zero(t, Property{ListingMode: ModeSale}.Price())
}

func TestCanOwnerMoveTo(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{ListingActive, ListingPaused, true},
		{ListingActive, ListingArchived, true},
		{ListingPaused, ListingActive, true},
		{ListingDraft, ListingArchived, true},
		{ListingDraft, ListingActive, false},
		{ListingRemoved, ListingActive, false},
		{ListingInactive, ListingActive, false},
		{ListingArchived, ListingActive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Property{Status: tt.from}.CanOwnerMoveTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestListingAllowanceExhausted(t *testing.T) {
	assert.False(t, ListingAllowance{FreeListings: 1}.Exhausted())
	assert.True(t, ListingAllowance{FreeListings: 1, UsedListings: 1}.Exhausted())
}

func TestTransactionTerminal(t *testing.T) {
	assert.False(t, Transaction{Status: TxInitiated}.Terminal())
	assert.False(t, Transaction{Status: TxPending}.Terminal())
	assert.True(t, Transaction{Status: TxSuccess}.Terminal())
	assert.True(t, Transaction{Status: TxFailed}.Terminal())
}

func TestTransactionExpired(t *testing.T) {
	code := 1032
	assert.True(t, Transaction{Status: TxFailed, ResultDesc: TxTimedOutDesc}.Expired())
	assert.False(t, Transaction{Status: TxFailed, ResultDesc: TxTimedOutDesc, ResultCode: &code}.Expired())
	assert.False(t, Transaction{Status: TxFailed, ResultDesc: "Request cancelled by user"}.Expired())
	assert.False(t, Transaction{Status: TxPending}.Expired())
}

func TestSignupRoles(t *testing.T) {
	assert.True(t, IsSignupRole(RoleTenant))
	assert.True(t, IsSignupRole(RoleHomeowner))
	assert.False(t, IsSignupRole(RoleAdmin))
}

func TestConversationHasParticipant(t *testing.T) {
	c := Conversation{ParticipantA: "a", ParticipantB: "b"}
	assert.True(t, c.HasParticipant("b"))
	assert.False(t, c.HasParticipant("c"))
}
