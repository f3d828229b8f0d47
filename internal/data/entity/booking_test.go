package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	cases := []struct {
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusExpired, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusPending, BookingStatusPending, false},
		{BookingStatusConfirmed, BookingStatusExpired, false},
		{BookingStatusConfirmed, BookingStatusPending, false},
		{BookingStatusConfirmed, BookingStatusCancelled, false},
		{BookingStatusExpired, BookingStatusConfirmed, false},
		{BookingStatusExpired, BookingStatusPending, false},
		{BookingStatusCancelled, BookingStatusConfirmed, false},
		{BookingStatusCancelled, BookingStatusPending, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestBookingTransitionTo(t *testing.T) {
	b := &Booking{Status: BookingStatusPending}

	err := b.TransitionTo(BookingStatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, BookingStatusConfirmed, b.Status)

	// Terminal, no way back or sideways
	err = b.TransitionTo(BookingStatusExpired)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, BookingStatusConfirmed, b.Status)

	err = b.TransitionTo(BookingStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBookingStatusIsTerminal(t *testing.T) {
	assert.False(t, BookingStatusPending.IsTerminal())
	assert.True(t, BookingStatusConfirmed.IsTerminal())
	assert.True(t, BookingStatusExpired.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
}
