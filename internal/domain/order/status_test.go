package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPaid, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPending, StatusDelivered, true}, // forward skips allowed

		{StatusPending, StatusCancelled, true},
		{StatusPaid, StatusCancelled, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusShipped, StatusCancelled, false},

		// backward moves rejected
		{StatusPaid, StatusPending, false},
		{StatusDelivered, StatusShipped, false},
		{StatusProcessing, StatusPaid, false},

		// terminal states are absorbing
		{StatusCancelled, StatusPaid, false},
		{StatusCancelled, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},

		// replays converge
		{StatusPaid, StatusPaid, true},
		{StatusPending, StatusPending, true},
		{StatusCancelled, StatusCancelled, true},

		// unknown statuses never transition
		{Status("BOGUS"), StatusPaid, false},
		{StatusPending, Status("BOGUS"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusPaid.Terminal())
}
