package bonus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{ClaimStatusPending, ClaimStatusClaimed, true},
		{ClaimStatusClaimed, ClaimStatusActive, true},
		{ClaimStatusClaimed, ClaimStatusCancelled, true},
		{ClaimStatusActive, ClaimStatusCompleted, true},
		{ClaimStatusActive, ClaimStatusExpired, true},
		{ClaimStatusActive, ClaimStatusForfeited, true},

		{ClaimStatusPending, ClaimStatusActive, false},
		{ClaimStatusPending, ClaimStatusCompleted, false},
		{ClaimStatusClaimed, ClaimStatusCompleted, false},
		{ClaimStatusClaimed, ClaimStatusExpired, false},
		{ClaimStatusActive, ClaimStatusCancelled, false},
		{ClaimStatusCompleted, ClaimStatusActive, false},
		{ClaimStatusExpired, ClaimStatusActive, false},
		{ClaimStatusCancelled, ClaimStatusClaimed, false},
		{ClaimStatusForfeited, ClaimStatusActive, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []string{ClaimStatusCompleted, ClaimStatusExpired, ClaimStatusCancelled, ClaimStatusForfeited} {
		assert.True(t, TerminalStatus(status), status)
	}
	for _, status := range []string{ClaimStatusPending, ClaimStatusClaimed, ClaimStatusActive} {
		assert.False(t, TerminalStatus(status), status)
	}
}
