package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEligible(t *testing.T) {
	tests := []struct {
		name      string
		referrals int64
		diamonds  int64
		purchase  bool
		want      bool
	}{
		{name: "one referral rich", referrals: 1, diamonds: 1000, want: false},
		{name: "two referrals with purchase", referrals: 2, diamonds: 0, purchase: true, want: true},
		{name: "two referrals at threshold", referrals: 2, diamonds: 150, want: true},
		{name: "two referrals below threshold", referrals: 2, diamonds: 149, want: false},
		{name: "many referrals nothing else", referrals: 10, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.referrals, 2, tt.diamonds, 150, tt.purchase))
		})
	}
}
