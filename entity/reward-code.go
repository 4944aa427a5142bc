package entity

import (
	"strings"

	"github.com/google/uuid"
)

const rewardCodePrefix = "ENGAGE"

// NewRewardCode produces an unpredictable one-time coupon code in the
// source's ENGAGEXXXXXX scheme. Codes are caller-generated so both coupon
// providers store the exact string we hand to the user.
func NewRewardCode() string {
	entropy := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return rewardCodePrefix + entropy[:6]
}
