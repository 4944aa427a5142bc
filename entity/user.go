package entity

import (
	"strings"
	"time"
)

// User is a Telegram account known to the bot. Created on first contact,
// never deleted. InstagramHandle is set by the user via /insta and may be
// absent; Points only grow under normal operation.
type User struct {
	TelegramId       int64     `json:"telegram_id"`
	TelegramUsername string    `json:"telegram_username"`
	InstagramHandle  string    `json:"instagram_handle"`
	Points           int64     `json:"points"`
	ReferralToken    string    `json:"referral_token"`
	RegisteredAt     time.Time `json:"registered_at"`
}

func (u *User) HasHandle() bool {
	return u != nil && u.InstagramHandle != ""
}

// NormalizeHandle strips the optional @ prefix and lowercases, the canonical
// form handles are stored and compared in.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
