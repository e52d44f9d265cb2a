package models

import "time"

// LoginCode is a single-use exchange token minted by the bot on behalf
// of an identity. It is consumed at most once and rejected after
// ExpiresAt; expiry is enforced at consumption time rather than by an
// active sweep.
type LoginCode struct {
	Code       string    `json:"code"`
	TelegramID int64     `json:"telegram_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}
