package models

import "time"

// User is an identity keyed by the Telegram numeric id. Display
// attributes are informational and overwritten on every successful
// login (last-write-wins).
type User struct {
	TelegramID int64     `json:"telegram_id" db:"telegram_id"`
	Username   string    `json:"username,omitempty" db:"username"`
	FirstName  string    `json:"first_name,omitempty" db:"first_name"`
	LastName   string    `json:"last_name,omitempty" db:"last_name"`
	PhotoURL   string    `json:"photo_url,omitempty" db:"photo_url"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
