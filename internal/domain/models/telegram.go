package models

// TelegramAuthData is the raw field map the login widget posts back,
// including the provider-computed "hash" signature. It only lives for
// the duration of a single verification call.
type TelegramAuthData map[string]interface{}

// TelegramProfile is the subset of widget fields describing the user,
// extracted after the payload signature has been verified.
type TelegramProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}
