package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/your-org/telegram-auth/internal/domain/models"
)

// VerifyWidgetPayload checks the "hash" field of a Telegram Login
// Widget payload. The signing key is SHA256 of the bot token; the
// check string is every field except "hash", sorted bytewise by name,
// rendered as "name=value" lines joined with "\n".
//
// A missing or malformed hash yields false rather than an error: the
// caller never learns which part of the check failed.
func VerifyWidgetPayload(data models.TelegramAuthData, botToken string) bool {
	if len(data) == 0 || botToken == "" {
		return false
	}
	receivedHash, ok := data["hash"].(string)
	if !ok || receivedHash == "" {
		return false
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		if key == "hash" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+formatValue(data[key]))
	}
	dataCheckString := strings.Join(pairs, "\n")

	secretKey := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(dataCheckString))
	calculated := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal rather than ==: hash comparison must not leak timing.
	return hmac.Equal([]byte(calculated), []byte(receivedHash))
}

// formatValue renders a payload value exactly the way Telegram
// serializes it when signing: decimal integers without exponent or
// trailing zeros. Mismatched stringification of numeric fields is the
// classic way to break verification of otherwise valid payloads.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ProfileFromPayload extracts the identity fields from an already
// verified payload.
func ProfileFromPayload(data models.TelegramAuthData) (*models.TelegramProfile, error) {
	id, err := payloadInt64(data["id"])
	if err != nil {
		return nil, fmt.Errorf("telegram user id: %w", err)
	}
	if id <= 0 {
		return nil, errors.New("invalid telegram user id")
	}
	return &models.TelegramProfile{
		ID:        id,
		Username:  payloadString(data["username"]),
		FirstName: payloadString(data["first_name"]),
		LastName:  payloadString(data["last_name"]),
		PhotoURL:  payloadString(data["photo_url"]),
	}, nil
}

func payloadInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case json.Number:
		return v.Int64()
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, errors.New("field is missing")
	default:
		return 0, fmt.Errorf("unsupported field type %T", value)
	}
}

func payloadString(value interface{}) string {
	s, _ := value.(string)
	return s
}
