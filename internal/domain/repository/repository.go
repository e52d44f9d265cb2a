package repository

import (
	"context"

	"github.com/your-org/telegram-auth/internal/domain/models"
)

// UserRepository persists identities keyed by Telegram numeric id.
type UserRepository interface {
	// Upsert creates the user or overwrites its display attributes.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	// FindByTelegramID returns domainErrors.ErrNotFound when absent.
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

// LoginCodeRepository persists single-use login codes. Consume must be
// atomic: concurrent calls for the same code yield exactly one success.
type LoginCodeRepository interface {
	Create(ctx context.Context, code *models.LoginCode) error
	// Consume deletes the unexpired record for code and returns the
	// bound telegram id, or domainErrors.ErrCodeNotFound.
	Consume(ctx context.Context, code string) (int64, error)
}
