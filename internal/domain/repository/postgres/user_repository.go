package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
	"github.com/your-org/telegram-auth/internal/domain/models"
)

// UserRepositoryPostgres implements repository.UserRepository on pgx.
type UserRepositoryPostgres struct {
	pool *pgxpool.Pool
}

func NewUserRepositoryPostgres(pool *pgxpool.Pool) *UserRepositoryPostgres {
	return &UserRepositoryPostgres{pool: pool}
}

// Upsert inserts the user or overwrites its display attributes in a
// single statement, so concurrent logins for the same id cannot race a
// read-then-write pair.
func (r *UserRepositoryPostgres) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			photo_url = EXCLUDED.photo_url,
			updated_at = NOW()
		RETURNING telegram_id, username, first_name, last_name, photo_url, created_at, updated_at
	`
	out := &models.User{}
	err := r.pool.QueryRow(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName, user.PhotoURL,
	).Scan(
		&out.TelegramID, &out.Username, &out.FirstName, &out.LastName, &out.PhotoURL,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to upsert user: %v", domainErrors.ErrStorage, err)
	}
	return out, nil
}

func (r *UserRepositoryPostgres) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `
		SELECT telegram_id, username, first_name, last_name, photo_url, created_at, updated_at
		FROM users
		WHERE telegram_id = $1
	`
	user := &models.User{}
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(
		&user.TelegramID, &user.Username, &user.FirstName, &user.LastName, &user.PhotoURL,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to find user by telegram id: %v", domainErrors.ErrStorage, err)
	}
	return user, nil
}
