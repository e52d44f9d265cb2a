package memory

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
	"github.com/your-org/telegram-auth/internal/domain/models"
)

// LoginCodeRepositoryMemory is the redis-less login code store used in
// tests and single-process development runs. Expiry is checked lazily
// at consumption time; a never-consumed expired code lingers until the
// process exits, which is acceptable at login-code issuance volume.
type LoginCodeRepositoryMemory struct {
	mu    sync.Mutex
	codes map[string]models.LoginCode
}

func NewLoginCodeRepositoryMemory() *LoginCodeRepositoryMemory {
	return &LoginCodeRepositoryMemory{codes: make(map[string]models.LoginCode)}
}

func (r *LoginCodeRepositoryMemory) Create(ctx context.Context, code *models.LoginCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.Code] = *code
	return nil
}

// Consume performs the find-and-delete under one lock acquisition, so
// concurrent calls for the same code see exactly one winner.
func (r *LoginCodeRepositoryMemory) Consume(ctx context.Context, code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.codes[code]
	if !ok {
		return 0, domainErrors.ErrCodeNotFound
	}
	delete(r.codes, code)
	if time.Now().After(rec.ExpiresAt) {
		// Expired codes collapse into the same outward signal as
		// unknown ones.
		return 0, domainErrors.ErrCodeNotFound
	}
	return rec.TelegramID, nil
}

// Len reports the number of stored codes, consumed or not.
func (r *LoginCodeRepositoryMemory) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}
