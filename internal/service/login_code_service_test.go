package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
	"github.com/your-org/telegram-auth/internal/domain/models"
	"github.com/your-org/telegram-auth/internal/domain/repository/memory"
)

func newTestLoginCodeService(repo *memory.LoginCodeRepositoryMemory) *LoginCodeService {
	return NewLoginCodeService(repo, 10*time.Minute, zap.NewNop())
}

func TestLoginCodeService_IssueConsume(t *testing.T) {
	repo := memory.NewLoginCodeRepositoryMemory()
	svc := newTestLoginCodeService(repo)
	ctx := context.Background()

	code, err := svc.Issue(ctx, 42)
	require.NoError(t, err)

	// Codes are canonical UUID strings.
	_, err = uuid.Parse(code)
	require.NoError(t, err)

	telegramID, err := svc.Consume(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int64(42), telegramID)
}

func TestLoginCodeService_ConsumeTwice(t *testing.T) {
	repo := memory.NewLoginCodeRepositoryMemory()
	svc := newTestLoginCodeService(repo)
	ctx := context.Background()

	code, err := svc.Issue(ctx, 42)
	require.NoError(t, err)

	_, err = svc.Consume(ctx, code)
	require.NoError(t, err)

	_, err = svc.Consume(ctx, code)
	assert.ErrorIs(t, err, domainErrors.ErrCodeNotFound)
}

func TestLoginCodeService_ConsumeUnknown(t *testing.T) {
	svc := newTestLoginCodeService(memory.NewLoginCodeRepositoryMemory())

	_, err := svc.Consume(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domainErrors.ErrCodeNotFound)
}

func TestLoginCodeService_ConsumeExpired(t *testing.T) {
	repo := memory.NewLoginCodeRepositoryMemory()
	svc := newTestLoginCodeService(repo)
	ctx := context.Background()

	// Plant a structurally present but already expired record.
	expired := &models.LoginCode{
		Code:       uuid.NewString(),
		TelegramID: 42,
		ExpiresAt:  time.Now().Add(-time.Second),
	}
	require.NoError(t, repo.Create(ctx, expired))

	_, err := svc.Consume(ctx, expired.Code)
	assert.ErrorIs(t, err, domainErrors.ErrCodeNotFound)
}

func TestLoginCodeService_ConcurrentConsumeSingleWinner(t *testing.T) {
	repo := memory.NewLoginCodeRepositoryMemory()
	svc := newTestLoginCodeService(repo)
	ctx := context.Background()

	code, err := svc.Issue(ctx, 42)
	require.NoError(t, err)

	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	notFound := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			telegramID, err := svc.Consume(ctx, code)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				assert.Equal(t, int64(42), telegramID)
				successes++
			} else {
				assert.ErrorIs(t, err, domainErrors.ErrCodeNotFound)
				notFound++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one consumer must win")
	assert.Equal(t, attempts-1, notFound)
}

func TestLoginCodeService_CodesAreUnique(t *testing.T) {
	repo := memory.NewLoginCodeRepositoryMemory()
	svc := newTestLoginCodeService(repo)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := svc.Issue(ctx, int64(i))
		require.NoError(t, err)
		require.False(t, seen[code], "duplicate code issued")
		seen[code] = true
	}
}
