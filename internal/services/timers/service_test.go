package timers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now time.Time) (*Service, *inmemory.TimerRepo) {
	repo := inmemory.NewTimerRepo()
	svc := New(repo, Config{MaxAttempts: 2}, nil, logger.Nop()).WithClock(func() time.Time { return now })
	return svc, repo
}

func TestService_RunAfter_FiresOnceWhenDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)

	var got []domain.TimerPayload
	svc.Register(domain.TimerFollowupExpiry, func(_ context.Context, timer *domain.Timer) error {
		var p domain.TimerPayload
		require.NoError(t, json.Unmarshal(timer.Payload, &p))
		got = append(got, p)
		return nil
	})

	handle, err := svc.RunAfter(ctx, 10*time.Minute, domain.TimerFollowupExpiry, domain.TimerPayload{MessengerID: "psid-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, handle)

	n, err := svc.RunDue(ctx, now.Add(9*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = svc.RunDue(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.RunDue(ctx, now.Add(20*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.Len(t, got, 1)
	assert.Equal(t, "psid-1", got[0].MessengerID)
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	svc, repo := newTestService(now)

	fired := 0
	svc.Register(domain.TimerQuotaReset, func(context.Context, *domain.Timer) error {
		fired++
		return nil
	})

	handle, err := svc.RunAt(ctx, now.Add(time.Hour), domain.TimerQuotaReset, domain.TimerPayload{MessengerID: "psid-1"})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, handle))
	assert.Empty(t, repo.Pending(domain.TimerQuotaReset))

	// повторная отмена и мусорный handle не ошибка
	require.NoError(t, svc.Cancel(ctx, handle))
	require.NoError(t, svc.Cancel(ctx, "not-a-uuid"))
	require.NoError(t, svc.Cancel(ctx, ""))

	_, err = svc.RunDue(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
}

func TestService_FailedHandlerIsRetriedThenMarkedFailed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	svc, repo := newTestService(now)

	calls := 0
	svc.Register(domain.TimerReadingCooldown, func(context.Context, *domain.Timer) error {
		calls++
		return errors.New("messenger down")
	})

	_, err := svc.RunAt(ctx, now, domain.TimerReadingCooldown, domain.TimerPayload{MessengerID: "psid-1"})
	require.NoError(t, err)

	_, err = svc.RunDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, repo.Pending(domain.TimerReadingCooldown), 1)

	_, err = svc.RunDue(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, repo.Pending(domain.TimerReadingCooldown))
	assert.Equal(t, 2, calls)

	_, err = svc.RunDue(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestService_BusinessErrorIsNotRetried(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	svc, repo := newTestService(now)

	svc.Register(domain.TimerReadingCooldown, func(context.Context, *domain.Timer) error {
		return domain.WrapBusinessError(domain.ErrNotFound)
	})

	_, err := svc.RunAt(ctx, now, domain.TimerReadingCooldown, domain.TimerPayload{MessengerID: "psid-1"})
	require.NoError(t, err)
	_, err = svc.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, repo.Pending(domain.TimerReadingCooldown))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(2))
	assert.Equal(t, time.Minute, backoff(10))
}
