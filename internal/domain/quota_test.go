package domain

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_DailyQuota_CalendarDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	u := NewUser("psid", t0)
	morning := time.Date(2025, 10, 15, 0, 5, 0, 0, loc)
	require.True(t, u.CanReadToday(morning, loc))

	u.RecordReading(morning, loc)
	assert.False(t, u.CanReadToday(morning.Add(23*time.Hour), loc))
	assert.Error(t, u.CheckDailyQuota(morning.Add(23*time.Hour+54*time.Minute), loc))

	// ровно в полночь лимит снова доступен, хотя 24 часа не прошли
	midnight := time.Date(2025, 10, 16, 0, 0, 0, 0, loc)
	assert.True(t, u.CanReadToday(midnight, loc))
	assert.Equal(t, midnight, NextMidnight(morning, loc))
}

func TestUser_DailyQuota_PerTier(t *testing.T) {
	now := t0
	tests := []struct {
		tier    SubscriptionTier
		allowed int
	}{
		{TierFree, 1},
		{TierMystic, 5},
		{TierOracle, 50},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			u := NewUser("psid", now)
			u.Tier = tt.tier
			for i := 0; i < tt.allowed; i++ {
				require.True(t, u.CanReadToday(now, time.UTC), "reading %d", i+1)
				u.RecordReading(now, time.UTC)
			}
			if tt.tier.IsUnlimited() {
				assert.True(t, u.CanReadToday(now, time.UTC))
				assert.Equal(t, UnlimitedReadings, u.ReadingsLeftToday(now, time.UTC))
				return
			}
			assert.False(t, u.CanReadToday(now, time.UTC))
			assert.True(t, IsQuotaExceeded(u.CheckDailyQuota(now, time.UTC)))
		})
	}
}

func TestUser_RecordReading_ResetsCounterOnNewDay(t *testing.T) {
	u := NewUser("psid", t0)
	u.Tier = TierMystic
	u.RecordReading(t0, time.UTC)
	u.RecordReading(t0, time.UTC)
	assert.Equal(t, 2, u.ReadingsToday)

	next := t0.Add(24 * time.Hour)
	u.RecordReading(next, time.UTC)
	assert.Equal(t, 1, u.ReadingsToday)
	assert.Equal(t, 4, u.ReadingsLeftToday(next, time.UTC))
}
