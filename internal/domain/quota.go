package domain

import "time"

// sameDay календарный день в loc
func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// NextMidnight начало следующего календарного дня в loc
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// ReadingsUsedToday сколько раскладов уже сделано в текущий календарный день
func (u *User) ReadingsUsedToday(now time.Time, loc *time.Location) int {
	if u.LastReadingAt == nil || !sameDay(*u.LastReadingAt, now, loc) {
		return 0
	}
	return u.ReadingsToday
}

// ReadingsLeftToday остаток дневного лимита, UnlimitedReadings для безлимита
func (u *User) ReadingsLeftToday(now time.Time, loc *time.Location) int {
	limit := u.Tier.DailyReadingLimit()
	if limit == UnlimitedReadings {
		return UnlimitedReadings
	}
	left := limit - u.ReadingsUsedToday(now, loc)
	if left < 0 {
		return 0
	}
	return left
}

// CanReadToday true если дневной лимит не исчерпан
func (u *User) CanReadToday(now time.Time, loc *time.Location) bool {
	left := u.ReadingsLeftToday(now, loc)
	return left == UnlimitedReadings || left > 0
}

// CheckDailyQuota QuotaExceededError если лимит исчерпан
func (u *User) CheckDailyQuota(now time.Time, loc *time.Location) error {
	if u.CanReadToday(now, loc) {
		return nil
	}
	return &QuotaExceededError{Kind: QuotaDaily, Limit: u.Tier.DailyReadingLimit()}
}

// RecordReading учитывает расклад в дневном счётчике, счётчик сбрасывается в полночь
func (u *User) RecordReading(now time.Time, loc *time.Location) {
	u.ReadingsToday = u.ReadingsUsedToday(now, loc) + 1
	u.LastReadingAt = &now
}
