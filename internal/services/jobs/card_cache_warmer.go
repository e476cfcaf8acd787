package jobs

import (
	"context"
	"log/slog"
	"time"
)

const cardCacheWarmerName = "card-cache-warmer"

// cardWarmer прогрев кэша вложений, реализует сервис картинок карт
type cardWarmer interface {
	Warm(ctx context.Context) (int, error)
}

// CardCacheWarmer раз в сутки загружает в Messenger картинки карт, которых ещё нет в кэше
type CardCacheWarmer struct {
	warmer   cardWarmer
	location *time.Location
	hour     int
	log      *slog.Logger
}

func NewCardCacheWarmer(warmer cardWarmer, location *time.Location, hour int, log *slog.Logger) *CardCacheWarmer {
	if location == nil {
		location = time.UTC
	}
	return &CardCacheWarmer{
		warmer:   warmer,
		location: location,
		hour:     hour,
		log:      log,
	}
}

func (j *CardCacheWarmer) Name() string {
	return cardCacheWarmerName
}

// NextRun каждый день в hour:00 по времени бота
func (j *CardCacheWarmer) NextRun(now time.Time) time.Time {
	local := now.In(j.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), j.hour, 0, 0, 0, j.location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (j *CardCacheWarmer) Run(ctx context.Context) error {
	uploaded, err := j.warmer.Warm(ctx)
	if err != nil {
		return err
	}
	j.log.Info("card attachment cache warmed", "uploaded", uploaded)
	return nil
}
