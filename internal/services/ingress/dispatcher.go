package ingress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/kafka"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight сколько пользователей обрабатываются одновременно
const DefaultMaxInFlight = 64

// LocalDispatcher обрабатывает события в процессе. События одного отправителя
// идут строго по очереди в порядке поступления, разные отправители параллельно.
type LocalDispatcher struct {
	handler service.IEventHandler
	sem     *semaphore.Weighted
	log     *slog.Logger

	mu     sync.Mutex
	queues map[string][]domain.InboundEvent
	wg     sync.WaitGroup
}

func NewLocalDispatcher(handler service.IEventHandler, maxInFlight int64, log *slog.Logger) *LocalDispatcher {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &LocalDispatcher{
		handler: handler,
		sem:     semaphore.NewWeighted(maxInFlight),
		log:     log,
		queues:  make(map[string][]domain.InboundEvent),
	}
}

// Dispatch ставит события в очереди отправителей и сразу возвращается
func (d *LocalDispatcher) Dispatch(ctx context.Context, events []domain.InboundEvent) error {
	// обработка переживает HTTP-запрос, который её вызвал
	bg := context.WithoutCancel(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ev := range events {
		queue, running := d.queues[ev.SenderID]
		d.queues[ev.SenderID] = append(queue, ev)
		if !running {
			d.wg.Add(1)
			go d.drain(bg, ev.SenderID)
		}
	}
	return nil
}

// drain обрабатывает очередь отправителя, пока она не опустеет
func (d *LocalDispatcher) drain(ctx context.Context, sender string) {
	defer d.wg.Done()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.log.Error("failed to acquire dispatcher slot", "error", err, "sender_id", sender)
		d.mu.Lock()
		delete(d.queues, sender)
		d.mu.Unlock()
		return
	}
	defer d.sem.Release(1)

	for {
		d.mu.Lock()
		queue := d.queues[sender]
		if len(queue) == 0 {
			delete(d.queues, sender)
			d.mu.Unlock()
			return
		}
		ev := queue[0]
		d.queues[sender] = queue[1:]
		d.mu.Unlock()

		if err := d.handler.HandleEvent(ctx, ev); err != nil && !domain.IsBusinessError(err) {
			d.log.Error("failed to handle event",
				"error", err,
				"sender_id", ev.SenderID,
				"message_id", ev.MessageID,
			)
		}
	}
}

// Wait дожидается обработки всех поставленных событий
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}

// KafkaDispatcher публикует события в топик, ключ сообщения = sender id,
// поэтому события одного пользователя попадают в одну партицию
type KafkaDispatcher struct {
	producer kafka.IKafkaProducer
	log      *slog.Logger
}

func NewKafkaDispatcher(producer kafka.IKafkaProducer, log *slog.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, log: log}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, events []domain.InboundEvent) error {
	for _, ev := range events {
		if err := d.producer.PublishEvent(ctx, ev); err != nil {
			d.log.Error("failed to publish inbound event",
				"error", err,
				"sender_id", ev.SenderID,
				"message_id", ev.MessageID,
			)
			return fmt.Errorf("failed to publish inbound event: %w", err)
		}
	}
	return nil
}
