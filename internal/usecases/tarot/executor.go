package tarot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
)

// execution состояние одного прогона команд: что уже вытянуто, сгенерировано и записано
type execution struct {
	svc     *Service
	user    *domain.User
	reading *domain.Reading
	now     time.Time
	log     *slog.Logger

	cards          domain.Cards
	interpretation *service.Interpretation
	checkoutPlan   domain.SubscriptionTier
	checkoutURL    string
	releasedExpiry *string

	// wrote true после первой успешной записи, до неё конфликт значит проигранный захват
	wrote bool
}

func (r *execution) exec(ctx context.Context, commands []Command) error {
	for _, cmd := range commands {
		if err := r.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *execution) run(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case SendText:
		r.sendText(ctx, c)
		return nil
	case SendImages:
		r.sendImages(ctx)
		return nil
	case MutateUser:
		return r.mutateUser(ctx, c)
	case MutateReading:
		return r.mutateReading(ctx, c)
	case ArmTimer:
		return r.armTimer(ctx, c)
	case CancelTimer:
		r.cancelTimer(ctx, c)
		return nil
	case InvokeCardDraw:
		cards, err := r.svc.Drawer.Draw()
		if err != nil {
			r.log.Error("failed to draw cards", "error", err)
			return fmt.Errorf("failed to draw cards: %w", err)
		}
		r.cards = cards
		return nil
	case InvokeInterpretation:
		return r.interpret(ctx, c)
	case InvokePaymentCheckout:
		r.checkout(ctx, c)
		return nil
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

// sendText ошибки отправки не прерывают переход: состояние уже записано
func (r *execution) sendText(ctx context.Context, c SendText) {
	text, replies := r.resolveText(c)
	if text == "" {
		return
	}
	if err := r.svc.Messenger.SendText(ctx, r.user.MessengerID, text, replies); err != nil {
		r.log.Warn("failed to send message", "error", err, "source", c.Source)
	}
}

func (r *execution) resolveText(c SendText) (string, []domain.QuickReplyOption) {
	switch c.Source {
	case TextCards:
		return texts.FormatCards(r.cards), nil
	case TextInterpretation, TextFollowupAnswer:
		if r.interpretation == nil {
			return "", nil
		}
		return r.interpretation.Text, nil
	case TextFollowupStatus:
		if r.reading == nil {
			return "", nil
		}
		remaining := r.reading.RemainingFollowups()
		status := texts.FormatRemainingQuestions(remaining, r.reading.MaxFollowups)
		switch {
		case c.Text != "":
			status = c.Text + "\n\n" + status
		case remaining == 0:
			status = status + "\n\n" + texts.FollowupLimitReached
		}
		return status, texts.FollowupMenu(remaining)
	case TextCheckoutLink:
		if r.checkoutURL == "" {
			return texts.UpgradeUnavailable, texts.MainMenu()
		}
		return texts.FormatCheckoutLink(r.checkoutPlan, r.checkoutURL), nil
	default:
		return c.Text, c.QuickReplies
	}
}

func (r *execution) sendImages(ctx context.Context) {
	if r.svc.Images == nil || len(r.cards) == 0 {
		return
	}
	ids, err := r.svc.Images.AttachmentIDs(ctx, r.cards)
	if err != nil {
		r.log.Warn("card images unavailable, sending text only", "error", err)
		return
	}
	if err := r.svc.Messenger.SendImages(ctx, r.user.MessengerID, ids); err != nil {
		r.log.Warn("failed to send card images", "error", err)
	}
}

func (r *execution) mutateUser(ctx context.Context, c MutateUser) error {
	return r.updateUser(ctx, func(u *domain.User) {
		if c.TopState != nil {
			u.TopState = *c.TopState
		}
		if c.Birthdate != nil {
			birthdate := *c.Birthdate
			u.Birthdate = &birthdate
		}
		if c.CountReading {
			u.RecordReading(r.now, r.svc.Location)
		}
		if c.ClearNotification {
			u.PendingNotificationHandle = nil
		}
	})
}

// updateUser CAS-запись пользователя. Конфликт до первой записи значит, что
// событие обработал другой вызов. После неё изменение переприменяется к свежей версии.
func (r *execution) updateUser(ctx context.Context, mutate func(u *domain.User)) error {
	from := r.user.TopState
	next := *r.user
	mutate(&next)
	next.UpdatedAt = r.svc.now()

	err := r.svc.UserRepo.Update(ctx, &next)
	if errors.Is(err, domain.ErrStateConflict) {
		if !r.wrote {
			return errClaimLost
		}
		r.svc.Metrics.RecordStateConflict()
		fresh, gerr := r.svc.UserRepo.GetByID(ctx, r.user.ID)
		if gerr != nil {
			r.log.Error("failed to reload user after conflict", "error", gerr)
			return fmt.Errorf("failed to reload user: %w", gerr)
		}
		from = fresh.TopState
		next = *fresh
		mutate(&next)
		next.UpdatedAt = r.svc.now()
		err = r.svc.UserRepo.Update(ctx, &next)
	}
	if err != nil {
		r.log.Error("failed to update user", "error", err)
		return fmt.Errorf("failed to update user: %w", err)
	}

	if from != next.TopState {
		r.svc.Metrics.RecordTransition(string(from), string(next.TopState))
	}
	*r.user = next
	r.wrote = true
	return nil
}

func (r *execution) mutateReading(ctx context.Context, c MutateReading) error {
	if c.Op == ReadingCreate {
		return r.createReading(ctx, c.Question)
	}
	if r.reading == nil {
		return fmt.Errorf("%w: no reading for %s", domain.ErrInvalidTransition, c.Op)
	}
	if err := r.reading.OwnedBy(r.user.ID); err != nil {
		r.log.Warn("reading is not owned by user", "reading_id", r.reading.ID)
		return err
	}

	switch c.Op {
	case ReadingStartFollowups:
		return r.updateReading(ctx, func(rd *domain.Reading) error {
			if err := rd.Complete(r.now); err != nil {
				return err
			}
			return rd.StartFollowupSession(r.user.Tier, r.now)
		})

	case ReadingAppendFollowup:
		if r.interpretation == nil {
			return fmt.Errorf("%w: follow-up without answer", domain.ErrInvalidTransition)
		}
		err := r.updateReading(ctx, func(rd *domain.Reading) error {
			return rd.RecordFollowup(c.Question, r.interpretation.Text, r.now)
		})
		if err == nil {
			r.svc.Metrics.RecordFollowup(string(r.user.Tier))
		}
		return err

	case ReadingEnd:
		prev := r.reading.ExpiryTimerHandle
		if err := r.updateReading(ctx, func(rd *domain.Reading) error {
			return rd.EndSession(r.now)
		}); err != nil {
			return err
		}
		r.releasedExpiry = prev
		return nil
	}
	return fmt.Errorf("unknown reading op %q", c.Op)
}

func (r *execution) createReading(ctx context.Context, question string) error {
	if r.interpretation == nil || len(r.cards) == 0 {
		return fmt.Errorf("%w: reading without cards or interpretation", domain.ErrInvalidTransition)
	}
	reading := domain.NewReading(r.user.ID, question, r.cards, r.interpretation.Text, r.now)
	if err := r.svc.ReadingRepo.Create(ctx, reading); err != nil {
		r.log.Error("failed to create reading", "error", err)
		return fmt.Errorf("failed to create reading: %w", err)
	}
	r.reading = reading
	r.wrote = true
	r.svc.Metrics.RecordReading(string(r.user.Tier))
	r.log.Info("reading created", "reading_id", reading.ID, "cards", reading.Cards.Names())
	return nil
}

// updateReading CAS-запись расклада, конфликт обрабатывается как в updateUser.
// Если после перечитывания изменение уже неприменимо (сессию закрыл таймер),
// запись пропускается: пользователь свой ответ уже получил.
func (r *execution) updateReading(ctx context.Context, mutate func(rd *domain.Reading) error) error {
	next := cloneReading(r.reading)
	if err := mutate(next); err != nil {
		return err
	}

	err := r.svc.ReadingRepo.Update(ctx, next)
	if errors.Is(err, domain.ErrStateConflict) {
		if !r.wrote {
			return errClaimLost
		}
		r.svc.Metrics.RecordStateConflict()
		fresh, gerr := r.svc.ReadingRepo.GetByID(ctx, r.reading.ID)
		if gerr != nil {
			r.log.Error("failed to reload reading after conflict", "error", gerr, "reading_id", r.reading.ID)
			return fmt.Errorf("failed to reload reading: %w", gerr)
		}
		next = cloneReading(fresh)
		if merr := mutate(next); merr != nil {
			r.log.Info("reading changed concurrently, update skipped",
				"reading_id", fresh.ID,
				"follow_state", fresh.FollowState,
				"reason", merr,
			)
			r.reading = fresh
			return nil
		}
		err = r.svc.ReadingRepo.Update(ctx, next)
	}
	if err != nil {
		r.log.Error("failed to update reading", "error", err, "reading_id", next.ID)
		return fmt.Errorf("failed to update reading: %w", err)
	}
	r.reading = next
	r.wrote = true
	return nil
}

func cloneReading(rd *domain.Reading) *domain.Reading {
	next := *rd
	next.History = append(domain.ConversationHistory(nil), rd.History...)
	return &next
}

// armTimer взводит таймер и сохраняет handle у владельца. Ошибка планировщика
// не прерывает переход.
func (r *execution) armTimer(ctx context.Context, c ArmTimer) error {
	payload := domain.TimerPayload{MessengerID: r.user.MessengerID}
	at := c.At
	if c.After > 0 {
		at = r.svc.now().Add(c.After)
	}

	switch c.Purpose {
	case domain.TimerQuotaReset:
		r.cancelHandle(ctx, r.user.PendingNotificationHandle)
		handle, err := r.svc.Timers.RunAt(ctx, at, c.Purpose, payload)
		if err != nil {
			r.log.Error("failed to arm quota reset timer", "error", err)
			return nil
		}
		return r.updateUser(ctx, func(u *domain.User) {
			u.PendingNotificationHandle = &handle
		})

	case domain.TimerFollowupExpiry:
		if r.reading == nil {
			return nil
		}
		r.cancelHandle(ctx, r.reading.ExpiryTimerHandle)
		readingID := r.reading.ID
		payload.ReadingID = &readingID
		handle, err := r.svc.Timers.RunAt(ctx, at, c.Purpose, payload)
		if err != nil {
			r.log.Error("failed to arm follow-up expiry timer", "error", err)
			return nil
		}
		if err := r.updateReading(ctx, func(rd *domain.Reading) error {
			if !rd.FollowState.IsFollowupActive() {
				return fmt.Errorf("%w: arm expiry in %s", domain.ErrInvalidTransition, rd.FollowState)
			}
			rd.ExpiryTimerHandle = &handle
			return nil
		}); err != nil {
			return err
		}
		// сессия закрылась раньше, новый таймер никому не нужен
		if r.reading.ExpiryTimerHandle == nil || *r.reading.ExpiryTimerHandle != handle {
			r.cancelHandle(ctx, &handle)
		}
		return nil

	default:
		if _, err := r.svc.Timers.RunAt(ctx, at, c.Purpose, payload); err != nil {
			r.log.Error("failed to arm timer", "error", err, "purpose", c.Purpose)
		}
		return nil
	}
}

func (r *execution) cancelTimer(ctx context.Context, c CancelTimer) {
	switch c.Purpose {
	case domain.TimerFollowupExpiry:
		handle := r.releasedExpiry
		if handle == nil && r.reading != nil {
			handle = r.reading.ExpiryTimerHandle
		}
		r.cancelHandle(ctx, handle)
	case domain.TimerQuotaReset:
		r.cancelHandle(ctx, r.user.PendingNotificationHandle)
	}
}

func (r *execution) cancelHandle(ctx context.Context, handle *string) {
	if handle == nil || *handle == "" {
		return
	}
	if err := r.svc.Timers.Cancel(ctx, *handle); err != nil {
		r.log.Warn("failed to cancel timer", "error", err, "handle", *handle)
	}
}

func (r *execution) interpret(ctx context.Context, c InvokeInterpretation) error {
	req := service.InterpretRequest{
		Mode:     c.Mode,
		Question: c.Question,
		Name:     r.user.DisplayName(),
		Fallback: c.Fallback,
		Cards:    r.cards,
	}
	if r.user.Birthdate != nil {
		req.Birthdate = *r.user.Birthdate
	}
	if c.Mode == service.InterpretFollowup {
		if r.reading == nil {
			return fmt.Errorf("%w: follow-up without reading", domain.ErrInvalidTransition)
		}
		req.Cards = r.reading.Cards
		req.History = r.reading.FollowupContext()
	}

	res, err := r.svc.Interpreter.Interpret(ctx, req)
	if err != nil {
		r.log.Error("failed to interpret cards", "error", err, "mode", c.Mode)
		return fmt.Errorf("failed to interpret cards: %w", err)
	}
	r.interpretation = res
	return nil
}

func (r *execution) checkout(ctx context.Context, c InvokePaymentCheckout) {
	r.checkoutPlan = c.Plan
	if r.svc.Checkout == nil {
		return
	}
	url, err := r.svc.Checkout.CreateCheckout(ctx, r.user.MessengerID, c.Plan)
	if err != nil {
		r.log.Error("failed to create checkout", "error", err, "plan", c.Plan)
		return
	}
	r.checkoutURL = url
}
