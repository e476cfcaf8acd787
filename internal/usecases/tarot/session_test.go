package tarot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/pkg/logger"
	"github.com/gab-cat/tarot-bot/internal/ports/messenger"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/services/timers"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/deck"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const psid = "psid-1"

type fakeInterpreter struct {
	mu       sync.Mutex
	requests []service.InterpretRequest
	// latency вызывается на каждый запрос, имитирует долгий ответ модели
	latency func()
}

func (f *fakeInterpreter) Interpret(_ context.Context, req service.InterpretRequest) (*service.Interpretation, error) {
	if f.latency != nil {
		f.latency()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &service.Interpretation{Text: fmt.Sprintf("interp:%s:%s", req.Mode, req.Question)}, nil
}

func (f *fakeInterpreter) calls() []service.InterpretRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.InterpretRequest(nil), f.requests...)
}

type fakeImages struct{}

func (fakeImages) AttachmentIDs(_ context.Context, cards domain.Cards) ([]string, error) {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, "att-"+c.ID)
	}
	return ids, nil
}

type fakeCheckout struct {
	plans []domain.SubscriptionTier
	err   error
}

func (f *fakeCheckout) CreateCheckout(_ context.Context, _ string, plan domain.SubscriptionTier) (string, error) {
	f.plans = append(f.plans, plan)
	if f.err != nil {
		return "", f.err
	}
	return "https://checkout.example/" + string(plan), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// shift двигает часы без запуска таймеров
func (c *testClock) shift(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	svc      *Service
	users    *inmemory.UserRepo
	readings *inmemory.ReadingRepo
	timerDB  *inmemory.TimerRepo
	timers   *timers.Service
	outbox   *inmemory.Outbox
	interp   *fakeInterpreter
	clock    *testClock
	mid      int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	d, err := deck.Default()
	require.NoError(t, err)
	return newHarnessWithDeck(t, d)
}

func newHarnessWithDeck(t *testing.T, d *deck.Deck) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		ctx:      context.Background(),
		users:    inmemory.NewUserRepo(),
		readings: inmemory.NewReadingRepo(),
		timerDB:  inmemory.NewTimerRepo(),
		outbox:   inmemory.NewOutbox(logger.Nop()),
		interp:   &fakeInterpreter{},
		clock:    &testClock{now: machineNow},
	}
	h.timers = timers.New(h.timerDB, timers.Config{MaxAttempts: 3}, nil, logger.Nop()).WithClock(h.clock.Now)
	h.svc = New(
		h.users,
		h.readings,
		deck.NewDrawer(d, rand.New(rand.NewPCG(1, 2))),
		h.interp,
		fakeImages{},
		h.outbox,
		h.timers,
		time.UTC,
		nil,
		logger.Nop(),
	).WithClock(h.clock.Now)
	h.svc.Dedup = inmemory.NewCache()
	h.svc.RegisterTimers(h.timers)
	return h
}

func (h *harness) event(text, payload string) domain.InboundEvent {
	h.mid++
	kind := domain.EventText
	if payload != "" {
		kind = domain.EventQuickReply
	}
	return domain.InboundEvent{
		Kind:      kind,
		SenderID:  psid,
		MessageID: fmt.Sprintf("mid.%d", h.mid),
		Text:      text,
		Payload:   payload,
		Timestamp: h.clock.Now(),
	}
}

func (h *harness) send(text string) {
	h.t.Helper()
	require.NoError(h.t, h.svc.HandleEvent(h.ctx, h.event(text, "")))
}

func (h *harness) press(payload string) {
	h.t.Helper()
	require.NoError(h.t, h.svc.HandleEvent(h.ctx, h.event("", payload)))
}

// advance двигает часы и запускает созревшие таймеры
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.clock.mu.Lock()
	h.clock.now = h.clock.now.Add(d)
	now := h.clock.now
	h.clock.mu.Unlock()
	_, err := h.timers.RunDue(h.ctx, now)
	require.NoError(h.t, err)
}

func (h *harness) user() *domain.User {
	h.t.Helper()
	u, err := h.users.GetByMessengerID(h.ctx, psid)
	require.NoError(h.t, err)
	return u
}

func (h *harness) latestReading() *domain.Reading {
	h.t.Helper()
	readings, err := h.readings.GetLatestByUser(h.ctx, h.user().ID, 1)
	require.NoError(h.t, err)
	require.Len(h.t, readings, 1)
	return readings[0]
}

func (h *harness) lastMessage() inmemory.OutboundMessage {
	h.t.Helper()
	msgs := h.outbox.Messages(psid)
	require.NotEmpty(h.t, msgs)
	return msgs[len(msgs)-1]
}

// completeReading проводит нового пользователя через дату рождения и вопрос
func (h *harness) completeReading() {
	h.t.Helper()
	h.send("start")
	h.send("Oct 15")
	h.send("will I get the job")
}

func TestScenario_FirstReading(t *testing.T) {
	h := newHarness(t)

	h.send("start")
	assert.Equal(t, domain.TopStateWaitingBirthdate, h.user().TopState)
	assert.Equal(t, texts.PromptBirthdate, h.lastMessage().Text)

	h.send("Oct 15")
	u := h.user()
	assert.Equal(t, domain.TopStateWaitingQuestion, u.TopState)
	require.NotNil(t, u.Birthdate)
	assert.Equal(t, "Oct 15", *u.Birthdate)
	assert.True(t, strings.HasPrefix(h.lastMessage().Text, texts.BirthdateSaved))

	h.outbox.Reset()
	h.send("will I get the job")

	msgs := h.outbox.Messages(psid)
	require.Len(t, msgs, 5)
	assert.Equal(t, texts.ReadingInProgress, msgs[0].Text)
	assert.Len(t, msgs[1].AttachmentIDs, 3)
	assert.True(t, strings.HasPrefix(msgs[2].Text, texts.CardsDrawn))
	assert.Equal(t, "interp:initial:will I get the job", msgs[3].Text)
	assert.Contains(t, msgs[4].Text, texts.FollowupSessionAvailable)
	assert.Equal(t, texts.FollowupMenu(1), msgs[4].QuickReplies)

	u = h.user()
	assert.Equal(t, domain.TopStateReadingComplete, u.TopState)
	assert.Equal(t, 1, u.ReadingsToday)

	r := h.latestReading()
	assert.Equal(t, domain.FollowStateFollowupAvailable, r.FollowState)
	assert.Equal(t, 1, r.MaxFollowups)
	assert.Len(t, r.Cards, 3)
	require.NotNil(t, r.ExpiryTimerHandle)
	assert.Len(t, h.timerDB.Pending(domain.TimerFollowupExpiry), 1)

	calls := h.interp.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Oct 15", calls[0].Birthdate)

	h.advance(ReadingCooldown)
	assert.Equal(t, domain.TopStateNone, h.user().TopState)
}

func TestScenario_RepeatStartTooFresh(t *testing.T) {
	h := newHarness(t)
	h.completeReading()

	h.advance(2 * time.Second)
	h.send("start")

	assert.Equal(t, texts.ReadingTooFresh, h.lastMessage().Text)
	assert.Equal(t, 1, h.readings.Count())
	assert.Equal(t, domain.TopStateReadingComplete, h.user().TopState)
}

func TestScenario_SlowInterpretationKeepsCooldown(t *testing.T) {
	h := newHarness(t)
	h.send("start")
	h.send("Oct 15")

	h.interp.latency = func() { h.clock.shift(12 * time.Second) }
	h.send("will I get the job")
	finished := h.clock.Now()

	u := h.user()
	assert.Equal(t, domain.TopStateReadingComplete, u.TopState)
	assert.Equal(t, finished, u.UpdatedAt)

	expiry := h.timerDB.Pending(domain.TimerFollowupExpiry)
	require.Len(t, expiry, 1)
	assert.Equal(t, finished.Add(FollowupWindow), expiry[0].RunAt)

	h.advance(time.Second)
	assert.Equal(t, domain.TopStateReadingComplete, h.user().TopState)
	h.send("start")
	assert.Equal(t, texts.ReadingTooFresh, h.lastMessage().Text)

	h.advance(ReadingCooldown)
	assert.Equal(t, domain.TopStateNone, h.user().TopState)
	assert.Equal(t, domain.FollowStateFollowupAvailable, h.latestReading().FollowState)
}

func TestScenario_FollowupQuota(t *testing.T) {
	h := newHarness(t)
	h.completeReading()
	h.advance(ReadingCooldown)

	h.press(texts.PayloadFollowup)
	assert.Equal(t, texts.FollowupQuestionPrompt, h.lastMessage().Text)

	h.send("what about my salary?")
	r := h.latestReading()
	assert.Equal(t, 1, r.FollowupsUsed)
	assert.Equal(t, domain.FollowStateFollowupInProgress, r.FollowState)

	calls := h.interp.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, service.InterpretFollowup, calls[1].Mode)
	require.Len(t, calls[1].History, 1)
	assert.Equal(t, domain.HistoryInitialReading, calls[1].History[0].Kind)

	assert.Contains(t, h.outbox.Texts(psid), "interp:followup:what about my salary?")

	h.send("and what about my boss?")
	r = h.latestReading()
	assert.Equal(t, 1, r.FollowupsUsed)
	assert.Len(t, r.History, 3)
	assert.Equal(t, texts.FollowupLimitReached, h.lastMessage().Text)
	assert.Len(t, h.interp.calls(), 2)
}

func TestScenario_FollowupWindowExpires(t *testing.T) {
	h := newHarness(t)
	h.completeReading()
	h.advance(ReadingCooldown)

	h.advance(FollowupWindow - ReadingCooldown - time.Second)
	assert.Equal(t, domain.FollowStateFollowupAvailable, h.latestReading().FollowState)

	h.advance(time.Second)
	r := h.latestReading()
	assert.Equal(t, domain.FollowStateEnded, r.FollowState)
	assert.Equal(t, domain.HistorySessionEnd, r.History[len(r.History)-1].Kind)
	assert.Nil(t, r.ExpiryTimerHandle)

	last := h.lastMessage()
	assert.Equal(t, texts.FollowupWindowClosed, last.Text)
	assert.Equal(t, []domain.QuickReplyOption{texts.QuickStart}, last.QuickReplies)
}

func TestScenario_FollowupRearmsWindow(t *testing.T) {
	h := newHarness(t)
	h.completeReading()
	h.advance(ReadingCooldown)

	h.advance(5 * time.Minute)
	h.send("what about my salary?")
	assert.Len(t, h.timerDB.Pending(domain.TimerFollowupExpiry), 1)

	h.advance(6 * time.Minute)
	assert.True(t, h.latestReading().FollowState.IsFollowupActive())

	h.advance(4 * time.Minute)
	assert.Equal(t, domain.FollowStateEnded, h.latestReading().FollowState)
}

func TestScenario_EndSessionCancelsExpiry(t *testing.T) {
	h := newHarness(t)
	h.completeReading()
	h.advance(ReadingCooldown)

	h.press(texts.PayloadEndSession)
	assert.Equal(t, domain.FollowStateEnded, h.latestReading().FollowState)
	assert.Empty(t, h.timerDB.Pending(domain.TimerFollowupExpiry))
	assert.Equal(t, texts.FollowupSessionEnded, h.lastMessage().Text)

	h.advance(FollowupWindow)
	assert.Equal(t, texts.FollowupSessionEnded, h.lastMessage().Text)
}

// racingReadingRepo выполняет race перед n-й записью, имитируя параллельный переход
type racingReadingRepo struct {
	*inmemory.ReadingRepo
	mu      sync.Mutex
	updates int
	race    func(n int)
}

func (r *racingReadingRepo) Update(ctx context.Context, reading *domain.Reading) error {
	r.mu.Lock()
	r.updates++
	n, race := r.updates, r.race
	r.mu.Unlock()
	if race != nil {
		race(n)
	}
	return r.ReadingRepo.Update(ctx, reading)
}

func TestScenario_SessionEndedDuringFollowupAnswer(t *testing.T) {
	h := newHarness(t)
	racing := &racingReadingRepo{ReadingRepo: h.readings}
	h.svc.ReadingRepo = racing

	h.completeReading()
	h.advance(ReadingCooldown)

	// между записью ответа и перевзводом окна сессию закрывает другой переход
	racing.mu.Lock()
	racing.updates = 0
	racing.race = func(n int) {
		if n != 2 {
			return
		}
		rd := h.latestReading()
		require.NoError(t, rd.EndSession(h.clock.Now()))
		require.NoError(t, h.readings.Update(h.ctx, rd))
	}
	racing.mu.Unlock()

	h.send("what about my salary?")

	sent := h.outbox.Texts(psid)
	assert.Contains(t, sent, "interp:followup:what about my salary?")
	assert.NotContains(t, sent, texts.FollowupUnavailable)

	r := h.latestReading()
	assert.Equal(t, domain.FollowStateEnded, r.FollowState)
	assert.Equal(t, 1, r.FollowupsUsed)
	assert.Nil(t, r.ExpiryTimerHandle)
	assert.Empty(t, h.timerDB.Pending(domain.TimerFollowupExpiry))
}

// flakyUserRepo отдаёт ошибку чтения, пока failures > 0
type flakyUserRepo struct {
	*inmemory.UserRepo
	failures int
}

func (r *flakyUserRepo) GetByMessengerID(ctx context.Context, messengerID string) (*domain.User, error) {
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("connection reset")
	}
	return r.UserRepo.GetByMessengerID(ctx, messengerID)
}

func TestHandleEvent_RedeliveryAfterLoadError(t *testing.T) {
	h := newHarness(t)
	h.svc.UserRepo = &flakyUserRepo{UserRepo: h.users, failures: 1}

	ev := h.event("start", "")
	require.Error(t, h.svc.HandleEvent(h.ctx, ev))
	assert.Empty(t, h.outbox.Messages(psid))

	require.NoError(t, h.svc.HandleEvent(h.ctx, ev))
	assert.Equal(t, domain.TopStateWaitingBirthdate, h.user().TopState)
	assert.Equal(t, texts.PromptBirthdate, h.lastMessage().Text)
}

func TestHandleEvent_DuplicateDeliverySequential(t *testing.T) {
	h := newHarness(t)
	h.send("start")
	h.send("Oct 15")

	ev := h.event("will I get the job", "")
	require.NoError(t, h.svc.HandleEvent(h.ctx, ev))
	sent := len(h.outbox.Messages(psid))

	h.advance(ReadingCooldown)
	require.NoError(t, h.svc.HandleEvent(h.ctx, ev))

	assert.Equal(t, 1, h.readings.Count())
	assert.Len(t, h.outbox.Messages(psid), sent)
	assert.Equal(t, 0, h.latestReading().FollowupsUsed)
}

func TestHandleEvent_DuplicateDeliveryConcurrent(t *testing.T) {
	h := newHarness(t)
	h.send("start")
	h.send("Oct 15")
	// без кэша повторы отсекает только CAS
	h.svc.Dedup = nil

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		ev := h.event("will I get the job", "")
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.svc.HandleEvent(h.ctx, ev))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.readings.Count())
	interpretations := 0
	for _, text := range h.outbox.Texts(psid) {
		if text == "interp:initial:will I get the job" {
			interpretations++
		}
	}
	assert.Equal(t, 1, interpretations)
	assert.Equal(t, 1, h.user().ReadingsToday)
}

func TestScenario_CancelWhileWaiting(t *testing.T) {
	h := newHarness(t)
	h.send("start")
	h.press(texts.PayloadCancel)

	assert.Equal(t, domain.TopStateNone, h.user().TopState)
	assert.Equal(t, texts.Cancelled, h.lastMessage().Text)
}

func TestScenario_DailyQuotaAndNotification(t *testing.T) {
	h := newHarness(t)
	h.completeReading()
	h.advance(ReadingCooldown)
	h.press(texts.PayloadEndSession)

	h.send("start")
	assert.Contains(t, h.lastMessage().Text, "daily reading")
	assert.Equal(t, domain.TopStateNone, h.user().TopState)
	require.Len(t, h.timerDB.Pending(domain.TimerQuotaReset), 1)

	h.send("start")
	pending := h.timerDB.Pending(domain.TimerQuotaReset)
	require.Len(t, pending, 1, "arming replaces the previous quota timer")
	handle := h.user().PendingNotificationHandle
	require.NotNil(t, handle)
	assert.Equal(t, pending[0].Handle(), *handle)

	midnight := domain.NextMidnight(h.clock.Now(), time.UTC)
	h.advance(midnight.Sub(h.clock.Now()))

	assert.Contains(t, h.lastMessage().Text, texts.Bold("Your daily readings are now available!"))
	assert.Nil(t, h.user().PendingNotificationHandle)
	assert.Empty(t, h.timerDB.Pending(domain.TimerQuotaReset))

	h.send("start")
	assert.Equal(t, domain.TopStateWaitingQuestion, h.user().TopState)
}

func TestScenario_DrawFailureResetsState(t *testing.T) {
	full, err := deck.Default()
	require.NoError(t, err)
	h := newHarnessWithDeck(t, deck.New(full.Cards()[:2]))

	h.completeReading()

	assert.Equal(t, domain.TopStateNone, h.user().TopState)
	assert.Equal(t, texts.SomethingWrong, h.lastMessage().Text)
	assert.Equal(t, 0, h.readings.Count())
	assert.Equal(t, 0, h.user().ReadingsToday)
}

func TestScenario_StaleReadingInProgressRecovers(t *testing.T) {
	h := newHarness(t)
	h.send("start")
	h.send("Oct 15")

	u := h.user()
	u.TopState = domain.TopStateReadingInProgress
	require.NoError(t, h.users.Update(h.ctx, u))

	h.send("start")
	assert.Equal(t, domain.TopStateReadingInProgress, h.user().TopState)

	h.advance(3 * time.Minute)
	h.send("start")
	assert.Equal(t, domain.TopStateWaitingQuestion, h.user().TopState)
}

func TestScenario_Upgrade(t *testing.T) {
	h := newHarness(t)

	h.press(texts.PayloadUpgradeMystic)
	assert.Equal(t, texts.UpgradeUnavailable, h.lastMessage().Text)

	checkout := &fakeCheckout{}
	h.svc.Checkout = checkout
	h.press(texts.PayloadUpgradeMystic)
	assert.Equal(t, []domain.SubscriptionTier{domain.TierMystic}, checkout.plans)
	assert.Contains(t, h.lastMessage().Text, "https://checkout.example/mystic")

	checkout.err = errors.New("provider down")
	h.press(texts.PayloadUpgradeOracle)
	assert.Equal(t, texts.UpgradeUnavailable, h.lastMessage().Text)
	assert.Equal(t, domain.TopStateNone, h.user().TopState)
}

func TestHandleEvent_ProfileEnrichment(t *testing.T) {
	h := newHarness(t)
	h.outbox.SetProfile(psid, &messenger.Profile{FirstName: "Ana", LastName: "Cruz"})

	h.press(texts.PayloadAboutMe)

	u := h.user()
	require.NotNil(t, u.FirstName)
	assert.Equal(t, "Ana", *u.FirstName)
	assert.Contains(t, h.lastMessage().Text, "Ana")
}
