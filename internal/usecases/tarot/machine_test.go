package tarot

import (
	"testing"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var machineNow = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

func idleUser() domain.User {
	u := domain.NewUser("psid-1", machineNow.Add(-time.Hour))
	return *u
}

func withBirthdate(u domain.User) domain.User {
	b := "Oct 15"
	u.Birthdate = &b
	return u
}

func followupReading(u domain.User, tier domain.SubscriptionTier) *domain.Reading {
	r := domain.NewReading(u.ID, "q", nil, "initial", machineNow.Add(-time.Minute))
	_ = r.Complete(machineNow.Add(-time.Minute))
	_ = r.StartFollowupSession(tier, machineNow.Add(-time.Minute))
	return r
}

func decide(u domain.User, r *domain.Reading, intent Intent) Decision {
	return Decide(Input{User: u, Reading: r, Intent: intent, Now: machineNow, Location: time.UTC})
}

func commandsOf[T Command](d Decision) []T {
	var out []T
	for _, c := range d.Commands {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func firstText(t *testing.T, d Decision) SendText {
	t.Helper()
	sends := commandsOf[SendText](d)
	require.NotEmpty(t, sends)
	return sends[0]
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		event domain.InboundEvent
		want  Intent
	}{
		{"typed start", domain.InboundEvent{Kind: domain.EventText, Text: " Start "}, Intent{Kind: IntentStart, Text: "Start"}},
		{"get started postback", domain.InboundEvent{Kind: domain.EventPostback, Payload: texts.PayloadGetStarted}, Intent{Kind: IntentStart, Text: texts.PayloadGetStarted}},
		{"topic button", domain.InboundEvent{Kind: domain.EventQuickReply, Text: "💝 Love & Heart", Payload: texts.PayloadLove}, Intent{Kind: IntentTopic, Text: texts.PayloadLove}},
		{"upgrade oracle", domain.InboundEvent{Kind: domain.EventQuickReply, Payload: texts.PayloadUpgradeOracle}, Intent{Kind: IntentUpgrade, Plan: domain.TierOracle}},
		{"end session", domain.InboundEvent{Kind: domain.EventQuickReply, Payload: texts.PayloadEndSession}, Intent{Kind: IntentEndSession}},
		{"free text", domain.InboundEvent{Kind: domain.EventText, Text: "will I get the job"}, Intent{Kind: IntentText, Text: "will I get the job"}},
		{"unknown payload falls back to text", domain.InboundEvent{Kind: domain.EventPostback, Payload: "SOMETHING"}, Intent{Kind: IntentText, Text: "SOMETHING"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.event))
		})
	}
}

func TestDecide_StartWithoutBirthdate(t *testing.T) {
	d := decide(idleUser(), nil, Intent{Kind: IntentStart})

	assert.Equal(t, domain.TopStateWaitingBirthdate, d.Next)
	mutations := commandsOf[MutateUser](d)
	require.Len(t, mutations, 1)
	assert.Equal(t, domain.TopStateWaitingBirthdate, *mutations[0].TopState)
	assert.Equal(t, texts.PromptBirthdate, firstText(t, d).Text)
}

func TestDecide_StartWithBirthdate(t *testing.T) {
	d := decide(withBirthdate(idleUser()), nil, Intent{Kind: IntentStart, Text: texts.PayloadGetStarted})

	assert.Equal(t, domain.TopStateWaitingQuestion, d.Next)
	send := firstText(t, d)
	assert.Equal(t, texts.GetStartedWelcome, send.Text)
	assert.Equal(t, texts.TopicMenu(), send.QuickReplies)
}

func TestDecide_StartQuotaExhausted(t *testing.T) {
	u := withBirthdate(idleUser())
	u.RecordReading(machineNow.Add(-2*time.Hour), time.UTC)

	d := decide(u, nil, Intent{Kind: IntentStart})

	assert.Equal(t, domain.TopStateNone, d.Next)
	assert.Equal(t, domain.QuotaDaily, d.QuotaExceeded)
	assert.Empty(t, commandsOf[MutateUser](d))

	timers := commandsOf[ArmTimer](d)
	require.Len(t, timers, 1)
	assert.Equal(t, domain.TimerQuotaReset, timers[0].Purpose)
	assert.Equal(t, time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC), timers[0].At)
	assert.Contains(t, firstText(t, d).Text, "15h")
}

func TestDecide_Birthdate(t *testing.T) {
	u := idleUser()
	u.TopState = domain.TopStateWaitingBirthdate

	t.Run("valid", func(t *testing.T) {
		d := decide(u, nil, Intent{Kind: IntentText, Text: "october 15th"})
		assert.Equal(t, domain.TopStateWaitingQuestion, d.Next)
		mutations := commandsOf[MutateUser](d)
		require.Len(t, mutations, 1)
		assert.Equal(t, "Oct 15", *mutations[0].Birthdate)
	})

	t.Run("invalid", func(t *testing.T) {
		d := decide(u, nil, Intent{Kind: IntentText, Text: "someday"})
		assert.Equal(t, domain.TopStateWaitingBirthdate, d.Next)
		assert.Empty(t, commandsOf[MutateUser](d))
		assert.Equal(t, texts.InvalidBirthdate, firstText(t, d).Text)
	})

	t.Run("cancel", func(t *testing.T) {
		d := decide(u, nil, Intent{Kind: IntentCancel})
		assert.Equal(t, domain.TopStateNone, d.Next)
		assert.Equal(t, texts.Cancelled, firstText(t, d).Text)
	})
}

func TestDecide_QuestionStartsReading(t *testing.T) {
	u := withBirthdate(idleUser())
	u.TopState = domain.TopStateWaitingQuestion

	d := decide(u, nil, Intent{Kind: IntentText, Text: "will I get the job"})

	assert.Equal(t, domain.TopStateReadingComplete, d.Next)
	assert.Equal(t, domain.FollowStateFollowupAvailable, d.NextFollow)

	claim, ok := d.Commands[0].(MutateUser)
	require.True(t, ok, "first command claims the transition")
	assert.Equal(t, domain.TopStateReadingInProgress, *claim.TopState)

	interp := commandsOf[InvokeInterpretation](d)
	require.Len(t, interp, 1)
	assert.Equal(t, service.InterpretInitial, interp[0].Mode)
	assert.Equal(t, "will I get the job", interp[0].Question)

	var ops []ReadingOp
	for _, m := range commandsOf[MutateReading](d) {
		ops = append(ops, m.Op)
	}
	assert.Equal(t, []ReadingOp{ReadingCreate, ReadingStartFollowups}, ops)

	timers := commandsOf[ArmTimer](d)
	require.Len(t, timers, 2)
	assert.Equal(t, FollowupWindow, timers[0].After)
	assert.Equal(t, ReadingCooldown, timers[1].After)
	assert.NotEmpty(t, d.OnFailure)
}

func TestDecide_QuestionValidation(t *testing.T) {
	u := withBirthdate(idleUser())
	u.TopState = domain.TopStateWaitingQuestion

	d := decide(u, nil, Intent{Kind: IntentText, Text: ""})
	assert.Equal(t, domain.TopStateWaitingQuestion, d.Next)
	assert.Equal(t, texts.EmptyQuestion, firstText(t, d).Text)

	u.RecordReading(machineNow.Add(-time.Hour), time.UTC)
	d = decide(u, nil, Intent{Kind: IntentText, Text: "will I get the job"})
	assert.Equal(t, domain.TopStateNone, d.Next)
	assert.Empty(t, commandsOf[InvokeCardDraw](d))
	mutations := commandsOf[MutateUser](d)
	require.Len(t, mutations, 1)
	assert.Equal(t, domain.TopStateNone, *mutations[0].TopState)
}

func TestDecide_TopicFromIdleSkipsPrompt(t *testing.T) {
	d := decide(withBirthdate(idleUser()), nil, Intent{Kind: IntentTopic, Text: texts.PayloadCareer})
	assert.Len(t, commandsOf[InvokeCardDraw](d), 1)
	assert.Equal(t, texts.PayloadCareer, commandsOf[InvokeInterpretation](d)[0].Question)
}

func TestDecide_ReadingInProgressAbsorbsEverything(t *testing.T) {
	u := withBirthdate(idleUser())
	u.TopState = domain.TopStateReadingInProgress
	u.UpdatedAt = machineNow.Add(-10 * time.Second)

	for _, kind := range []IntentKind{IntentStart, IntentCancel, IntentText, IntentUpgrade, IntentAboutMe} {
		d := decide(u, nil, Intent{Kind: kind, Text: "x"})
		assert.Equal(t, domain.TopStateReadingInProgress, d.Next, kind)
		assert.Empty(t, d.Commands, kind)
	}
}

func TestDecide_ReadingCompleteIsTooFresh(t *testing.T) {
	u := withBirthdate(idleUser())
	u.TopState = domain.TopStateReadingComplete
	u.UpdatedAt = machineNow.Add(-2 * time.Second)

	d := decide(u, followupReading(u, domain.TierFree), Intent{Kind: IntentStart})
	assert.Equal(t, domain.TopStateReadingComplete, d.Next)
	require.Len(t, d.Commands, 1)
	assert.Equal(t, texts.ReadingTooFresh, firstText(t, d).Text)
}

func TestEffectiveState_Stale(t *testing.T) {
	u := idleUser()
	u.TopState = domain.TopStateReadingInProgress
	u.UpdatedAt = machineNow.Add(-3 * time.Minute)
	assert.Equal(t, domain.TopStateNone, EffectiveState(u, machineNow))

	u.UpdatedAt = machineNow.Add(-time.Minute)
	assert.Equal(t, domain.TopStateReadingInProgress, EffectiveState(u, machineNow))

	u.TopState = domain.TopStateReadingComplete
	u.UpdatedAt = machineNow.Add(-2 * time.Minute)
	assert.Equal(t, domain.TopStateNone, EffectiveState(u, machineNow))
}

func TestDecide_FollowupWinsOverMenu(t *testing.T) {
	u := withBirthdate(idleUser())
	r := followupReading(u, domain.TierFree)

	t.Run("question accepted", func(t *testing.T) {
		d := decide(u, r, Intent{Kind: IntentText, Text: "what about money?"})
		assert.Equal(t, domain.FollowStateFollowupInProgress, d.NextFollow)
		interp := commandsOf[InvokeInterpretation](d)
		require.Len(t, interp, 1)
		assert.Equal(t, service.InterpretFollowup, interp[0].Mode)
		assert.Empty(t, commandsOf[InvokeCardDraw](d))
	})

	t.Run("question too short", func(t *testing.T) {
		d := decide(u, r, Intent{Kind: IntentText, Text: "why"})
		assert.Empty(t, commandsOf[InvokeInterpretation](d))
		assert.Equal(t, texts.FollowupInvalidQuestion, firstText(t, d).Text)
	})

	t.Run("start reminds about session", func(t *testing.T) {
		d := decide(u, r, Intent{Kind: IntentStart})
		assert.Empty(t, commandsOf[MutateUser](d))
		assert.Equal(t, texts.FollowupMenu(1), firstText(t, d).QuickReplies)
	})

	t.Run("upgrade refused", func(t *testing.T) {
		d := decide(u, r, Intent{Kind: IntentUpgrade, Plan: domain.TierMystic})
		assert.Empty(t, commandsOf[InvokePaymentCheckout](d))
		assert.Equal(t, texts.UpgradeNotInReading, firstText(t, d).Text)
	})

	t.Run("cancel ends session", func(t *testing.T) {
		d := decide(u, r, Intent{Kind: IntentCancel})
		assert.Equal(t, domain.FollowStateEnded, d.NextFollow)
		require.Len(t, commandsOf[CancelTimer](d), 1)
	})
}

func TestDecide_FollowupLimit(t *testing.T) {
	u := withBirthdate(idleUser())
	r := followupReading(u, domain.TierFree)
	require.NoError(t, r.RecordFollowup("first question", "answer", machineNow))

	d := decide(u, r, Intent{Kind: IntentText, Text: "second question"})
	assert.Equal(t, domain.QuotaFollowup, d.QuotaExceeded)
	assert.Empty(t, commandsOf[InvokeInterpretation](d))
	assert.Empty(t, commandsOf[MutateReading](d))
	assert.Equal(t, texts.FollowupLimitReached, firstText(t, d).Text)
}

func TestDecide_Upgrade(t *testing.T) {
	u := idleUser()

	d := decide(u, nil, Intent{Kind: IntentUpgrade})
	assert.Equal(t, texts.UpgradeChoosePlan, firstText(t, d).Text)
	assert.Len(t, firstText(t, d).QuickReplies, 2)

	d = decide(u, nil, Intent{Kind: IntentUpgrade, Plan: domain.TierMystic})
	checkout := commandsOf[InvokePaymentCheckout](d)
	require.Len(t, checkout, 1)
	assert.Equal(t, domain.TierMystic, checkout[0].Plan)
	assert.Equal(t, TextCheckoutLink, firstText(t, d).Source)

	u.Tier = domain.TierOracle
	d = decide(u, nil, Intent{Kind: IntentUpgrade, Plan: domain.TierOracle})
	assert.Empty(t, commandsOf[InvokePaymentCheckout](d))
	assert.Equal(t, texts.UpgradeAlreadyHighest, firstText(t, d).Text)
}

func TestDecide_Timers(t *testing.T) {
	handle := uuid.NewString()

	t.Run("quota reset with matching handle", func(t *testing.T) {
		u := idleUser()
		u.PendingNotificationHandle = &handle
		d := decide(u, nil, Intent{Kind: IntentQuotaReset, TimerHandle: handle})
		mutations := commandsOf[MutateUser](d)
		require.Len(t, mutations, 1)
		assert.True(t, mutations[0].ClearNotification)
		assert.Len(t, commandsOf[SendText](d), 1)
	})

	t.Run("quota reset with replaced handle", func(t *testing.T) {
		u := idleUser()
		other := uuid.NewString()
		u.PendingNotificationHandle = &other
		d := decide(u, nil, Intent{Kind: IntentQuotaReset, TimerHandle: handle})
		assert.Empty(t, d.Commands)
	})

	t.Run("quota reset skips unlimited tier", func(t *testing.T) {
		u := idleUser()
		u.Tier = domain.TierOracle
		u.PendingNotificationHandle = &handle
		d := decide(u, nil, Intent{Kind: IntentQuotaReset, TimerHandle: handle})
		assert.Empty(t, commandsOf[SendText](d))
		assert.Len(t, commandsOf[MutateUser](d), 1)
	})

	t.Run("follow-up expiry", func(t *testing.T) {
		u := idleUser()
		r := followupReading(u, domain.TierFree)
		r.ExpiryTimerHandle = &handle
		d := decide(u, r, Intent{Kind: IntentFollowupExpired, TimerHandle: handle})
		assert.Equal(t, domain.FollowStateEnded, d.NextFollow)
		assert.Equal(t, texts.FollowupWindowClosed, firstText(t, d).Text)

		require.NoError(t, r.EndSession(machineNow))
		d = decide(u, r, Intent{Kind: IntentFollowupExpired, TimerHandle: handle})
		assert.Empty(t, d.Commands)
	})

	t.Run("cooldown only from reading complete", func(t *testing.T) {
		u := idleUser()
		u.TopState = domain.TopStateReadingComplete
		d := decide(u, nil, Intent{Kind: IntentCooldownElapsed})
		assert.Equal(t, domain.TopStateNone, d.Next)

		u.TopState = domain.TopStateWaitingQuestion
		d = decide(u, nil, Intent{Kind: IntentCooldownElapsed})
		assert.Empty(t, d.Commands)
	})
}
