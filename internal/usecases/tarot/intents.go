package tarot

import (
	"strings"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
)

// IntentKind что пользователь (или таймер) хочет сделать
type IntentKind string

const (
	IntentStart          IntentKind = "start"
	IntentAboutMe        IntentKind = "about_me"
	IntentTopic          IntentKind = "topic"
	IntentCancel         IntentKind = "cancel"
	IntentText           IntentKind = "text"
	IntentFollowupPrompt IntentKind = "followup_prompt"
	IntentEndSession     IntentKind = "end_session"
	IntentUpgrade        IntentKind = "upgrade"

	IntentQuotaReset      IntentKind = "timer_quota_reset"
	IntentFollowupExpired IntentKind = "timer_followup_expired"
	IntentCooldownElapsed IntentKind = "timer_cooldown_elapsed"
)

// IsTimer true для событий от таймеров
func (k IntentKind) IsTimer() bool {
	switch k {
	case IntentQuotaReset, IntentFollowupExpired, IntentCooldownElapsed:
		return true
	}
	return false
}

// Intent классифицированное событие
type Intent struct {
	Kind IntentKind
	// Text исходный текст или вопрос темы
	Text string
	// Plan тариф для IntentUpgrade, пустой значит показать выбор
	Plan domain.SubscriptionTier
	// TimerHandle handle сработавшего таймера
	TimerHandle string
}

var topics = map[string]bool{
	texts.PayloadCareer:   true,
	texts.PayloadLove:     true,
	texts.PayloadGrowth:   true,
	texts.PayloadGuidance: true,
}

// Classify переводит входящее событие в намерение. Кнопки распознаются по payload,
// набранный текст только по нескольким ключевым словам.
func Classify(ev domain.InboundEvent) Intent {
	if ev.Kind == domain.EventQuickReply || ev.Kind == domain.EventPostback {
		if intent, ok := classifyPayload(ev.Payload); ok {
			return intent
		}
	}

	text := strings.TrimSpace(ev.Input())
	switch strings.ToLower(text) {
	case "start", "get started", "reading", "new reading":
		return Intent{Kind: IntentStart, Text: text}
	case "cancel", "stop":
		return Intent{Kind: IntentCancel, Text: text}
	case "about me":
		return Intent{Kind: IntentAboutMe, Text: text}
	case "end", "end reading":
		return Intent{Kind: IntentEndSession, Text: text}
	case "upgrade":
		return Intent{Kind: IntentUpgrade, Text: text}
	}
	return Intent{Kind: IntentText, Text: text}
}

func classifyPayload(payload string) (Intent, bool) {
	switch payload {
	case texts.PayloadStart, texts.PayloadGetStarted:
		return Intent{Kind: IntentStart, Text: payload}, true
	case texts.PayloadAboutMe:
		return Intent{Kind: IntentAboutMe}, true
	case texts.PayloadCancel:
		return Intent{Kind: IntentCancel}, true
	case texts.PayloadFollowup:
		return Intent{Kind: IntentFollowupPrompt}, true
	case texts.PayloadEndSession:
		return Intent{Kind: IntentEndSession}, true
	case texts.PayloadUpgrade:
		return Intent{Kind: IntentUpgrade}, true
	case texts.PayloadUpgradeMystic:
		return Intent{Kind: IntentUpgrade, Plan: domain.TierMystic}, true
	case texts.PayloadUpgradeOracle:
		return Intent{Kind: IntentUpgrade, Plan: domain.TierOracle}, true
	}
	if topics[payload] {
		return Intent{Kind: IntentTopic, Text: payload}, true
	}
	return Intent{}, false
}
