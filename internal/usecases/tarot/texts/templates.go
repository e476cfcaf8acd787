package texts

import (
	"fmt"
	"strings"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

// MaxMessageLength бюджет одного сообщения Messenger в символах
const MaxMessageLength = 2000

const descriptionPreview = 200

var positionLabels = map[domain.Position]struct {
	Emoji string
	Name  string
}{
	domain.PositionPast:    {"⏮️", "Past"},
	domain.PositionPresent: {"▶️", "Present"},
	domain.PositionFuture:  {"⏭️", "Future"},
}

func arcanaName(a domain.Arcana) string {
	if a == domain.ArcanaMajor {
		return "Major Arcana"
	}
	return "Minor Arcana"
}

func reversedMark(reversed bool) string {
	if reversed {
		return " (Reversed)"
	}
	return ""
}

// FormatCardInfo подробное описание карты для промпта
func FormatCardInfo(card domain.Card) string {
	pos, ok := positionLabels[card.Position]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %s: %s%s\n└ Type: %s\n└ Description: %s...\n└ Meaning: %s",
		pos.Emoji, Bold(pos.Name), card.Name, reversedMark(card.Reversed),
		arcanaName(card.Arcana), prefixRunes(card.Description, descriptionPreview), card.Meaning)
}

// FormatCardSummary краткое описание карты для пользователя
func FormatCardSummary(card domain.Card) string {
	pos, ok := positionLabels[card.Position]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %s: %s%s\n└─ %s\n└─ %s",
		pos.Emoji, Bold(pos.Name), card.Name, reversedMark(card.Reversed),
		Bold(arcanaName(card.Arcana)), card.Meaning)
}

// FormatCards сообщение со всеми картами расклада
func FormatCards(cards domain.Cards) string {
	parts := make([]string, 0, len(cards)+1)
	parts = append(parts, CardsDrawn)
	for _, c := range cards {
		parts = append(parts, FormatCardSummary(c))
	}
	return Truncate(strings.Join(parts, "\n\n"))
}

// FormatFallbackInterpretation детерминированная трактовка без LLM
func FormatFallbackInterpretation(question string, cards domain.Cards) string {
	names := [3]string{"first card", "second card", "third card"}
	for i := 0; i < len(cards) && i < len(names); i++ {
		names[i] = cards[i].Name
	}

	return strings.Join([]string{
		"🎴 " + Bold("Mystical Reading"),
		fmt.Sprintf("🔮 %s: Your question \"%s\" draws forth a fascinating journey. "+
			"The %s speaks of foundations, while %s illuminates your current moment, "+
			"and %s points toward possibilities ahead.",
			Bold("The Cards Reveal"), question, names[0], names[1], names[2]),
		"💡 " + Bold("Whispers of Wisdom") + ":\n• Trust the timing of your path\n" +
			"• Your intuition holds powerful answers\n• Small steps lead to meaningful change",
		"🌟 " + Bold("Your Path Forward") + ": Embrace curiosity and stay open to synchronicities. " +
			"The cards are your allies in this beautiful dance of life.",
	}, "\n\n")
}

// FormatDailyLimit сообщение о лимите с временем до сброса и предложением апгрейда
func FormatDailyLimit(remaining time.Duration, tier domain.SubscriptionTier) string {
	msg := fmt.Sprintf(dailyLimitReached, FormatDuration(remaining))
	switch tier {
	case domain.TierFree:
		msg += upsellFree
	case domain.TierMystic:
		msg += upsellMystic
	}
	return msg
}

// FormatDuration "5h 12m", "12m", "less than a minute"
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatRemainingQuestions "📊 Questions remaining: 2/3"
func FormatRemainingQuestions(remaining, max int) string {
	return fmt.Sprintf(remainingQuestions, remaining, max)
}

// FormatDailyNotification уведомление о том, что расклады снова доступны
func FormatDailyNotification(greeting string) string {
	return fmt.Sprintf(dailyNotification, greeting)
}

// FormatPaymentConfirmed подтверждение оплаты
func FormatPaymentConfirmed(tier domain.SubscriptionTier) string {
	return fmt.Sprintf(PaymentConfirmed, TierTitle(tier))
}

// FormatCheckoutLink сообщение со ссылкой на оплату
func FormatCheckoutLink(tier domain.SubscriptionTier, url string) string {
	return fmt.Sprintf("✨ %s\n\nComplete your upgrade here:\n%s", Bold(TierTitle(tier)), url)
}

// TierTitle название тарифа для пользователя
func TierTitle(tier domain.SubscriptionTier) string {
	switch tier {
	case domain.TierMystic:
		return "Mystic Guide"
	case domain.TierOracle:
		return "Oracle Master"
	default:
		return "Free Seeker"
	}
}

// AboutMe данные для карточки пользователя
type AboutMe struct {
	Name           string
	Tier           domain.SubscriptionTier
	Birthdate      *string
	ReadingsLeft   int // domain.UnlimitedReadings для безлимита
	FollowupsLimit int
}

// FormatAboutMe карточка пользователя
func FormatAboutMe(info AboutMe) string {
	var b strings.Builder
	b.WriteString("👤 " + Bold("Your Mystical Profile") + " ✨\n\n")
	b.WriteString(fmt.Sprintf("🙋 Name: %s\n", info.Name))
	b.WriteString(fmt.Sprintf("⭐ Plan: %s\n", TierTitle(info.Tier)))

	if info.Birthdate != nil && *info.Birthdate != "" {
		b.WriteString(fmt.Sprintf("🎂 Birthdate: %s\n", *info.Birthdate))
	} else {
		b.WriteString("🎂 Birthdate: not set yet\n")
	}

	if info.ReadingsLeft == domain.UnlimitedReadings {
		b.WriteString("🎴 Readings today: unlimited\n")
	} else {
		b.WriteString(fmt.Sprintf("🎴 Readings left today: %d\n", info.ReadingsLeft))
	}
	b.WriteString(fmt.Sprintf("💭 Follow-up questions per reading: %d", info.FollowupsLimit))
	return b.String()
}

// Truncate обрезает текст до MaxMessageLength символов с видимым многоточием
func Truncate(s string) string {
	return truncateRunes(s, MaxMessageLength)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func prefixRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
