package interpretation

import (
	"fmt"
	"strings"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
)

const systemPrompt = `You are a warm, direct tarot reader talking to a friend over coffee. Read the three cards as one story: past, present, future.

What to write:
🎴 Your Cards - one short line per card
🔮 The Bigger Picture - what is actually happening
💡 What You Need To Hear - the thing they already know but need to hear
🌟 Your Next Move - something they can do today

Make it personal: refer to concrete moments and situations that fit the question. If you know the person's name, use it once or twice, never in bold.
Be confident: for yes/no questions give a clear answer first, then explain it through the cards.
Today's date is {current_date}. Mention astrological events only when they genuinely add to the reading.
The person was born on {user_birthdate}. Use their sun sign only when relevant.

Around 200 words. IMPORTANT: keep everything under 2000 characters, emojis included. Do not use markdown ** for emphasis.`

const followupPrompt = `You are continuing a tarot reading with the same person. Answer their follow-up question using the cards already drawn and what was said before. Do not draw new cards.
Stay warm and direct, around 120 words, under 1500 characters, no markdown.`

func buildInitialPrompt(req service.InterpretRequest, now time.Time) string {
	birthdate := req.Birthdate
	if birthdate == "" {
		birthdate = "an unknown date"
	}
	sys := strings.NewReplacer(
		"{current_date}", now.Format("January 2, 2006"),
		"{user_birthdate}", birthdate,
	).Replace(systemPrompt)

	var b strings.Builder
	b.WriteString(sys)
	b.WriteString("\n\n")
	if req.Name != "" {
		fmt.Fprintf(&b, "**User's Name**: %s\n\n", req.Name)
	}
	fmt.Fprintf(&b, "**User's Question**: %s\n\n", req.Question)
	b.WriteString("**Cards Drawn**:\n")
	b.WriteString(formatCardList(req.Cards))
	b.WriteString("\n\nPlease provide a meaningful tarot interpretation connecting these cards.")
	return b.String()
}

func buildFollowupPrompt(req service.InterpretRequest) string {
	var b strings.Builder
	b.WriteString(followupPrompt)
	b.WriteString("\n\n**Cards Drawn**:\n")
	b.WriteString(formatCardList(req.Cards))
	if ctx := formatHistory(req.History); ctx != "" {
		b.WriteString("\n\n**Conversation So Far**:\n")
		b.WriteString(ctx)
	}
	fmt.Fprintf(&b, "\n\n**Follow-up Question**: %s", req.Question)
	return b.String()
}

func formatCardList(cards domain.Cards) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		parts = append(parts, texts.FormatCardInfo(c))
	}
	return strings.Join(parts, "\n\n")
}

// formatHistory контекст без session_end, вопросы с номерами
func formatHistory(history []domain.HistoryEntry) string {
	parts := make([]string, 0, len(history))
	for _, e := range history {
		switch e.Kind {
		case domain.HistoryInitialReading:
			parts = append(parts, "Initial Reading: "+e.Content)
		case domain.HistoryFollowupQuestion:
			n := 0
			if e.QuestionNumber != nil {
				n = *e.QuestionNumber
			}
			parts = append(parts, fmt.Sprintf("Question %d: %s", n, e.Content))
		case domain.HistoryFollowupResponse:
			parts = append(parts, "Response: "+e.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
