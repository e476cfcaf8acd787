package texts

import "github.com/gab-cat/tarot-bot/internal/domain"

// Payload кнопок и постбэков
const (
	PayloadStart         = "Start"
	PayloadGetStarted    = "GET_STARTED"
	PayloadAboutMe       = "About Me"
	PayloadCancel        = "CANCEL"
	PayloadFollowup      = "FOLLOWUP_QUESTION"
	PayloadEndSession    = "END_READING_SESSION"
	PayloadUpgrade       = "UPGRADE_PROMPT"
	PayloadUpgradeMystic = "UPGRADE_MYSTIC"
	PayloadUpgradeOracle = "UPGRADE_ORACLE"
	PayloadCareer        = "What's my career path?"
	PayloadLove          = "How can I find true love?"
	PayloadGrowth        = "What should I focus on today?"
	PayloadGuidance      = "What guidance do the cards have for me?"
)

var (
	QuickStart    = domain.QuickReplyOption{Title: "🔮 Start My Reading", Payload: PayloadStart}
	QuickAboutMe  = domain.QuickReplyOption{Title: "👤 About Me", Payload: PayloadAboutMe}
	QuickCareer   = domain.QuickReplyOption{Title: "💼 Career & Work", Payload: PayloadCareer}
	QuickLove     = domain.QuickReplyOption{Title: "💝 Love & Heart", Payload: PayloadLove}
	QuickGrowth   = domain.QuickReplyOption{Title: "🌱 Personal Growth", Payload: PayloadGrowth}
	QuickGuidance = domain.QuickReplyOption{Title: "🎯 Life Guidance", Payload: PayloadGuidance}
	QuickCancel   = domain.QuickReplyOption{Title: "✖️ Cancel", Payload: PayloadCancel}

	QuickFollowup   = domain.QuickReplyOption{Title: "💭 Ask Follow-Up", Payload: PayloadFollowup}
	QuickEndSession = domain.QuickReplyOption{Title: "🏁 End Reading", Payload: PayloadEndSession}
	QuickUpgrade    = domain.QuickReplyOption{Title: "⭐ Upgrade Now", Payload: PayloadUpgrade}

	QuickUpgradeMystic = domain.QuickReplyOption{Title: "💎 Mystic Guide", Payload: PayloadUpgradeMystic}
	QuickUpgradeOracle = domain.QuickReplyOption{Title: "👑 Oracle Master", Payload: PayloadUpgradeOracle}
)

// MainMenu кнопки в состоянии покоя
func MainMenu() []domain.QuickReplyOption {
	return []domain.QuickReplyOption{QuickStart, QuickAboutMe}
}

// TopicMenu темы для вопроса
func TopicMenu() []domain.QuickReplyOption {
	return []domain.QuickReplyOption{QuickCareer, QuickLove, QuickGrowth, QuickGuidance, QuickCancel}
}

// FollowupMenu кнопки уточняющей сессии
func FollowupMenu(remaining int) []domain.QuickReplyOption {
	if remaining <= 0 {
		return []domain.QuickReplyOption{QuickUpgrade, QuickEndSession}
	}
	return []domain.QuickReplyOption{QuickFollowup, QuickEndSession}
}

var (
	Welcome = "🎴 " + Bold("Welcome to your mystical tarot reading!") + " ✨\n\n" +
		"The ancient cards await your question. What wisdom do you seek from the mystical realms?"
	GetStartedWelcome = "🎴 " + Bold("The cards are calling to you...") + " ✨\n\n" +
		"I'm here to illuminate your path with ancient wisdom and cosmic insights. 🔮 What question burns in your heart today?"
	ReadingInProgress = "🔮 " + Bold("Whispering to the cards...") + " ✨\n\n" +
		"I'm connecting with the mystical energies and drawing your three sacred cards. This may take a moment... 🌙"
	CardsDrawn = "🎴 " + Bold("Your Cards Are Drawn") + " ✨\n\n" +
		Bold("Whispering with the ancient energies to reveal their story...")
	ReadingTooFresh = "🌙 " + Bold("Your recent reading is still fresh in the mystical energies...") + " ✨\n\n" +
		"Please wait a moment before requesting another reading. The cards need time to settle. 🔮"
	PromptBirthdate = "🎂 " + Bold("To begin your mystical journey, I need your birthdate") + " ✨\n\n" +
		"This helps me align the cards with your unique cosmic energy. Please enter your birthdate in this format:\n\n" +
		Bold("Example:") + " Oct 15, Dec 2, Jan 30\n\n📅 " + Bold("Month") + " followed by " + Bold("day") + " (no year needed)"
	InvalidBirthdate = "❌ " + Bold("Invalid format") + " ✨\n\nPlease use the format: " + Bold("Month day") + "\n\n" +
		Bold("Examples:") + " Oct 15, Dec 2, Jan 30\n\nTry again! 🔮"
	BirthdateSaved  = "✨ " + Bold("Birthdate saved!") + " ✨\n\nYour cosmic energy is now aligned. Ready for your reading? 🔮"
	EmptyQuestion   = "🔮 " + Bold("The cards need a question") + " ✨\n\nTell me what is on your heart, or pick a topic below."
	Cancelled       = "🌙 " + Bold("Reading cancelled") + " ✨\n\nThe cards will be here whenever you are ready. 🔮"
	ReadyForReading = "Ready for your daily tarot reading? 🔮"
	Unknown         = "🔮 I didn't quite catch that. Tap a button below to begin. ✨"
	SomethingWrong  = "🌙 The mystical energies are tangled right now. Please try again in a moment. ✨"

	FollowupSessionAvailable = "💫 " + Bold("Your reading is ready for deeper exploration") + " ✨\n\n" +
		"Would you like to ask a follow-up question to gain more clarity?"
	FollowupQuestionPrompt = "🔮 " + Bold("What's on your mind?") + " ✨\n\nAsk me anything about your reading for deeper insights:"
	FollowupProcessing     = "🔮 " + Bold("Consulting the cards again...") + " ✨\n\nI'm weaving together the mystical energies from your original reading."
	FollowupLimitReached   = "🌟 " + Bold("You've reached your follow-up limit for this reading") + " ✨\n\n" +
		"Ready to explore more mystical wisdom? Upgrade your experience!"
	FollowupSessionEnded = "💫 " + Bold("Thank you for exploring the cards deeper") + " ✨\n\n" +
		"May their wisdom continue to guide your path. 🔮✨"
	FollowupInvalidQuestion = "❌ " + Bold("I couldn't fully connect that question to your reading") + " ✨\n\n" +
		"Try rephrasing with 5 to 500 characters, or ask about specific cards from your spread."
	FollowupWindowClosed = "⏰ " + Bold("Your 10-minute follow-up window has ended") + " ✨\n\nReady for your next mystical journey? 🔮"
	FollowupUnavailable  = "🌙 " + Bold("The cards are quiet for a moment") + " ✨\n\n" +
		"I couldn't reach the mystical realms for this question. Try asking again shortly."

	UpgradeChoosePlan = "🌟 " + Bold("Choose your path") + " ✨\n\n" +
		"💎 " + Bold("Mystic Guide") + " → 5 daily readings + 3 follow-ups\n" +
		"👑 " + Bold("Oracle Master") + " → Unlimited readings + 5 follow-ups"
	UpgradeUnavailable    = "🌙 Upgrades are resting right now. Please try again later. ✨"
	UpgradeNotInReading   = "🔮 Finish your current reading first, then we can talk about upgrades. ✨"
	UpgradeAlreadyHighest = "👑 You already walk the highest path. Enjoy unlimited readings! ✨"

	PaymentConfirmed = "🎉 " + Bold("Payment received!") + " ✨\n\nYour new plan is active: %s. The cards are ready for you. 🔮"
)

// WelcomeGreeting текст экрана приветствия Messenger, не длиннее 160 символов
const WelcomeGreeting = "Hi {{user_first_name}}! 🔮 I'm your tarot guide. Tap Get Started for a three-card reading of past, present and future. ✨"

// MysticalGreetings приветствия для уведомления о новом дне
var MysticalGreetings = []string{
	"🌙 The cosmic veil lifts once more...",
	"✨ The cards awaken with the new dawn...",
	"🔮 Your mystical journey continues today...",
	"🌟 The stars align for fresh insights...",
	"🎴 The ancient wisdom awaits your touch...",
	"💫 The mystical energies renew themselves...",
	"🌙 A new day brings new revelations...",
	"✨ Your spiritual path calls to you...",
	"🔮 The cards whisper of new beginnings...",
	"🌟 Fresh cosmic guidance awaits...",
}

var (
	dailyLimitReached = "You've already received your daily reading! ✨\n\nCome back in %s for a new one. 🌟"
	upsellFree        = "\n\n🌟 " + Bold("Ready for more mystical insights?") + "\n💎 " + Bold("Mystic Guide") +
		" → 5 daily readings + 3 follow-ups + deeper insights\n👑 " + Bold("Oracle Master") +
		" → Unlimited readings + 5 follow-ups + premium guidance"
	upsellMystic = "\n\n🌟 " + Bold("Seeking even deeper mystical wisdom?") + "\n👑 " + Bold("Upgrade to Oracle Master") +
		" → Unlimited readings (vs 5 daily) + 5 follow-ups (vs 3) + exclusive premium features"
	dailyNotification = "%s\n\n🎴 " + Bold("Your daily readings are now available!") + " ✨\n\n🔮 " +
		Bold("Ask the cards anything that's on your heart today.")
	remainingQuestions = "📊 " + Bold("Questions remaining:") + " %d/%d"
)
