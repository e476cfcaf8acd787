package tarot

import (
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/texts"
)

const (
	// ReadingCooldown сколько держится READING_COMPLETE после расклада
	ReadingCooldown = 5 * time.Second
	// FollowupWindow окно уточняющих вопросов без активности
	FollowupWindow = 10 * time.Minute

	// после этих сроков зависшее состояние считается NONE
	staleReadingAfter  = 2 * time.Minute
	staleCooldownAfter = time.Minute

	minFollowupQuestion = 5
	maxFollowupQuestion = 500
)

// Input снимок состояния для принятия решения
type Input struct {
	User domain.User
	// Reading последний расклад пользователя или расклад из таймера, может быть nil
	Reading  *domain.Reading
	Intent   Intent
	Now      time.Time
	Location *time.Location
}

// Decision результат перехода: следующее состояние и команды по порядку
type Decision struct {
	Next       domain.TopState
	NextFollow domain.FollowState
	Commands   []Command
	// OnFailure выполняется, если одна из Invoke-команд или запись не удалась
	OnFailure []Command
	// QuotaExceeded какой лимит отказал, пусто если отказа не было
	QuotaExceeded domain.QuotaKind
}

// Decide чистая функция переходов, ничего не пишет и не отправляет
func Decide(in Input) Decision {
	if in.Location == nil {
		in.Location = time.UTC
	}
	if in.Intent.Kind.IsTimer() {
		return decideTimer(in)
	}

	state := EffectiveState(in.User, in.Now)
	d := Decision{Next: state, NextFollow: followState(in.Reading)}

	switch state {
	case domain.TopStateReadingInProgress:
		return d
	case domain.TopStateReadingComplete:
		d.Commands = []Command{say(texts.ReadingTooFresh)}
		return d
	}

	if state == domain.TopStateNone && in.Reading != nil && in.Reading.FollowState.IsFollowupActive() {
		return decideFollowup(in, d)
	}

	switch state {
	case domain.TopStateWaitingBirthdate:
		return decideBirthdate(in, d)
	case domain.TopStateWaitingQuestion:
		return decideQuestion(in, d)
	default:
		return decideIdle(in, d)
	}
}

// EffectiveState состояние с учётом зависших READING_IN_PROGRESS и READING_COMPLETE
func EffectiveState(u domain.User, now time.Time) domain.TopState {
	idle := now.Sub(u.UpdatedAt)
	switch u.TopState {
	case domain.TopStateReadingInProgress:
		if idle > staleReadingAfter {
			return domain.TopStateNone
		}
	case domain.TopStateReadingComplete:
		if idle > staleCooldownAfter {
			return domain.TopStateNone
		}
	case "":
		return domain.TopStateNone
	}
	return u.TopState
}

func followState(r *domain.Reading) domain.FollowState {
	if r == nil {
		return ""
	}
	return r.FollowState
}

func decideIdle(in Input, d Decision) Decision {
	switch in.Intent.Kind {
	case IntentStart:
		return startReading(in, d, "")
	case IntentTopic:
		return startReading(in, d, in.Intent.Text)
	case IntentAboutMe:
		d.Commands = []Command{say(aboutMe(in), texts.MainMenu()...)}
	case IntentUpgrade:
		d.Commands = upgrade(in)
	case IntentCancel:
		d.Commands = []Command{say(texts.Cancelled, texts.MainMenu()...)}
	case IntentFollowupPrompt, IntentEndSession:
		d.Commands = []Command{say(texts.ReadyForReading, texts.MainMenu()...)}
	default:
		d.Commands = []Command{say(texts.Unknown, texts.MainMenu()...)}
	}
	return d
}

// startReading вход в расклад из NONE. Тема с кнопки сразу становится вопросом,
// если дата рождения уже известна.
func startReading(in Input, d Decision, topic string) Decision {
	if err := in.User.CheckDailyQuota(in.Now, in.Location); err != nil {
		return quotaExhausted(in, d)
	}

	if !in.User.HasBirthdate() {
		d.Next = domain.TopStateWaitingBirthdate
		d.Commands = []Command{
			setState(d.Next),
			say(texts.PromptBirthdate, texts.QuickCancel),
		}
		return d
	}

	if topic != "" {
		return drawReading(in, d, topic)
	}

	welcome := texts.Welcome
	if in.Intent.Text == texts.PayloadGetStarted {
		welcome = texts.GetStartedWelcome
	}
	d.Next = domain.TopStateWaitingQuestion
	d.Commands = []Command{
		setState(d.Next),
		say(welcome, texts.TopicMenu()...),
	}
	return d
}

func quotaExhausted(in Input, d Decision) Decision {
	d.Next = domain.TopStateNone
	d.QuotaExceeded = domain.QuotaDaily
	midnight := domain.NextMidnight(in.Now, in.Location)
	if in.User.TopState != domain.TopStateNone {
		d.Commands = append(d.Commands, setState(domain.TopStateNone))
	}
	d.Commands = append(d.Commands,
		ArmTimer{Purpose: domain.TimerQuotaReset, At: midnight},
		say(texts.FormatDailyLimit(midnight.Sub(in.Now), in.User.Tier), texts.QuickUpgrade),
	)
	return d
}

func decideBirthdate(in Input, d Decision) Decision {
	switch in.Intent.Kind {
	case IntentCancel:
		return cancel(d)
	case IntentStart, IntentAboutMe, IntentTopic:
		d.Commands = []Command{say(texts.PromptBirthdate, texts.QuickCancel)}
		return d
	case IntentUpgrade:
		d.Commands = upgrade(in)
		return d
	}

	birthdate, err := domain.ParseBirthdate(in.Intent.Text)
	if err != nil {
		d.Commands = []Command{say(texts.InvalidBirthdate, texts.QuickCancel)}
		return d
	}

	next := domain.TopStateWaitingQuestion
	d.Next = next
	d.Commands = []Command{
		MutateUser{TopState: &next, Birthdate: &birthdate},
		say(texts.BirthdateSaved+"\n\n"+texts.Welcome, texts.TopicMenu()...),
	}
	return d
}

func decideQuestion(in Input, d Decision) Decision {
	switch in.Intent.Kind {
	case IntentCancel:
		return cancel(d)
	case IntentStart, IntentAboutMe, IntentFollowupPrompt, IntentEndSession:
		d.Commands = []Command{say(texts.Welcome, texts.TopicMenu()...)}
		return d
	case IntentUpgrade:
		d.Commands = upgrade(in)
		return d
	}

	question := in.Intent.Text
	if question == "" {
		d.Commands = []Command{say(texts.EmptyQuestion, texts.TopicMenu()...)}
		return d
	}

	// лимит мог кончиться, пока пользователь думал над вопросом
	if err := in.User.CheckDailyQuota(in.Now, in.Location); err != nil {
		return quotaExhausted(in, d)
	}
	return drawReading(in, d, question)
}

// drawReading полный цикл расклада. Первая команда переводит пользователя
// в READING_IN_PROGRESS и служит захватом: проигравший дубликат дальше не идёт.
func drawReading(in Input, d Decision, question string) Decision {
	inProgress := domain.TopStateReadingInProgress
	complete := domain.TopStateReadingComplete
	none := domain.TopStateNone

	d.Next = complete
	d.NextFollow = domain.FollowStateFollowupAvailable
	d.Commands = []Command{
		MutateUser{TopState: &inProgress},
		say(texts.ReadingInProgress),
		InvokeCardDraw{},
		InvokeInterpretation{Mode: service.InterpretInitial, Question: question, Fallback: service.FallbackTemplate},
		MutateReading{Op: ReadingCreate, Question: question},
		SendImages{},
		SendText{Source: TextCards},
		SendText{Source: TextInterpretation},
		MutateReading{Op: ReadingStartFollowups},
		ArmTimer{Purpose: domain.TimerFollowupExpiry, After: FollowupWindow},
		MutateUser{TopState: &complete, CountReading: true},
		ArmTimer{Purpose: domain.TimerReadingCooldown, After: ReadingCooldown},
		SendText{Source: TextFollowupStatus, Text: texts.FollowupSessionAvailable},
	}
	d.OnFailure = []Command{
		MutateUser{TopState: &none},
		say(texts.SomethingWrong, texts.MainMenu()...),
	}
	return d
}

func cancel(d Decision) Decision {
	none := domain.TopStateNone
	d.Next = none
	d.Commands = []Command{
		MutateUser{TopState: &none},
		say(texts.Cancelled, texts.MainMenu()...),
	}
	return d
}

// decideFollowup активная уточняющая сессия важнее меню
func decideFollowup(in Input, d Decision) Decision {
	r := in.Reading
	remaining := r.RemainingFollowups()

	switch in.Intent.Kind {
	case IntentEndSession, IntentCancel:
		d.NextFollow = domain.FollowStateEnded
		d.Commands = []Command{
			MutateReading{Op: ReadingEnd},
			CancelTimer{Purpose: domain.TimerFollowupExpiry},
			say(texts.FollowupSessionEnded, texts.MainMenu()...),
		}
		return d
	case IntentFollowupPrompt:
		if remaining == 0 {
			d.QuotaExceeded = domain.QuotaFollowup
			d.Commands = []Command{say(texts.FollowupLimitReached, texts.FollowupMenu(0)...)}
			return d
		}
		d.Commands = []Command{say(texts.FollowupQuestionPrompt)}
		return d
	case IntentUpgrade:
		d.Commands = []Command{say(texts.UpgradeNotInReading, texts.FollowupMenu(remaining)...)}
		return d
	case IntentStart, IntentAboutMe:
		d.Commands = []Command{
			say(texts.FollowupSessionAvailable+"\n\n"+texts.FormatRemainingQuestions(remaining, r.MaxFollowups),
				texts.FollowupMenu(remaining)...),
		}
		return d
	}

	if err := r.CheckFollowupAllowed(); err != nil {
		d.QuotaExceeded = domain.QuotaFollowup
		d.Commands = []Command{say(texts.FollowupLimitReached, texts.FollowupMenu(0)...)}
		return d
	}

	question := in.Intent.Text
	if n := len([]rune(question)); n < minFollowupQuestion || n > maxFollowupQuestion {
		d.Commands = []Command{say(texts.FollowupInvalidQuestion, texts.FollowupMenu(remaining)...)}
		return d
	}

	d.NextFollow = domain.FollowStateFollowupInProgress
	d.Commands = []Command{
		say(texts.FollowupProcessing),
		InvokeInterpretation{Mode: service.InterpretFollowup, Question: question, Fallback: service.FallbackTemplate},
		MutateReading{Op: ReadingAppendFollowup, Question: question},
		SendText{Source: TextFollowupAnswer},
		ArmTimer{Purpose: domain.TimerFollowupExpiry, After: FollowupWindow},
		SendText{Source: TextFollowupStatus},
	}
	d.OnFailure = []Command{say(texts.FollowupUnavailable, texts.FollowupMenu(remaining)...)}
	return d
}

func upgrade(in Input) []Command {
	if in.User.Tier == domain.TierOracle {
		return []Command{say(texts.UpgradeAlreadyHighest, texts.MainMenu()...)}
	}
	plan := in.Intent.Plan
	if plan == "" {
		options := []domain.QuickReplyOption{texts.QuickUpgradeMystic, texts.QuickUpgradeOracle}
		if in.User.Tier == domain.TierMystic {
			options = options[1:]
		}
		return []Command{say(texts.UpgradeChoosePlan, options...)}
	}
	if plan.Rank() <= in.User.Tier.Rank() {
		return []Command{say(texts.UpgradeChoosePlan, texts.QuickUpgradeOracle)}
	}
	return []Command{
		InvokePaymentCheckout{Plan: plan},
		SendText{Source: TextCheckoutLink},
	}
}

func aboutMe(in Input) string {
	return texts.FormatAboutMe(texts.AboutMe{
		Name:           in.User.DisplayName(),
		Tier:           in.User.Tier,
		Birthdate:      in.User.Birthdate,
		ReadingsLeft:   in.User.ReadingsLeftToday(in.Now, in.Location),
		FollowupsLimit: in.User.Tier.FollowupLimit(),
	})
}

// decideTimer таймеры перепроверяют состояние: сработавший после отмены
// или перевзвода таймер ничего не делает
func decideTimer(in Input) Decision {
	d := Decision{Next: in.User.TopState, NextFollow: followState(in.Reading)}
	handle := in.Intent.TimerHandle

	switch in.Intent.Kind {
	case IntentQuotaReset:
		if !handleMatches(in.User.PendingNotificationHandle, handle) {
			return d
		}
		d.Commands = []Command{MutateUser{ClearNotification: true}}
		if in.User.Tier.IsUnlimited() {
			return d
		}
		greeting := texts.MysticalGreetings[in.Now.YearDay()%len(texts.MysticalGreetings)]
		d.Commands = append(d.Commands, say(texts.FormatDailyNotification(greeting), texts.MainMenu()...))

	case IntentFollowupExpired:
		r := in.Reading
		if r == nil || !r.FollowState.IsFollowupActive() || !handleMatches(r.ExpiryTimerHandle, handle) {
			return d
		}
		d.NextFollow = domain.FollowStateEnded
		d.Commands = []Command{
			MutateReading{Op: ReadingEnd},
			say(texts.FollowupWindowClosed, texts.QuickStart),
		}

	case IntentCooldownElapsed:
		if in.User.TopState != domain.TopStateReadingComplete {
			return d
		}
		d.Next = domain.TopStateNone
		d.Commands = []Command{setState(domain.TopStateNone)}
	}
	return d
}

func handleMatches(stored *string, handle string) bool {
	return stored != nil && handle != "" && *stored == handle
}
