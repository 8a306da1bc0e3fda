package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	messages "github.com/kiselevos/wordchain_game_bot/assets"
	"github.com/kiselevos/wordchain_game_bot/internal/updates"
)

// Команды бота
const (
	CmdStart       = "/start"
	CmdParticipate = "/participate"
	CmdLaunch      = "/launch"
	CmdYes         = "/yes"
	CmdNo          = "/no"
	CmdEnd         = "/end"
)

var commands = map[string]bool{
	CmdStart: true, CmdParticipate: true, CmdLaunch: true,
	CmdYes: true, CmdNo: true, CmdEnd: true,
}

// Сколько даём колбэку таймера на работу с хранилищем и платформой
const timerCallTimeout = 30 * time.Second

type Config struct {
	WordWait    time.Duration
	VoteWait    time.Duration
	RandomStart bool
	StartWords  []string
	Scorer      Scorer
	Rand        *rand.Rand
}

// Alerter - уведомление админов о поломках, которые игроки видят как "что-то пошло не так".
type Alerter interface {
	Alert(ctx context.Context, msg string, attrs ...any)
}

type NoopAlerter struct{}

func (NoopAlerter) Alert(context.Context, string, ...any) {}

// Manager - оркестратор игровых сессий. Состояние живёт в Store,
// в памяти только таймеры. Handle безопасно вызывать из многих воркеров.
type Manager struct {
	store    Store
	notifier Notifier
	alerter  Alerter
	timers   *Timers
	log      *slog.Logger

	cfg    Config
	scorer Scorer

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewManager(store Store, notifier Notifier, alerter Alerter, cfg Config, logger *slog.Logger) *Manager {
	if alerter == nil {
		alerter = NoopAlerter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	scorer := cfg.Scorer
	if scorer == nil {
		scorer = ConstantScore(DefaultWordPoints)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	if len(cfg.StartWords) == 0 {
		cfg.StartWords = DefaultStartWords
	}

	return &Manager{
		store:    store,
		notifier: notifier,
		alerter:  alerter,
		timers:   NewTimers(),
		log:      logger.With("component", "game"),
		cfg:      cfg,
		scorer:   scorer,
		rng:      rng,
	}
}

// Stop гасит все таймеры. После него Manager не используется.
func (m *Manager) Stop() {
	m.timers.Stop()
}

func (m *Manager) Timers() *Timers {
	return m.timers
}

// Handle - точка входа для воркеров. Ошибки пользователя уходят ответом в чат,
// наружу возвращаются только ошибки хранилища и платформы.
func (m *Manager) Handle(ctx context.Context, u updates.Update) error {
	msg := u.Message
	if msg.ChatID == 0 || msg.User.ID == 0 {
		return nil
	}

	if err := m.store.EnsureChat(ctx, msg.ChatID); err != nil {
		return fmt.Errorf("ensure chat %d: %w", msg.ChatID, err)
	}
	player := Player{ID: msg.User.ID, Name: msg.User.DisplayName}
	if player.Name == "" {
		player.Name = messages.UnknownPerson
	}
	if err := m.store.EnsurePlayer(ctx, player); err != nil {
		return fmt.Errorf("ensure player %d: %w", player.ID, err)
	}

	session, err := m.store.ActiveSession(ctx, msg.ChatID)
	hasSession := err == nil
	if err != nil && !errors.Is(err, ErrNoSession) {
		return fmt.Errorf("active session for chat %d: %w", msg.ChatID, err)
	}

	token, ok := filterMessage(msg.Text, hasSession && session.State == WaitingWordState)
	if !ok {
		m.deleteMessage(ctx, msg.ChatID, msg.ID)
		return nil
	}

	log := m.log.With("chat_id", msg.ChatID, "player_id", player.ID, "update_id", u.UpdateID)
	log.Debug("handle message", "token", token, "has_session", hasSession)

	if token == CmdStart {
		return m.onStart(ctx, msg.ChatID, player, hasSession)
	}
	if !hasSession {
		return m.send(ctx, msg.ChatID, messages.NoSession)
	}

	switch token {
	case CmdParticipate:
		return m.onParticipate(ctx, session, player)
	case CmdLaunch:
		return m.onLaunch(ctx, session, player)
	case CmdYes:
		return m.onVote(ctx, session, player, true)
	case CmdNo:
		return m.onVote(ctx, session, player, false)
	case CmdEnd:
		return m.onEnd(ctx, session, player, msg.ID)
	default:
		return m.onWord(ctx, session, player, token)
	}
}

// filterMessage пропускает только одно слово: команду в любом состоянии
// или произвольный текст, пока ждём слово.
func filterMessage(text string, waitingWord bool) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) != 1 {
		return "", false
	}

	token, isCmd := updates.Command(fields[0])
	if isCmd {
		return token, commands[token]
	}
	return token, waitingWord
}

func (m *Manager) onStart(ctx context.Context, chatID int64, player Player, hasSession bool) error {
	if hasSession {
		return m.send(ctx, chatID, messages.AlreadyStarted)
	}

	s, err := m.store.CreateSession(ctx, chatID, player.ID)
	if errors.Is(err, ErrSessionExists) {
		return m.send(ctx, chatID, messages.AlreadyStarted)
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	m.log.Info("session created", "session_id", s.ID, "chat_id", chatID, "creator_id", player.ID)
	return m.send(ctx, chatID, messages.Started(player.Name))
}

func (m *Manager) onParticipate(ctx context.Context, s Session, player Player) error {
	if s.State != PreparingState {
		return m.send(ctx, s.ChatID, messages.CantJoinNow)
	}

	joined, err := m.store.JoinSession(ctx, s.ID, player.ID)
	if err != nil {
		return fmt.Errorf("join session %d: %w", s.ID, err)
	}
	if joined {
		return m.send(ctx, s.ChatID, messages.Joined(player.Name))
	}

	// снимок мог устареть: игру запустили между чтением и вставкой
	fresh, err := m.store.Session(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("session %d: %w", s.ID, err)
	}
	if fresh.State != PreparingState {
		return m.send(ctx, s.ChatID, messages.CantJoinNow)
	}
	return m.send(ctx, s.ChatID, messages.AlreadyParticipates(player.Name))
}

// Сколько раз перестраиваем кольцо, если состав поменялся во время запуска
const launchAttempts = 3

func (m *Manager) onLaunch(ctx context.Context, s Session, player Player) error {
	if s.State != PreparingState {
		return m.send(ctx, s.ChatID, messages.AlreadyLaunched)
	}
	if player.ID != s.CreatorID {
		return m.send(ctx, s.ChatID, messages.NotCreatorToLaunch(player.Name))
	}
	if _, err := Transition(s.State, EventLaunch); err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		players, err := m.store.SessionPlayers(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("session players %d: %w", s.ID, err)
		}
		humans := make([]int64, 0, len(players))
		for _, p := range players {
			if p.PlayerID != BotPlayerID {
				humans = append(humans, p.PlayerID)
			}
		}
		if len(humans) < 2 {
			return m.send(ctx, s.ChatID, messages.TooFewPlayers)
		}

		m.rngMu.Lock()
		links, first, err := BuildRing(humans, m.rng)
		startWord := m.startWordLocked()
		m.rngMu.Unlock()
		if err != nil {
			return m.abort(ctx, s, err)
		}

		word, ok, err := m.store.Launch(ctx, s.ID, links, first, startWord)
		if errors.Is(err, ErrStaleRing) && attempt < launchAttempts {
			m.log.Debug("players changed during launch, rebuilding ring", "session_id", s.ID, "attempt", attempt)
			continue
		}
		if err != nil {
			return fmt.Errorf("launch session %d: %w", s.ID, err)
		}
		if !ok {
			return m.send(ctx, s.ChatID, messages.AlreadyLaunched)
		}

		m.log.Info("session launched", "session_id", s.ID, "players", len(humans), "first_player_id", first)

		// переход уже записан: сначала таймер, потом сообщения
		m.armWordTimer(s.ID, first, word.ID)
		return m.sendAll(ctx, s.ChatID,
			messages.Launched,
			messages.RemindWord(word.Text, NewRing(players).Name(first)),
		)
	}
}

func (m *Manager) startWordLocked() string {
	if !m.cfg.RandomStart {
		return FixedStartWord
	}
	return m.cfg.StartWords[m.rng.IntN(len(m.cfg.StartWords))]
}

func (m *Manager) onWord(ctx context.Context, s Session, player Player, text string) error {
	if s.State != WaitingWordState {
		return nil
	}
	if player.ID != s.TurnPlayerID {
		return m.send(ctx, s.ChatID, messages.WrongTurn(player.Name))
	}

	prev, err := m.store.LastApprovedWord(ctx, s.ID)
	if errors.Is(err, ErrNotFound) {
		return m.abort(ctx, s, fmt.Errorf("%w: no approved word in session %d", ErrInvariant, s.ID))
	}
	if err != nil {
		return fmt.Errorf("last approved word: %w", err)
	}

	if !ChainFits(prev.Text, text) {
		return m.send(ctx, s.ChatID, messages.WordDoesntFit(text))
	}

	if _, err := Transition(s.State, EventPropose); err != nil {
		return err
	}

	word, ok, err := m.store.ProposeWord(ctx, s.ID, player.ID, prev.ID, NormalizeWord(text))
	if err != nil {
		return fmt.Errorf("propose word: %w", err)
	}
	if !ok {
		// ход ушёл, пока проверяли слово (таймер или другой воркер)
		return m.send(ctx, s.ChatID, messages.WrongTurn(player.Name))
	}

	m.timers.Cancel(s.ID, WordTimer)
	m.armVoteTimer(s.ID, word.ID)

	return m.sendAll(ctx, s.ChatID,
		messages.WordProposed(player.Name, word.Text),
		messages.VoteForWord(word.Text),
	)
}

func (m *Manager) onVote(ctx context.Context, s Session, player Player, value bool) error {
	switch s.State {
	case PreparingState:
		return m.send(ctx, s.ChatID, messages.GameNotLaunched)
	case WaitingWordState:
		return m.send(ctx, s.ChatID, messages.NoWordToVote)
	}

	word, err := m.store.LatestWord(ctx, s.ID)
	if errors.Is(err, ErrNotFound) {
		return m.abort(ctx, s, fmt.Errorf("%w: no word under vote in session %d", ErrInvariant, s.ID))
	}
	if err != nil {
		return fmt.Errorf("latest word: %w", err)
	}
	if !word.Pending() {
		return m.send(ctx, s.ChatID, messages.NoWordToVote)
	}

	players, err := m.store.SessionPlayers(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("session players %d: %w", s.ID, err)
	}
	ring := NewRing(players)

	if !ring.Eligible(player.ID) || player.ID == word.ProposedBy {
		return m.send(ctx, s.ChatID, messages.CantVote(player.Name))
	}

	accepted, err := m.store.RecordVote(ctx, word.ID, player.ID, value)
	if err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	if !accepted {
		m.log.Debug("repeat vote ignored", "session_id", s.ID, "word_id", word.ID, "player_id", player.ID)
		return m.send(ctx, s.ChatID, messages.AlreadyVoted(player.Name))
	}

	// голос записан, кворум проверяем даже если ответ в чат не ушёл
	sendErr := m.send(ctx, s.ChatID, messages.SomeoneVoted(player.Name, voteLabel(value), word.Text))

	votes, err := m.store.WordVotes(ctx, word.ID)
	if err != nil {
		return errors.Join(sendErr, fmt.Errorf("word votes: %w", err))
	}
	if Tally(votes, len(ring.Remaining())) == DecisionPending {
		return sendErr
	}

	m.timers.Cancel(s.ID, VoteTimer)
	return errors.Join(sendErr, m.finalize(ctx, s.ID, word.ID, messages.AllPlayersVoted))
}

func voteLabel(value bool) string {
	if value {
		return "за"
	}
	return "против"
}

func (m *Manager) onEnd(ctx context.Context, s Session, player Player, messageID int) error {
	if player.ID != s.CreatorID {
		m.deleteMessage(ctx, s.ChatID, messageID)
		return nil
	}

	if _, err := Transition(s.State, EventEnd); err != nil {
		return err
	}

	ended, err := m.store.EndSession(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("end session %d: %w", s.ID, err)
	}
	m.timers.CancelSession(s.ID)
	if !ended {
		return m.send(ctx, s.ChatID, messages.NoSession)
	}

	m.log.Info("session ended by creator", "session_id", s.ID)
	return m.sendResults(ctx, s)
}

func (m *Manager) send(ctx context.Context, chatID int64, text string) error {
	if err := m.notifier.Send(ctx, chatID, text); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

// sendAll шлёт тексты по порядку. Ошибка одного не отменяет остальные,
// все ошибки возвращаются вместе.
func (m *Manager) sendAll(ctx context.Context, chatID int64, texts ...string) error {
	var errs []error
	for _, text := range texts {
		if err := m.send(ctx, chatID, text); err != nil {
			m.log.Warn("send failed", "chat_id", chatID, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deleteMessage - best effort, ошибка только в лог
func (m *Manager) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := m.notifier.Delete(ctx, chatID, messageID); err != nil {
		m.log.Warn("delete message failed", "chat_id", chatID, "message_id", messageID, "err", err)
	}
}

// abort - аварийное завершение сессии при нарушении инварианта.
func (m *Manager) abort(ctx context.Context, s Session, cause error) error {
	m.log.Error("session aborted", "session_id", s.ID, "chat_id", s.ChatID, "err", cause)
	m.alerter.Alert(ctx, "session aborted", "session_id", s.ID, "chat_id", s.ChatID, "err", cause.Error())

	m.timers.CancelSession(s.ID)
	if _, err := m.store.EndSession(ctx, s.ID); err != nil {
		return fmt.Errorf("abort session %d: %w (cause: %v)", s.ID, err, cause)
	}
	return m.send(ctx, s.ChatID, messages.ErrorMessageUsers)
}
