package game

import (
	"context"
	"errors"
	"fmt"
	"sort"

	messages "github.com/kiselevos/wordchain_game_bot/assets"
)

// Standing - строка итоговой таблицы
type Standing struct {
	PlayerID int64  `json:"player_id"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Dropped  bool   `json:"dropped_out"`
}

// Standings - очки текущей игры в чате, либо последней завершённой.
func (m *Manager) Standings(ctx context.Context, chatID int64) (Session, []Standing, error) {
	s, err := m.store.ActiveSession(ctx, chatID)
	if errors.Is(err, ErrNoSession) {
		s, err = m.store.LastSession(ctx, chatID)
	}
	if err != nil {
		return Session{}, nil, err
	}

	rows, err := m.standings(ctx, s.ID)
	return s, rows, err
}

func (m *Manager) standings(ctx context.Context, sessionID int64) ([]Standing, error) {
	players, err := m.store.SessionPlayers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session players %d: %w", sessionID, err)
	}

	rows := make([]Standing, 0, len(players))
	for _, p := range players {
		if p.PlayerID == BotPlayerID {
			continue
		}
		name := p.Name
		if name == "" {
			name = messages.UnknownPerson
		}
		rows = append(rows, Standing{PlayerID: p.PlayerID, Name: name, Points: p.Points, Dropped: p.DroppedOut})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// Resume поднимает таймеры незавершённых игр после рестарта.
// Ошибка одной сессии не мешает остальным.
func (m *Manager) Resume(ctx context.Context) error {
	sessions, err := m.store.ActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("active sessions: %w", err)
	}

	var errs []error
	for _, s := range sessions {
		if err := m.resumeSession(ctx, s); err != nil {
			m.log.Error("resume session", "session_id", s.ID, "err", err)
			errs = append(errs, fmt.Errorf("session %d: %w", s.ID, err))
		}
	}

	m.log.Info("sessions resumed", "total", len(sessions), "failed", len(errs))
	return errors.Join(errs...)
}

func (m *Manager) resumeSession(ctx context.Context, s Session) error {
	if s.State == PreparingState {
		return nil
	}

	word, err := m.store.LatestWord(ctx, s.ID)
	if errors.Is(err, ErrNotFound) {
		return m.abort(ctx, s, fmt.Errorf("%w: active session %d without words", ErrInvariant, s.ID))
	}
	if err != nil {
		return fmt.Errorf("latest word: %w", err)
	}

	switch s.State {
	case WaitingWordState:
		prompt, err := m.store.LastApprovedWord(ctx, s.ID)
		if errors.Is(err, ErrNotFound) {
			return m.abort(ctx, s, fmt.Errorf("%w: no approved word in session %d", ErrInvariant, s.ID))
		}
		if err != nil {
			return fmt.Errorf("last approved word: %w", err)
		}
		players, err := m.store.SessionPlayers(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("session players %d: %w", s.ID, err)
		}

		m.armWordTimer(s.ID, s.TurnPlayerID, word.ID)
		return m.send(ctx, s.ChatID, messages.RemindWord(prompt.Text, NewRing(players).Name(s.TurnPlayerID)))

	case VoteState:
		if word.Pending() {
			m.armVoteTimer(s.ID, word.ID)
			return m.send(ctx, s.ChatID, messages.VoteForWord(word.Text))
		}
		// упали между решением по слову и переходом хода
		return m.afterVerdict(ctx, s, word, false)
	}
	return nil
}
