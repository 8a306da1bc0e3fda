package game

import (
	"context"
	"errors"
	"fmt"

	messages "github.com/kiselevos/wordchain_game_bot/assets"
)

func (m *Manager) armWordTimer(sessionID, playerID, wordID int64) {
	m.timers.Arm(sessionID, WordTimer, m.cfg.WordWait, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, timerCallTimeout)
		defer cancel()

		if err := m.onWordTimeout(ctx, sessionID, playerID, wordID); err != nil {
			m.log.Error("word timeout", "session_id", sessionID, "player_id", playerID, "err", err)
		}
	})
}

func (m *Manager) armVoteTimer(sessionID, wordID int64) {
	m.timers.Arm(sessionID, VoteTimer, m.cfg.VoteWait, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, timerCallTimeout)
		defer cancel()

		if err := m.finalize(ctx, sessionID, wordID, messages.VoteTimeEnded); err != nil {
			m.log.Error("vote timeout", "session_id", sessionID, "word_id", wordID, "err", err)
		}
	})
}

// onWordTimeout - игрок не прислал слово вовремя и выбывает.
// Протухший таймер (ход ушёл, сессия закончилась) ничего не делает.
func (m *Manager) onWordTimeout(ctx context.Context, sessionID, playerID, wordID int64) error {
	s, err := m.store.Session(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session %d: %w", sessionID, err)
	}
	if s.State != WaitingWordState || s.TurnPlayerID != playerID {
		return nil
	}

	latest, err := m.store.LatestWord(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return m.abort(ctx, s, fmt.Errorf("%w: no words in session %d", ErrInvariant, sessionID))
	}
	if err != nil {
		return fmt.Errorf("latest word: %w", err)
	}
	if latest.ID != wordID {
		return nil
	}

	players, err := m.store.SessionPlayers(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session players %d: %w", sessionID, err)
	}
	ring := NewRing(players)

	notice := messages.WordTimeEnded + "\n" + messages.PlayerDropped(ring.Name(playerID))
	return m.eliminate(ctx, s, EventPassTurn, playerID, latest.ID, ring, notice)
}

// finalize подводит итог голосования за wordID. Вызывается по таймеру
// или досрочно при кворуме; второй вызов видит уже решённое слово и выходит.
func (m *Manager) finalize(ctx context.Context, sessionID, wordID int64, notice string) error {
	s, err := m.store.Session(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session %d: %w", sessionID, err)
	}
	if s.State != VoteState {
		return nil
	}

	word, err := m.store.LatestWord(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return m.abort(ctx, s, fmt.Errorf("%w: no word under vote in session %d", ErrInvariant, sessionID))
	}
	if err != nil {
		return fmt.Errorf("latest word: %w", err)
	}
	if word.ID != wordID || !word.Pending() {
		return nil
	}

	votes, err := m.store.WordVotes(ctx, wordID)
	if err != nil {
		return fmt.Errorf("word votes: %w", err)
	}
	approved := Verdict(votes) == DecisionApproved

	resolved, err := m.store.ResolveWord(ctx, wordID, approved)
	if err != nil {
		return fmt.Errorf("resolve word %d: %w", wordID, err)
	}
	if !resolved {
		return nil
	}
	word.Approved = &approved

	m.log.Info("word resolved", "session_id", sessionID, "word_id", wordID, "approved", approved, "votes", len(votes))

	// слово уже решено: игра идёт дальше, даже если объявление не ушло
	noticeErr := m.send(ctx, s.ChatID, notice)
	return errors.Join(noticeErr, m.afterVerdict(ctx, s, word, true))
}

// afterVerdict продолжает игру по уже решённому слову. award=false при
// восстановлении после рестарта: очки могли быть уже начислены.
func (m *Manager) afterVerdict(ctx context.Context, s Session, word Word, award bool) error {
	players, err := m.store.SessionPlayers(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("session players %d: %w", s.ID, err)
	}
	ring := NewRing(players)

	if word.Approved != nil && *word.Approved {
		points := m.scorer(word.Text)
		if award {
			if err := m.store.AwardPoints(ctx, s.ID, word.ProposedBy, points); err != nil {
				return fmt.Errorf("award points: %w", err)
			}
		}

		next, err := ring.Next(word.ProposedBy)
		if err != nil {
			return m.abort(ctx, s, err)
		}
		if _, err := Transition(s.State, EventApprove); err != nil {
			return err
		}
		ok, err := m.store.Transit(ctx, s.ID, VoteState, word.ProposedBy, WaitingWordState, next)
		if err != nil {
			return fmt.Errorf("transit after approve: %w", err)
		}
		if !ok {
			return nil
		}

		m.armWordTimer(s.ID, next, word.ID)
		return m.sendAll(ctx, s.ChatID,
			messages.VotePositive(word.Text, ring.Name(word.ProposedBy), points),
			messages.RemindWord(word.Text, ring.Name(next)),
		)
	}

	// Выбывает не автор слова, а следующий за ним игрок. Так было
	// в исходных правилах игры, менять без решения по геймдизайну нельзя.
	victim, err := ring.Next(word.ProposedBy)
	if err != nil {
		return m.abort(ctx, s, err)
	}
	notice := messages.VoteNegative(word.Text, ring.Name(victim))
	return m.eliminateFrom(ctx, s, EventReject, word.ProposedBy, victim, word.ID, ring, notice)
}

// eliminate выбивает игрока, на котором стоял ход.
func (m *Manager) eliminate(ctx context.Context, s Session, event Event, victim, latestWordID int64, ring *Ring, notice string) error {
	return m.eliminateFrom(ctx, s, event, victim, victim, latestWordID, ring, notice)
}

// eliminateFrom выбивает victim при текущем ходе fromTurn. Если живых меньше
// двух - объявляем победителя и закрываем сессию, иначе ход переходит
// к следующему после выбывшего.
func (m *Manager) eliminateFrom(ctx context.Context, s Session, event Event, fromTurn, victim, latestWordID int64, ring *Ring, notice string) error {
	ring.Drop(victim)
	remaining := ring.Remaining()

	if len(remaining) < 2 {
		if _, err := Transition(s.State, EventEnd); err != nil {
			return err
		}
		ok, err := m.store.Transit(ctx, s.ID, s.State, fromTurn, EndedState, 0)
		if err != nil {
			return fmt.Errorf("transit to ended: %w", err)
		}
		if !ok {
			return nil
		}
		m.timers.CancelSession(s.ID)

		if _, err := m.store.DropPlayer(ctx, s.ID, victim); err != nil {
			return fmt.Errorf("drop player %d: %w", victim, err)
		}
		m.log.Info("session finished", "session_id", s.ID, "dropped_id", victim, "remaining", len(remaining))

		texts := []string{notice}
		if len(remaining) == 1 {
			texts = append(texts, messages.Winner(ring.Name(remaining[0])))
		}
		return errors.Join(m.sendAll(ctx, s.ChatID, texts...), m.sendResults(ctx, s))
	}

	next, err := ring.Next(victim)
	if err != nil {
		return m.abort(ctx, s, err)
	}
	to, err := Transition(s.State, event)
	if err != nil {
		return err
	}

	// слово для подсказки читаем до перехода, после него таймер взводится без ожиданий
	prompt, err := m.store.LastApprovedWord(ctx, s.ID)
	if errors.Is(err, ErrNotFound) {
		return m.abort(ctx, s, fmt.Errorf("%w: no approved word in session %d", ErrInvariant, s.ID))
	}
	if err != nil {
		return fmt.Errorf("last approved word: %w", err)
	}

	ok, err := m.store.Transit(ctx, s.ID, s.State, fromTurn, to, next)
	if err != nil {
		return fmt.Errorf("transit after drop: %w", err)
	}
	if !ok {
		return nil
	}
	m.armWordTimer(s.ID, next, latestWordID)

	if _, err := m.store.DropPlayer(ctx, s.ID, victim); err != nil {
		return fmt.Errorf("drop player %d: %w", victim, err)
	}
	m.log.Info("player dropped", "session_id", s.ID, "dropped_id", victim, "next_id", next)

	return m.sendAll(ctx, s.ChatID, notice, messages.RemindWord(prompt.Text, ring.Name(next)))
}

func (m *Manager) sendResults(ctx context.Context, s Session) error {
	rows, err := m.standings(ctx, s.ID)
	if err != nil {
		return err
	}

	out := make([]messages.Standing, 0, len(rows))
	for _, r := range rows {
		out = append(out, messages.Standing{Name: r.Name, Points: r.Points, Dropped: r.Dropped})
	}
	return m.send(ctx, s.ChatID, messages.GameResults(out))
}
