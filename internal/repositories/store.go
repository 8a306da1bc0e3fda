package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kiselevos/wordchain_game_bot/internal/db"
	"github.com/kiselevos/wordchain_game_bot/internal/game"
	"github.com/kiselevos/wordchain_game_bot/internal/models"
)

var _ game.Store = (*Store)(nil)

// Store - game.Store поверх postgres. Каждая запись - одна атомарная операция
// по ключу или compare-and-set, без чтения-изменения-записи в Go.
type Store struct {
	db *gorm.DB
}

func NewStore(database *db.Db) *Store {
	return &Store{db: database.DB}
}

func (s *Store) EnsureChat(ctx context.Context, chatID int64) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Chat{ID: chatID}).Error
	if err != nil {
		return fmt.Errorf("chats create if not exists: %w", err)
	}
	return nil
}

func (s *Store) EnsurePlayer(ctx context.Context, p game.Player) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Player{ID: p.ID, Name: p.Name}).Error
	if err != nil {
		return fmt.Errorf("players create if not exists: %w", err)
	}
	return nil
}

func (s *Store) Player(ctx context.Context, playerID int64) (game.Player, error) {
	var m models.Player
	if err := s.db.WithContext(ctx).Take(&m, playerID).Error; err != nil {
		return game.Player{}, notFound(err, game.ErrNotFound)
	}
	return game.Player{ID: m.ID, Name: m.Name}, nil
}

func (s *Store) ActiveSession(ctx context.Context, chatID int64) (game.Session, error) {
	var m models.GameSession
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND state <> ?", chatID, string(game.EndedState)).
		Take(&m).Error
	if err != nil {
		return game.Session{}, notFound(err, game.ErrNoSession)
	}
	return toSession(m), nil
}

func (s *Store) LastSession(ctx context.Context, chatID int64) (game.Session, error) {
	var m models.GameSession
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id DESC").
		Take(&m).Error
	if err != nil {
		return game.Session{}, notFound(err, game.ErrNoSession)
	}
	return toSession(m), nil
}

func (s *Store) ActiveSessions(ctx context.Context) ([]game.Session, error) {
	var rows []models.GameSession
	err := s.db.WithContext(ctx).
		Where("state <> ?", string(game.EndedState)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}

	out := make([]game.Session, 0, len(rows))
	for _, m := range rows {
		out = append(out, toSession(m))
	}
	return out, nil
}

func (s *Store) Session(ctx context.Context, sessionID int64) (game.Session, error) {
	var m models.GameSession
	if err := s.db.WithContext(ctx).Take(&m, sessionID).Error; err != nil {
		return game.Session{}, notFound(err, game.ErrNotFound)
	}
	return toSession(m), nil
}

func (s *Store) CreateSession(ctx context.Context, chatID, creatorID int64) (game.Session, error) {
	m := models.GameSession{ChatID: chatID, CreatorID: creatorID, State: string(game.PreparingState)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return tx.Create(&models.SessionPlayer{SessionID: m.ID, PlayerID: creatorID}).Error
	})
	if isUniqueViolation(err) {
		return game.Session{}, game.ErrSessionExists
	}
	if err != nil {
		return game.Session{}, fmt.Errorf("game_sessions create: %w", err)
	}
	return toSession(m), nil
}

// JoinSession держит строку сессии FOR SHARE, поэтому вставка либо успевает
// до Launch, либо видит, что сессия уже не в preparing.
func (s *Store) JoinSession(ctx context.Context, sessionID, playerID int64) (bool, error) {
	res := s.db.WithContext(ctx).Exec(`
INSERT INTO session_players (session_id, player_id)
SELECT ?, ?
WHERE EXISTS (
    SELECT 1 FROM game_sessions WHERE id = ? AND state = ? FOR SHARE
)
ON CONFLICT DO NOTHING
`, sessionID, playerID, sessionID, string(game.PreparingState))
	return swapped(res)
}

type sessionPlayerRow struct {
	SessionID    int64
	PlayerID     int64
	Name         string
	Points       int
	DroppedOut   bool
	NextPlayerID int64
}

func (s *Store) SessionPlayers(ctx context.Context, sessionID int64) ([]game.SessionPlayer, error) {
	var rows []sessionPlayerRow
	err := s.db.WithContext(ctx).Raw(`
SELECT sp.session_id, sp.player_id, p.name, sp.points, sp.dropped_out, sp.next_player_id
FROM session_players sp
JOIN players p ON p.id = sp.player_id
WHERE sp.session_id = ?
ORDER BY sp.joined_at, sp.player_id
`, sessionID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}

	out := make([]game.SessionPlayer, 0, len(rows))
	for _, r := range rows {
		out = append(out, game.SessionPlayer(r))
	}
	return out, nil
}

func (s *Store) Launch(ctx context.Context, sessionID int64, ring []game.Link, firstPlayerID int64, startWord string) (game.Word, bool, error) {
	var (
		word     models.Word
		launched bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// FOR UPDATE ждёт незакоммиченные JoinSession и не пускает новые
		var session models.GameSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND state = ?", sessionID, string(game.PreparingState)).
			Take(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}

		var joined []int64
		err = tx.Model(&models.SessionPlayer{}).
			Where("session_id = ? AND player_id <> ?", sessionID, game.BotPlayerID).
			Pluck("player_id", &joined).Error
		if err != nil {
			return fmt.Errorf("session members: %w", err)
		}
		if !sameHumans(ring, joined) {
			return game.ErrStaleRing
		}

		res := tx.Exec(`
UPDATE game_sessions
SET state = ?, turn_player_id = ?, updated_at = now()
WHERE id = ? AND state = ?
`, string(game.WaitingWordState), firstPlayerID, sessionID, string(game.PreparingState))
		if err := ensureRowsAffected(res, fmt.Sprintf("session %d in preparing", sessionID)); err != nil {
			return err
		}

		err = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.SessionPlayer{SessionID: sessionID, PlayerID: game.BotPlayerID}).Error
		if err != nil {
			return fmt.Errorf("add bot: %w", err)
		}

		for _, l := range ring {
			res := tx.Exec(`
UPDATE session_players
SET next_player_id = ?
WHERE session_id = ? AND player_id = ?
`, l.NextPlayerID, sessionID, l.PlayerID)
			if err := ensureRowsAffected(res, fmt.Sprintf("ring link for player %d", l.PlayerID)); err != nil {
				return err
			}
		}

		approved := true
		word = models.Word{SessionID: sessionID, Text: startWord, ProposedBy: game.BotPlayerID, Approved: &approved}
		if err := tx.Create(&word).Error; err != nil {
			return fmt.Errorf("start word: %w", err)
		}

		launched = true
		return nil
	})
	if err != nil {
		return game.Word{}, false, fmt.Errorf("launch session %d: %w", sessionID, err)
	}
	return toWord(word), launched, nil
}

func (s *Store) Transit(ctx context.Context, sessionID int64, from game.State, fromTurn int64, to game.State, toTurn int64) (bool, error) {
	res := s.db.WithContext(ctx).Exec(`
UPDATE game_sessions
SET state = ?, turn_player_id = ?, updated_at = now()
WHERE id = ? AND state = ? AND turn_player_id = ?
`, string(to), toTurn, sessionID, string(from), fromTurn)
	return swapped(res)
}

func (s *Store) ProposeWord(ctx context.Context, sessionID, playerID, previousWordID int64, text string) (game.Word, bool, error) {
	var (
		word     models.Word
		proposed bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
UPDATE game_sessions
SET state = ?, updated_at = now()
WHERE id = ? AND state = ? AND turn_player_id = ?
`, string(game.VoteState), sessionID, string(game.WaitingWordState), playerID)
		ok, err := swapped(res)
		if err != nil || !ok {
			return err
		}

		word = models.Word{SessionID: sessionID, Text: text, ProposedBy: playerID, PreviousWordID: &previousWordID}
		if err := tx.Create(&word).Error; err != nil {
			return err
		}
		proposed = true
		return nil
	})
	if err != nil {
		return game.Word{}, false, fmt.Errorf("propose word: %w", err)
	}
	return toWord(word), proposed, nil
}

func (s *Store) LatestWord(ctx context.Context, sessionID int64) (game.Word, error) {
	var m models.Word
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Take(&m).Error
	if err != nil {
		return game.Word{}, notFound(err, game.ErrNotFound)
	}
	return toWord(m), nil
}

func (s *Store) LastApprovedWord(ctx context.Context, sessionID int64) (game.Word, error) {
	var m models.Word
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND approved = true", sessionID).
		Order("id DESC").
		Take(&m).Error
	if err != nil {
		return game.Word{}, notFound(err, game.ErrNotFound)
	}
	return toWord(m), nil
}

func (s *Store) ResolveWord(ctx context.Context, wordID int64, approved bool) (bool, error) {
	res := s.db.WithContext(ctx).Exec(`
UPDATE words
SET approved = ?
WHERE id = ? AND approved IS NULL
`, approved, wordID)
	return swapped(res)
}

func (s *Store) RecordVote(ctx context.Context, wordID, playerID int64, value bool) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Vote{WordID: wordID, PlayerID: playerID, Value: value})
	return swapped(res)
}

func (s *Store) WordVotes(ctx context.Context, wordID int64) ([]game.Vote, error) {
	var rows []models.Vote
	if err := s.db.WithContext(ctx).Where("word_id = ?", wordID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("word votes: %w", err)
	}

	out := make([]game.Vote, 0, len(rows))
	for _, v := range rows {
		out = append(out, game.Vote{WordID: v.WordID, PlayerID: v.PlayerID, Value: v.Value})
	}
	return out, nil
}

func (s *Store) AwardPoints(ctx context.Context, sessionID, playerID int64, points int) error {
	res := s.db.WithContext(ctx).Exec(`
UPDATE session_players
SET points = points + ?
WHERE session_id = ? AND player_id = ?
`, points, sessionID, playerID)

	return ensureRowsAffected(res,
		fmt.Sprintf("session_players award: player %d in session %d", playerID, sessionID))
}

func (s *Store) DropPlayer(ctx context.Context, sessionID, playerID int64) (bool, error) {
	res := s.db.WithContext(ctx).Exec(`
UPDATE session_players
SET dropped_out = true
WHERE session_id = ? AND player_id = ? AND dropped_out = false
`, sessionID, playerID)
	return swapped(res)
}

func (s *Store) EndSession(ctx context.Context, sessionID int64) (bool, error) {
	res := s.db.WithContext(ctx).Exec(`
UPDATE game_sessions
SET state = ?, updated_at = now()
WHERE id = ? AND state <> ?
`, string(game.EndedState), sessionID, string(game.EndedState))
	return swapped(res)
}

func toSession(m models.GameSession) game.Session {
	return game.Session{
		ID:           m.ID,
		ChatID:       m.ChatID,
		CreatorID:    m.CreatorID,
		State:        game.State(m.State),
		TurnPlayerID: m.TurnPlayerID,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toWord(m models.Word) game.Word {
	w := game.Word{
		ID:         m.ID,
		SessionID:  m.SessionID,
		Text:       m.Text,
		ProposedBy: m.ProposedBy,
		Approved:   m.Approved,
	}
	if m.PreviousWordID != nil {
		w.PreviousWordID = *m.PreviousWordID
	}
	return w
}
