package game

import "context"

// Store - единственный источник правды. Все записи атомарные и по ключу,
// чтения возвращают снимки.
type Store interface {
	EnsureChat(ctx context.Context, chatID int64) error
	EnsurePlayer(ctx context.Context, p Player) error
	// Player, Session, LatestWord, LastApprovedWord возвращают ErrNotFound.
	Player(ctx context.Context, playerID int64) (Player, error)

	// ActiveSession возвращает ErrNoSession, если в чате нет незавершённой игры.
	ActiveSession(ctx context.Context, chatID int64) (Session, error)
	LastSession(ctx context.Context, chatID int64) (Session, error)
	ActiveSessions(ctx context.Context) ([]Session, error)
	Session(ctx context.Context, sessionID int64) (Session, error)

	// CreateSession создаёт сессию в preparing и сразу добавляет создателя.
	// ErrSessionExists, если в чате уже есть незавершённая игра.
	CreateSession(ctx context.Context, chatID, creatorID int64) (Session, error)
	// JoinSession добавляет игрока, только пока сессия в preparing.
	// joined=false, если игрок уже в сессии или игра уже запущена.
	JoinSession(ctx context.Context, sessionID, playerID int64) (joined bool, err error)
	SessionPlayers(ctx context.Context, sessionID int64) ([]SessionPlayer, error)

	// Launch одной транзакцией: preparing -> waiting_word, кольцо, бот, стартовое слово.
	// ok=false, если сессия уже не в preparing. ErrStaleRing, если люди в ring
	// не совпадают с составом сессии на момент запуска.
	Launch(ctx context.Context, sessionID int64, ring []Link, firstPlayerID int64, startWord string) (w Word, ok bool, err error)

	// Transit - compare-and-set по (state, turn_player_id).
	Transit(ctx context.Context, sessionID int64, from State, fromTurn int64, to State, toTurn int64) (bool, error)

	// ProposeWord одной транзакцией: waiting_word -> vote для fromTurn и новое слово.
	// ok=false, если ход уже ушёл.
	ProposeWord(ctx context.Context, sessionID, playerID, previousWordID int64, text string) (w Word, ok bool, err error)
	LatestWord(ctx context.Context, sessionID int64) (Word, error)
	LastApprovedWord(ctx context.Context, sessionID int64) (Word, error)
	ResolveWord(ctx context.Context, wordID int64, approved bool) (bool, error)

	RecordVote(ctx context.Context, wordID, playerID int64, value bool) (accepted bool, err error)
	WordVotes(ctx context.Context, wordID int64) ([]Vote, error)

	AwardPoints(ctx context.Context, sessionID, playerID int64, points int) error
	DropPlayer(ctx context.Context, sessionID, playerID int64) (bool, error)

	// EndSession переводит любую незавершённую сессию в ended.
	EndSession(ctx context.Context, sessionID int64) (bool, error)
}

// Notifier - исходящие сообщения в чат-платформу.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
	// Delete - best effort, платформы без удаления просто ничего не делают.
	Delete(ctx context.Context, chatID int64, messageID int) error
}
