package game

import "time"

// BotPlayerID - синтетический игрок, который загадывает первое слово.
// В подсчёте победителя и выбывания не участвует.
const (
	BotPlayerID   int64 = -1
	BotPlayerName       = "bot"
)

type Player struct {
	ID   int64
	Name string
}

// Session - снимок игровой сессии из хранилища
type Session struct {
	ID           int64
	ChatID       int64
	CreatorID    int64
	State        State
	TurnPlayerID int64 // чей ход (или чьё слово на голосовании)
	UpdatedAt    time.Time
}

type SessionPlayer struct {
	SessionID    int64
	PlayerID     int64
	Name         string
	Points       int
	DroppedOut   bool
	NextPlayerID int64
}

type Word struct {
	ID             int64
	SessionID      int64
	Text           string
	ProposedBy     int64
	PreviousWordID int64
	Approved       *bool // nil - ещё голосуют
}

func (w Word) Pending() bool {
	return w.Approved == nil
}

type Vote struct {
	WordID   int64
	PlayerID int64
	Value    bool
}
