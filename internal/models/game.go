package models

import "time"

// Таблицы создаются goose-миграциями, gorm только читает и пишет.

type Chat struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

func (Chat) TableName() string { return "chats" }

type Player struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"column:name"`
	CreatedAt time.Time
}

func (Player) TableName() string { return "players" }

type GameSession struct {
	ID           int64  `gorm:"primaryKey"`
	ChatID       int64  `gorm:"column:chat_id"`
	CreatorID    int64  `gorm:"column:creator_id"`
	State        string `gorm:"column:state"`
	TurnPlayerID int64  `gorm:"column:turn_player_id"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (GameSession) TableName() string { return "game_sessions" }

type SessionPlayer struct {
	SessionID    int64     `gorm:"primaryKey;autoIncrement:false"`
	PlayerID     int64     `gorm:"primaryKey;autoIncrement:false"`
	Points       int       `gorm:"column:points"`
	DroppedOut   bool      `gorm:"column:dropped_out"`
	NextPlayerID int64     `gorm:"column:next_player_id"`
	JoinedAt     time.Time `gorm:"column:joined_at;autoCreateTime"`
}

func (SessionPlayer) TableName() string { return "session_players" }

type Word struct {
	ID             int64  `gorm:"primaryKey"`
	SessionID      int64  `gorm:"column:session_id"`
	Text           string `gorm:"column:text"`
	ProposedBy     int64  `gorm:"column:proposed_by"`
	PreviousWordID *int64 `gorm:"column:previous_word_id"`
	Approved       *bool  `gorm:"column:approved"` // NULL - голосование идёт
	CreatedAt      time.Time
}

func (Word) TableName() string { return "words" }

type Vote struct {
	WordID    int64 `gorm:"primaryKey;autoIncrement:false"`
	PlayerID  int64 `gorm:"primaryKey;autoIncrement:false"`
	Value     bool  `gorm:"column:value"`
	CreatedAt time.Time
}

func (Vote) TableName() string { return "votes" }
