package game

import "errors"

var (
	ErrNoSession         = errors.New("no active session")
	ErrSessionExists     = errors.New("chat already has an active session")
	ErrNotFound          = errors.New("not found")
	ErrNoEligiblePlayers = errors.New("no eligible players left in ring")
	// ErrStaleRing - состав игроков поменялся, пока строили кольцо
	ErrStaleRing = errors.New("ring does not match session players")
	// ErrInvariant - нарушена структура, которая обязана быть (нет слова в идущей игре и т.п.)
	ErrInvariant = errors.New("session invariant violated")
)
