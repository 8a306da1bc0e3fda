package game

import (
	"errors"
	"fmt"
)

type State string
type Event string

const (
	// Состояния
	PreparingState   State = "preparing"
	WaitingWordState State = "waiting_word"
	VoteState        State = "vote"
	EndedState       State = "ended"

	// События
	EventLaunch   Event = "launch"
	EventPropose  Event = "propose"
	EventPassTurn Event = "pass_turn"
	EventApprove  Event = "approve"
	EventReject   Event = "reject"
	EventEnd      Event = "end"
)

var ErrInvalidTransition = errors.New("invalid transition")

var transitions = map[State]map[Event]State{
	PreparingState: {
		EventLaunch: WaitingWordState,
		EventEnd:    EndedState,
	},
	WaitingWordState: {
		EventPropose:  VoteState,
		EventPassTurn: WaitingWordState,
		EventEnd:      EndedState,
	},
	VoteState: {
		EventApprove: WaitingWordState,
		EventReject:  WaitingWordState,
		EventEnd:     EndedState,
	},
}

// Transition - следующее состояние по таблице переходов. Из ended выхода нет.
func Transition(from State, event Event) (State, error) {
	next, ok := transitions[from][event]
	if !ok {
		return from, fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, from, event)
	}
	return next, nil
}

func (s State) Valid() bool {
	switch s {
	case PreparingState, WaitingWordState, VoteState, EndedState:
		return true
	}
	return false
}

func (s State) Active() bool {
	return s != EndedState
}
