package game

import (
	"errors"
	"fmt"
)

// GameState is the turn-level state of a game.
type GameState string

const (
	StateBreak       GameState = "BREAK"
	StateAssignment  GameState = "ASSIGNMENT"
	StatePlayer1Turn GameState = "PLAYER1_TURN"
	StatePlayer2Turn GameState = "PLAYER2_TURN"
	StateFoul        GameState = "FOUL"
	StatePlayer1Win  GameState = "PLAYER1_WIN"
	StatePlayer2Win  GameState = "PLAYER2_WIN"
)

var ErrUnknownState = errors.New("unknown game state")

var allStates = []GameState{
	StateBreak, StateAssignment, StatePlayer1Turn, StatePlayer2Turn,
	StateFoul, StatePlayer1Win, StatePlayer2Win,
}

// ParseGameState converts a state name into a GameState.
func ParseGameState(s string) (GameState, error) {
	for _, st := range allStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
}

// BallGroup represents a player's assigned ball group.
type BallGroup string

const (
	GroupSolids  BallGroup = "SOLIDS"
	GroupStripes BallGroup = "STRIPES"
	GroupAny     BallGroup = "ANY" // not yet assigned
)

// Player is one side of the table. Group and BallsLeft are carried for rule
// extensions; turn alternation never touches them.
type Player struct {
	CurrentTurn bool      `json:"current_turn" msgpack:"c"`
	Group       BallGroup `json:"group" msgpack:"g"`
	BallsLeft   int       `json:"balls_left" msgpack:"l"`
}

// TurnState tracks whose turn it is. Only the alternation between the two
// player turns happens automatically; every other transition is set from outside.
type TurnState struct {
	State   GameState `json:"state"`
	Player1 Player    `json:"player1"`
	Player2 Player    `json:"player2"`
}

// NewTurnState returns a game with player 1 to shoot.
func NewTurnState() *TurnState {
	t := &TurnState{}
	t.Reset()
	return t
}

// Reset puts the game back to player 1's opening shot.
func (t *TurnState) Reset() {
	t.State = StatePlayer1Turn
	t.Player1 = Player{CurrentTurn: true, Group: GroupAny, BallsLeft: 7}
	t.Player2 = Player{CurrentTurn: false, Group: GroupAny, BallsLeft: 7}
}

// Current returns the current state.
func (t *TurnState) Current() GameState {
	return t.State
}

// SetState forces the state. Entering a player's turn also moves the
// current-turn marker; other states leave it where it was.
func (t *TurnState) SetState(s GameState) error {
	if _, err := ParseGameState(string(s)); err != nil {
		return err
	}
	t.State = s
	t.syncCurrentTurn()
	return nil
}

// SwitchTurn hands the table to the other player. It only applies while one
// of the players is at the table and returns false otherwise.
func (t *TurnState) SwitchTurn() bool {
	switch t.State {
	case StatePlayer1Turn:
		t.State = StatePlayer2Turn
	case StatePlayer2Turn:
		t.State = StatePlayer1Turn
	default:
		return false
	}
	t.syncCurrentTurn()
	return true
}

func (t *TurnState) syncCurrentTurn() {
	switch t.State {
	case StatePlayer1Turn:
		t.Player1.CurrentTurn, t.Player2.CurrentTurn = true, false
	case StatePlayer2Turn:
		t.Player1.CurrentTurn, t.Player2.CurrentTurn = false, true
	}
}
