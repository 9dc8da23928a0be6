package game

import "errors"

// Move identifies a board cell: row*width + col.
type Move int

// Player identifies a side. NoPlayer doubles as the draw sentinel for winners.
type Player int

const (
	NoPlayer Player = iota
	Player1
	Player2
)

// Opponent returns the other side. NoPlayer has no opponent.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return NoPlayer
	}
}

var ErrInvalidMove = errors.New("invalid move")

// State should be immutable - operations on State always return a new copy
type State interface {
	// Player returns the side about to move.
	Player() Player
	// LegalMoves lists the playable moves in enumeration order, empty once the game is over.
	LegalMoves() []Move
	// Play applies a legal move. Playing an illegal move panics with ErrInvalidMove.
	Play(Move) State
	// Terminal reports whether the game is over and who won (NoPlayer on a draw).
	Terminal() (done bool, winner Player)
	// Encode returns the fixed-shape numeric representation fed to evaluators.
	Encode() Tensor
	// MoveSpace is the size of the full move space (every cell of the board).
	MoveSpace() int
}

// Outcome scores a finished game from the perspective of player:
// +1 for a win, -1 for a loss, 0 for a draw.
func Outcome(winner, player Player) float64 {
	switch winner {
	case NoPlayer:
		return 0
	case player:
		return 1
	default:
		return -1
	}
}
