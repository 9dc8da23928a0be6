package agent

import (
	"gomoku/experiments/metrics"
	"gomoku/game"
	"gomoku/searcher"
)

// Decision is the chosen move along with the distribution it was picked from.
type Decision struct {
	Move   game.Move
	Policy searcher.Policy
	Metric metrics.SearchMetric
}

type Agent interface {
	// FindMove searches state and picks a move
	FindMove(state game.State) (Decision, error)
	// Advance tells the agent a move was played, by either side
	Advance(move game.Move)
	// Reset drops everything the agent learned about the current game
	Reset()
}

type mctsAgent struct {
	mcts *searcher.MCTS
}

func (a mctsAgent) Advance(move game.Move) {
	a.mcts.Advance(move)
}

func (a mctsAgent) Reset() {
	a.mcts.Reset()
}
