package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"gomoku/evaluator"
	"gomoku/game"
	"gomoku/searcher"
	"gomoku/utils"
)

func emptyBoard(t *testing.T) *game.Board {
	t.Helper()
	b, err := game.NewBoard(5, 5, 4)
	require.NoError(t, err)
	return b
}

func TestEvaluationAgent(t *testing.T) {
	mcts := searcher.NewRolloutMCTS(searcher.DefaultUCB1C, 100, utils.NewRand(1), searcher.WithMetrics())
	a := NewEvaluationAgent(mcts)
	board := emptyBoard(t)

	decision, err := a.FindMove(board)
	require.NoError(t, err)

	require.Equal(t, mcts.BestMove(), decision.Move, "Evaluation plays the robust child")
	require.Equal(t, 100, decision.Metric.Playouts)
	require.Contains(t, board.LegalMoves(), decision.Move)

	a.Advance(decision.Move)
	next, err := a.FindMove(board.Play(decision.Move))
	require.NoError(t, err)
	require.False(t, next.Metric.IsTreeReset, "Tree is reused after the agent's own move")
}

func TestTrainingAgent(t *testing.T) {
	mcts := searcher.NewGuidedMCTS(evaluator.Uniform{}, 5, 60, searcher.WithRand(utils.NewRand(2)))
	a := NewTrainingAgent(mcts, 1, utils.NewRand(3))
	board := emptyBoard(t)

	decision, err := a.FindMove(board)
	require.NoError(t, err)

	require.InDelta(t, 1.0, floats.Sum(decision.Policy.Probs), 1e-9)
	require.Len(t, decision.Policy.Moves, 25)
	require.Contains(t, decision.Policy.Moves, decision.Move)

	a.Reset()
	moves, _ := mcts.Visits()
	require.Nil(t, moves)
}
