package searcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"gomoku/evaluator"
	"gomoku/game"
	"gomoku/utils"
)

/**
- search: exact playout budget, visit conservation on every expanded node,
  priors summing to 1 over legal moves
- noise: root priors stay a distribution, applied once per root
- tree reuse: advance keeps the chosen subtree, unknown moves reset
- end to end: both searches find a one-ply win on a 5x5 board
*/

type failingEvaluator struct{}

var errEvaluator = errors.New("evaluator down")

func (failingEvaluator) PolicyValue(game.Tensor) ([]float64, float64, error) {
	return nil, 0, errEvaluator
}

func newBoard(t *testing.T, width, height, nInRow int, cells ...[2]int) *game.Board {
	t.Helper()
	b, err := game.NewBoard(width, height, nInRow)
	require.NoError(t, err)
	var s game.State = b
	for _, c := range cells {
		s = s.Play(b.MoveAt(c[0], c[1]))
	}
	return s.(*game.Board)
}

// forcedWin has Player1 to move with (0,3) completing four in a row.
func forcedWin(t *testing.T) *game.Board {
	return newBoard(t, 5, 5, 4,
		[2]int{0, 0}, [2]int{4, 4}, [2]int{0, 1}, [2]int{4, 2}, [2]int{0, 2}, [2]int{2, 4})
}

func checkConservation(t *testing.T, n *node) {
	t.Helper()
	if n.isLeaf() {
		return
	}
	sum := 0
	for _, child := range n.children {
		sum += child.visits
		checkConservation(t, child)
	}
	require.Equal(t, n.visits, 1+sum, "Visits must equal 1 plus the children's visits")
	require.InDelta(t, 1.0, sumPriors(n), 1e-9, "Priors must sum to 1")
}

func sumPriors(n *node) float64 {
	priors := make([]float64, len(n.children))
	for i, child := range n.children {
		priors[i] = child.prior
	}
	return floats.Sum(priors)
}

func TestSearch(t *testing.T) {
	t.Run("rollout search runs the exact budget", func(t *testing.T) {
		m := NewRolloutMCTS(DefaultUCB1C, 200, utils.NewRand(7), WithMetrics())
		metric, err := m.Search(newBoard(t, 5, 5, 4))
		require.NoError(t, err)

		require.Equal(t, 200, metric.Playouts)
		require.True(t, metric.IsTreeReset)
		require.Equal(t, 200, m.root.visits)
		checkConservation(t, m.root)
	})

	t.Run("guided search conserves visits", func(t *testing.T) {
		m := NewGuidedMCTS(evaluator.Uniform{}, 5, 300, WithRand(utils.NewRand(3)))
		_, err := m.Search(newBoard(t, 5, 5, 4, [2]int{2, 2}))
		require.NoError(t, err)

		require.Equal(t, 300, m.root.visits)
		require.Len(t, m.root.children, 24, "One child per legal move")
		checkConservation(t, m.root)
	})

	t.Run("policy is a distribution over legal moves", func(t *testing.T) {
		board := newBoard(t, 5, 5, 4, [2]int{2, 2}, [2]int{1, 1})
		m := NewGuidedMCTS(evaluator.Uniform{}, 5, 100, WithRand(utils.NewRand(3)))
		_, err := m.Search(board)
		require.NoError(t, err)

		policy := m.Policy(1)
		require.ElementsMatch(t, board.LegalMoves(), policy.Moves)
		require.InDelta(t, 1.0, floats.Sum(policy.Probs), 1e-9)
		require.InDelta(t, 1.0, floats.Sum(policy.Dense(board.MoveSpace())), 1e-9)
	})

	t.Run("evaluator failures propagate", func(t *testing.T) {
		m := NewGuidedMCTS(failingEvaluator{}, 5, 10)
		_, err := m.Search(newBoard(t, 5, 5, 4))
		require.ErrorIs(t, err, errEvaluator)
	})

	t.Run("refuses a finished game", func(t *testing.T) {
		board := newBoard(t, 5, 5, 4,
			[2]int{0, 0}, [2]int{4, 4}, [2]int{0, 1}, [2]int{4, 2}, [2]int{0, 2}, [2]int{2, 4}, [2]int{0, 3})
		m := NewRolloutMCTS(DefaultUCB1C, 10, utils.NewRand(1))
		_, err := m.Search(board)
		require.ErrorIs(t, err, ErrGameOver)
	})

	t.Run("panics without playouts", func(t *testing.T) {
		require.Panics(t, func() { NewGuidedMCTS(evaluator.Uniform{}, 5, 0) })
	})
}

func TestDirichletNoise(t *testing.T) {
	m := NewGuidedMCTS(evaluator.Uniform{}, 5, 50,
		WithDirichletNoise(0.3, 0.25), WithRand(utils.NewRand(11)))
	_, err := m.Search(newBoard(t, 5, 5, 4))
	require.NoError(t, err)

	require.True(t, m.root.noised)
	require.InDelta(t, 1.0, sumPriors(m.root), 1e-9)
	perturbed := false
	for _, child := range m.root.children {
		if child.prior != 1./25 {
			perturbed = true
		}
	}
	require.True(t, perturbed, "Noise should move the uniform priors")

	before := make([]float64, len(m.root.children))
	for i, child := range m.root.children {
		before[i] = child.prior
	}
	addDirichletNoise(m.root, 0.3, 0.25, m.rng)
	for i, child := range m.root.children {
		require.Equal(t, before[i], child.prior, "Noise is applied once per root")
	}
}

func TestAdvance(t *testing.T) {
	t.Run("keeps the subtree of the played move", func(t *testing.T) {
		board := newBoard(t, 5, 5, 4)
		m := NewRolloutMCTS(DefaultUCB1C, 300, utils.NewRand(5), WithMetrics())
		_, err := m.Search(board)
		require.NoError(t, err)

		move := m.BestMove()
		child := m.root.child(move)
		visits := child.visits
		m.Advance(move)

		require.Same(t, child, m.root)
		require.Nil(t, m.root.parent, "New root is detached")

		metric, err := m.Search(board.Play(move))
		require.NoError(t, err)
		require.False(t, metric.IsTreeReset)
		require.Equal(t, visits+300, m.root.visits)
		checkConservation(t, m.root)
	})

	t.Run("unknown moves start over", func(t *testing.T) {
		m := NewRolloutMCTS(DefaultUCB1C, 5, utils.NewRand(5))
		_, err := m.Search(newBoard(t, 5, 5, 4))
		require.NoError(t, err)

		m.Advance(game.Move(99))
		require.Nil(t, m.root)
		moves, visits := m.Visits()
		require.Nil(t, moves)
		require.Nil(t, visits)
	})
}

func TestForcedWin(t *testing.T) {
	winning := game.Move(3) // (0,3)

	t.Run("rollout search finds the win", func(t *testing.T) {
		for _, seed := range []uint64{1, 2} {
			m := NewRolloutMCTS(DefaultUCB1C, 500, utils.NewRand(seed))
			_, err := m.Search(forcedWin(t))
			require.NoError(t, err)
			require.Equal(t, winning, m.BestMove(), "seed %d", seed)
		}
	})

	t.Run("guided search finds the win", func(t *testing.T) {
		m := NewGuidedMCTS(evaluator.Uniform{}, 5, 500, WithRand(utils.NewRand(1)))
		_, err := m.Search(forcedWin(t))
		require.NoError(t, err)
		require.Equal(t, winning, m.BestMove())
		require.Equal(t, winning, m.Policy(0).Sample(m.Rand()))
	})
}
