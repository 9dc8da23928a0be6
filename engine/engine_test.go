package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"gomoku/evaluator"
	"gomoku/game"
	"gomoku/searcher"
	"gomoku/searcher/agent"
	"gomoku/utils"
)

type failingEvaluator struct{}

var errEvaluator = errors.New("evaluator down")

func (failingEvaluator) PolicyValue(game.Tensor) ([]float64, float64, error) {
	return nil, 0, errEvaluator
}

func smallBoard() game.State {
	b, err := game.NewBoard(4, 4, 3)
	if err != nil {
		panic(err)
	}
	return b
}

func newSelfPlay() SelfPlay {
	return SelfPlay{
		NewState:         smallBoard,
		CPuct:            5,
		Playouts:         30,
		DirichletAlpha:   0.3,
		DirichletEpsilon: 0.25,
	}
}

func TestSelfPlay(t *testing.T) {
	t.Run("labels every move with the final outcome", func(t *testing.T) {
		winner, samples, err := newSelfPlay().Play(context.Background(), evaluator.Uniform{}, 1, utils.NewRand(9))
		require.NoError(t, err)
		require.NotEmpty(t, samples)

		for i, s := range samples {
			require.NoError(t, s.State.Validate())
			require.Len(t, s.Probs, 16)
			require.InDelta(t, 1.0, floats.Sum(s.Probs), 1e-9)

			// Player1 moves on even steps.
			mover := game.Player1
			if i%2 == 1 {
				mover = game.Player2
			}
			require.Equal(t, game.Outcome(winner, mover), s.Z)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := newSelfPlay().Play(ctx, evaluator.Uniform{}, 1, utils.NewRand(1))
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("propagates evaluator failures", func(t *testing.T) {
		_, samples, err := newSelfPlay().Play(context.Background(), failingEvaluator{}, 1, utils.NewRand(1))
		require.ErrorIs(t, err, errEvaluator)
		require.Nil(t, samples)
	})
}

func TestLocalEngine(t *testing.T) {
	t.Run("plays to the end and records every move", func(t *testing.T) {
		agents := []agent.Agent{
			agent.NewEvaluationAgent(searcher.NewRolloutMCTS(searcher.DefaultUCB1C, 50, utils.NewRand(1), searcher.WithMetrics())),
			agent.NewEvaluationAgent(searcher.NewGuidedMCTS(evaluator.Uniform{}, 5, 50, searcher.WithRand(utils.NewRand(2)))),
		}
		e := LocalEngine(smallBoard(), agents...)

		winner, gameMetric, moveMetrics, err := e.Run()
		require.NoError(t, err)

		done, got := e.State.Terminal()
		require.True(t, done)
		require.Equal(t, got, winner)
		require.Equal(t, int(winner), gameMetric.Winner)
		require.Equal(t, int(game.Player1), gameMetric.StartingPlayer)
		require.Len(t, moveMetrics, gameMetric.TotalMoves)
		require.Equal(t, 50, moveMetrics[0].Playouts, "Player1 collects metrics")
		require.Equal(t, int(game.Player2), moveMetrics[1].Player)
	})

	t.Run("panics without two agents", func(t *testing.T) {
		require.Panics(t, func() { LocalEngine(smallBoard()) })
	})
}
