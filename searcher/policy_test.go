package searcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"gomoku/game"
)

func TestUCB1Score(t *testing.T) {
	policy := UCB1{C: DefaultUCB1C}

	t.Run("unvisited children score infinity", func(t *testing.T) {
		require.True(t, math.IsInf(policy.Score(Stats{Visits: 10}, Stats{}), 1))
	})

	t.Run("computing UCB1 value", func(t *testing.T) {
		got := policy.Score(Stats{Visits: 100}, Stats{Visits: 10, Value: 5})
		expected := 0.5 + math.Sqrt2*math.Sqrt(math.Log(100)/10)
		require.InDelta(t, expected, got, 1e-9)
	})

	t.Run("exploration term increases with parent visits", func(t *testing.T) {
		child := Stats{Visits: 10, Value: 5}
		require.Greater(t, policy.Score(Stats{Visits: 1000}, child), policy.Score(Stats{Visits: 100}, child))
	})

	t.Run("exploration term decreases with child visits", func(t *testing.T) {
		parent := Stats{Visits: 100}
		require.Greater(t, policy.Score(parent, Stats{Visits: 10}), policy.Score(parent, Stats{Visits: 20}))
	})
}

func TestPUCTScore(t *testing.T) {
	policy := PUCT{C: 5}

	t.Run("computing PUCT value", func(t *testing.T) {
		got := policy.Score(Stats{Visits: 16}, Stats{Visits: 3, Value: 1.5, Prior: 0.2})
		require.InDelta(t, 0.5+5*0.2*4/4, got, 1e-9)
	})

	t.Run("unvisited children are ranked by prior", func(t *testing.T) {
		parent := Stats{Visits: 9}
		require.Greater(t, policy.Score(parent, Stats{Prior: 0.6}), policy.Score(parent, Stats{Prior: 0.1}))
	})

	t.Run("no exploration before the parent is visited", func(t *testing.T) {
		require.Zero(t, policy.Score(Stats{}, Stats{Prior: 0.9}))
	})
}

func TestVisitPolicy(t *testing.T) {
	visits := []int{10, 30, 0, 60}

	t.Run("low temperature is argmax", func(t *testing.T) {
		require.Equal(t, []float64{0, 0, 0, 1}, visitPolicy(visits, 1e-4))
		require.Equal(t, []float64{0, 1, 0}, visitPolicy([]int{2, 7, 7}, 0), "First max wins ties")
	})

	t.Run("unit temperature is proportional to visits", func(t *testing.T) {
		got := visitPolicy(visits, 1)
		require.InDeltaSlice(t, []float64{0.1, 0.3, 0, 0.6}, got, 1e-9)
	})

	t.Run("high temperature flattens over visited children", func(t *testing.T) {
		got := visitPolicy(visits, 1e6)
		require.InDeltaSlice(t, []float64{1. / 3, 1. / 3, 0, 1. / 3}, got, 1e-4)
	})

	t.Run("no visits is uniform", func(t *testing.T) {
		require.Equal(t, []float64{0.5, 0.5}, visitPolicy([]int{0, 0}, 1))
	})
}

func TestPolicy(t *testing.T) {
	p := Policy{Moves: []game.Move{2, 5, 7}, Probs: []float64{0, 1, 0}}

	t.Run("sample follows the mass", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 20; i++ {
			require.Equal(t, game.Move(5), p.Sample(rng))
		}
	})

	t.Run("dense covers the move space", func(t *testing.T) {
		require.Equal(t, []float64{0, 0, 0, 0, 0, 1, 0, 0, 0}, p.Dense(9))
	})
}

func TestRenormalize(t *testing.T) {
	t.Run("keeps the legal share", func(t *testing.T) {
		got := renormalize([]float64{0.1, 0.2, 0.3, 0.4}, []game.Move{1, 3})
		require.InDeltaSlice(t, []float64{1. / 3, 2. / 3}, got, 1e-9)
	})

	t.Run("falls back to uniform without legal mass", func(t *testing.T) {
		got := renormalize([]float64{1, 0, 0}, []game.Move{1, 2})
		require.Equal(t, []float64{0.5, 0.5}, got)
	})
}
