package searcher

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"gomoku/game"
)

// MinTemperature is the threshold below which visit counts collapse to argmax.
const MinTemperature = 1e-3

// Policy is a distribution over the root's moves.
type Policy struct {
	Moves []game.Move
	Probs []float64
}

// Sample draws a move in proportion to Probs.
func (p Policy) Sample(rng *rand.Rand) game.Move {
	r := rng.Float64()
	cumulative := 0.0
	for i, prob := range p.Probs {
		cumulative += prob
		if r < cumulative {
			return p.Moves[i]
		}
	}
	// Rounding left r above the total mass; fall back to the last positive entry.
	for i := len(p.Probs) - 1; i >= 0; i-- {
		if p.Probs[i] > 0 {
			return p.Moves[i]
		}
	}
	return p.Moves[len(p.Moves)-1]
}

// Dense spreads the distribution over the full move space, 0 for moves not in it.
func (p Policy) Dense(size int) []float64 {
	dense := make([]float64, size)
	for i, move := range p.Moves {
		dense[move] = p.Probs[i]
	}
	return dense
}

// visitPolicy converts visit counts into probabilities proportional to
// visits^(1/temperature).
func visitPolicy(visits []int, temperature float64) []float64 {
	probs := make([]float64, len(visits))
	if len(visits) == 0 {
		return probs
	}

	total := 0
	best := 0
	for i, v := range visits {
		total += v
		if v > visits[best] {
			best = i
		}
	}
	if total == 0 {
		return uniform(len(visits))
	}
	if temperature <= MinTemperature {
		probs[best] = 1
		return probs
	}

	// Softmax of log(visits)/T keeps large counts from overflowing.
	maxLog := math.Inf(-1)
	logs := make([]float64, len(visits))
	for i, v := range visits {
		if v == 0 {
			logs[i] = math.Inf(-1)
			continue
		}
		logs[i] = math.Log(float64(v)) / temperature
		maxLog = math.Max(maxLog, logs[i])
	}
	for i, l := range logs {
		if math.IsInf(l, -1) {
			continue
		}
		probs[i] = math.Exp(l - maxLog)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}
