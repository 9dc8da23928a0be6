package searcher

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"gomoku/evaluator"
	"gomoku/game"
)

// LeafEvaluator supplies the priors of a leaf's legal moves, aligned with
// moves, and the leaf's value for the player to move there.
type LeafEvaluator interface {
	Evaluate(state game.State, moves []game.Move) (priors []float64, value float64, err error)
}

// Rollout gives every move the same prior and values the leaf by playing
// uniformly random moves until the game ends.
type Rollout struct {
	Rand *rand.Rand
}

func (r Rollout) Evaluate(state game.State, moves []game.Move) ([]float64, float64, error) {
	priors := uniform(len(moves))

	player := state.Player()
	for {
		done, winner := state.Terminal()
		if done {
			return priors, game.Outcome(winner, player), nil
		}
		legal := state.LegalMoves()
		state = state.Play(legal[r.Rand.Intn(len(legal))])
	}
}

// Guided queries an evaluator once and keeps only the legal moves' share of
// its probabilities, renormalized to sum to 1.
type Guided struct {
	Evaluator evaluator.PolicyValuer
}

func (g Guided) Evaluate(state game.State, moves []game.Move) ([]float64, float64, error) {
	probs, value, err := g.Evaluator.PolicyValue(state.Encode())
	if err != nil {
		return nil, 0, fmt.Errorf("evaluate leaf: %w", err)
	}
	if len(probs) != state.MoveSpace() {
		return nil, 0, fmt.Errorf("evaluator returned %d probabilities for a move space of %d", len(probs), state.MoveSpace())
	}
	return renormalize(probs, moves), value, nil
}

func renormalize(probs []float64, moves []game.Move) []float64 {
	priors := make([]float64, len(moves))
	for i, move := range moves {
		priors[i] = probs[move]
	}
	total := floats.Sum(priors)
	if total <= 0 {
		return uniform(len(moves))
	}
	floats.Scale(1/total, priors)
	return priors
}

func uniform(n int) []float64 {
	priors := make([]float64, n)
	for i := range priors {
		priors[i] = 1 / float64(n)
	}
	return priors
}
