package evaluator

import "gomoku/game"

// PolicyValuer answers leaf queries during search: a probability for every
// move of the full move space and a scalar value in [-1, 1] for the player
// to move.
type PolicyValuer interface {
	PolicyValue(state game.Tensor) (probs []float64, value float64, err error)
}

// Evaluator is a trainable PolicyValuer. PolicyValue must be safe for
// concurrent use; TrainStep, Save and Load are called from a single goroutine.
type Evaluator interface {
	PolicyValuer
	TrainStep(states []game.Tensor, probs [][]float64, values []float64, learningRate float64) (loss, entropy float64, err error)
	Save(path string) error
	Load(path string) error
}
