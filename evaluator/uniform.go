package evaluator

import (
	"math"

	"gomoku/game"
)

// Uniform returns equal probability for every cell and a neutral value. It
// never learns, which makes it a fixed reference for tests and smoke runs.
type Uniform struct{}

func (Uniform) PolicyValue(state game.Tensor) ([]float64, float64, error) {
	if err := state.Validate(); err != nil {
		return nil, 0, err
	}
	n := state.Height * state.Width
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = 1 / float64(n)
	}
	return probs, 0, nil
}

func (Uniform) TrainStep(states []game.Tensor, probs [][]float64, values []float64, learningRate float64) (float64, float64, error) {
	if len(states) == 0 {
		return 0, 0, nil
	}
	n := float64(states[0].Height * states[0].Width)
	return 0, math.Log(n), nil
}

func (Uniform) Save(string) error { return nil }
func (Uniform) Load(string) error { return nil }
