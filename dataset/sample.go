package dataset

import "gomoku/game"

// Step is one recorded move of a self-play game, before the outcome is known.
type Step struct {
	State  game.Tensor
	Probs  []float64 // search distribution over the full move space
	Player game.Player
}

// Sample is a training example: the encoded state, the search distribution
// and the final outcome z for the player to move in State.
type Sample struct {
	State game.Tensor
	Probs []float64
	Z     float64
}

// Resolve turns a finished game's steps into samples. winner is NoPlayer on a draw.
func Resolve(steps []Step, winner game.Player) []Sample {
	samples := make([]Sample, len(steps))
	for i, step := range steps {
		samples[i] = Sample{
			State: step.State,
			Probs: step.Probs,
			Z:     game.Outcome(winner, step.Player),
		}
	}
	return samples
}
