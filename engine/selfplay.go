package engine

import (
	"context"
	"fmt"

	"golang.org/x/exp/rand"

	"gomoku/dataset"
	"gomoku/evaluator"
	"gomoku/game"
	"gomoku/searcher"
	"gomoku/searcher/agent"
)

// SelfPlay plays the guided search against itself. One tree serves both
// sides and is carried forward after every move.
type SelfPlay struct {
	NewState         func() game.State
	CPuct            float64
	Playouts         int
	DirichletAlpha   float64
	DirichletEpsilon float64
}

// Play runs one game and returns its winner and the resolved samples, one
// per move, each labelled with the outcome for the player who was to move.
func (s SelfPlay) Play(ctx context.Context, ev evaluator.PolicyValuer, temperature float64, rng *rand.Rand) (game.Player, []dataset.Sample, error) {
	mcts := searcher.NewGuidedMCTS(ev, s.CPuct, s.Playouts,
		searcher.WithDirichletNoise(s.DirichletAlpha, s.DirichletEpsilon),
		searcher.WithRand(rng),
	)
	player := agent.NewTrainingAgent(mcts, temperature, rng)

	state := s.NewState()
	var steps []dataset.Step
	for {
		if done, winner := state.Terminal(); done {
			return winner, dataset.Resolve(steps, winner), nil
		}
		if err := ctx.Err(); err != nil {
			return game.NoPlayer, nil, err
		}

		decision, err := player.FindMove(state)
		if err != nil {
			return game.NoPlayer, nil, fmt.Errorf("self-play move %d: %w", len(steps)+1, err)
		}
		steps = append(steps, dataset.Step{
			State:  state.Encode(),
			Probs:  decision.Policy.Dense(state.MoveSpace()),
			Player: state.Player(),
		})
		state = state.Play(decision.Move)
		player.Advance(decision.Move)
	}
}
