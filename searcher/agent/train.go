package agent

import (
	"golang.org/x/exp/rand"

	"gomoku/game"
	"gomoku/searcher"
)

type trainingAgent struct {
	mctsAgent
	temperature float64
	rng         *rand.Rand
}

// NewTrainingAgent returns a new agent for self-play during training. Moves
// are sampled from the visit counts softened by temperature.
func NewTrainingAgent(mcts *searcher.MCTS, temperature float64, rng *rand.Rand) Agent {
	if rng == nil {
		rng = mcts.Rand()
	}
	return trainingAgent{
		mctsAgent:   mctsAgent{mcts: mcts},
		temperature: temperature,
		rng:         rng,
	}
}

func (a trainingAgent) FindMove(state game.State) (Decision, error) {
	metric, err := a.mcts.Search(state)
	if err != nil {
		return Decision{}, err
	}
	policy := a.mcts.Policy(a.temperature)
	return Decision{
		Move:   policy.Sample(a.rng),
		Policy: policy,
		Metric: metric,
	}, nil
}
