package agent

import (
	"gomoku/game"
	"gomoku/searcher"
)

type evaluationAgent struct {
	mctsAgent
}

// NewEvaluationAgent returns a new agent for actual game play during evaluation.
// It always plays the most visited move.
func NewEvaluationAgent(mcts *searcher.MCTS) Agent {
	return evaluationAgent{mctsAgent{mcts: mcts}}
}

func (a evaluationAgent) FindMove(state game.State) (Decision, error) {
	metric, err := a.mcts.Search(state)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Move:   a.mcts.BestMove(),
		Policy: a.mcts.Policy(0),
		Metric: metric,
	}, nil
}
