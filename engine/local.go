package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"gomoku/experiments/metrics"
	"gomoku/game"
	"gomoku/searcher/agent"
)

var _ Runner = (*Engine)(nil)

// Engine plays one game between two agents. Agents[0] plays Player1.
type Engine struct {
	State  game.State
	Agents []agent.Agent
}

func LocalEngine(state game.State, agents ...agent.Agent) *Engine {
	if len(agents) != 2 {
		panic("need exactly two agents")
	}
	return &Engine{
		State:  state,
		Agents: agents,
	}
}

// Run executes the entire game loop until the game is over.
func (e *Engine) Run() (game.Player, metrics.GameMetric, []metrics.MoveMetric, error) {
	for _, a := range e.Agents {
		a.Reset()
	}

	gameMetric := metrics.GameMetric{
		StartingPlayer: int(e.State.Player()),
		StartTime:      time.Now(),
	}
	log.Debug().Msgf("player %d is starting", e.State.Player())

	var moveMetrics []metrics.MoveMetric
	step := 1
	for {
		done, winner := e.State.Terminal()
		if done {
			gameMetric.Winner = int(winner)
			gameMetric.EndTime = time.Now()
			gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
			gameMetric.TotalMoves = step - 1
			return winner, gameMetric, moveMetrics, nil
		}

		player := e.State.Player()
		decision, err := e.Agents[player-1].FindMove(e.State)
		if err != nil {
			return game.NoPlayer, gameMetric, moveMetrics, fmt.Errorf("player %d at move %d: %w", player, step, err)
		}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       int(player),
			SearchMetric: decision.Metric,
		})

		e.State = e.State.Play(decision.Move)
		for _, a := range e.Agents {
			a.Advance(decision.Move)
		}
		step++
	}
}
