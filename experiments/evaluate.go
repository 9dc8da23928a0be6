package experiments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"gomoku/engine"
	"gomoku/experiments/metrics"
	"gomoku/game"
	"gomoku/searcher/agent"
	"gomoku/utils"
)

// AgentFactory builds a fresh agent for one game.
type AgentFactory func(rng *rand.Rand) agent.Agent

// Matchup pits a candidate against a baseline over a number of games. The
// candidate moves first in even-numbered games and second in odd ones.
type Matchup struct {
	Candidate AgentFactory
	Baseline  AgentFactory
	NewState  func() game.State
	Games     int
	Workers   int
}

// Tally counts results from the candidate's side.
type Tally struct {
	Wins   int
	Losses int
	Draws  int
}

func (t Tally) Games() int {
	return t.Wins + t.Losses + t.Draws
}

// WinRatio is (wins + draws/2) / games, 0 before any game.
func (t Tally) WinRatio() float64 {
	if t.Games() == 0 {
		return 0
	}
	return (float64(t.Wins) + 0.5*float64(t.Draws)) / float64(t.Games())
}

func (t *Tally) add(winner, candidate game.Player) {
	switch winner {
	case game.NoPlayer:
		t.Draws++
	case candidate:
		t.Wins++
	default:
		t.Losses++
	}
}

// Evaluate plays the matchup and returns the tally and one record per game.
func Evaluate(ctx context.Context, m Matchup, rng *rand.Rand, iteration int) (Tally, []metrics.GameRecord, error) {
	type result struct {
		winner    game.Player
		candidate game.Player
		metric    metrics.GameMetric
	}

	seeds := make([]uint64, 2*m.Games)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}
	results := make([]result, m.Games)

	log.Info().Msgf("starting evaluation of %d games at iteration %d...", m.Games, iteration)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.Workers, 1))
	for i := 0; i < m.Games; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			candidate := m.Candidate(utils.NewRand(seeds[2*i]))
			baseline := m.Baseline(utils.NewRand(seeds[2*i+1]))

			agents := []agent.Agent{candidate, baseline}
			side := game.Player1
			if i%2 == 1 {
				agents = []agent.Agent{baseline, candidate}
				side = game.Player2
			}

			winner, metric, _, err := engine.LocalEngine(m.NewState(), agents...).Run()
			if err != nil {
				return fmt.Errorf("evaluation game %d: %w", i+1, err)
			}
			results[i] = result{winner: winner, candidate: side, metric: metric}
			log.Debug().Msgf("completed evaluation game %d of %d with winner: %d", i+1, m.Games, winner)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Tally{}, nil, err
	}

	var tally Tally
	records := make([]metrics.GameRecord, m.Games)
	for i, r := range results {
		tally.add(r.winner, r.candidate)
		records[i] = metrics.GameRecord{
			ID:         i + 1,
			Iteration:  iteration,
			Candidate:  int(r.candidate),
			GameMetric: r.metric,
		}
	}

	log.Info().
		Int("wins", tally.Wins).
		Int("losses", tally.Losses).
		Int("draws", tally.Draws).
		Float64("win_ratio", tally.WinRatio()).
		Msgf("completed evaluation at iteration %d", iteration)
	return tally, records, nil
}
