package trainer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"gomoku/config"
	"gomoku/dataset"
	"gomoku/engine"
	"gomoku/evaluator"
	"gomoku/experiments"
	"gomoku/experiments/metrics"
	"gomoku/game"
	"gomoku/searcher"
	"gomoku/searcher/agent"
	"gomoku/utils"
)

const (
	CurrentModel = "current_policy.model"
	BestModel    = "best_policy.model"
)

type Option func(c *Controller)

func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithWriter persists the training records as CSV.
func WithWriter(w *metrics.Writer) Option {
	return func(c *Controller) {
		c.writer = w
	}
}

// Controller runs the training loop. Self-play feeds the replay buffer, and
// every CheckFreq iterations the model is evaluated against the rollout baseline.
type Controller struct {
	cfg       config.Config
	evaluator evaluator.Evaluator
	selfPlay  engine.SelfPlay
	newState  func() game.State
	buffer    *dataset.ReplayBuffer
	rng       *rand.Rand
	writer    *metrics.Writer

	lrMultiplier float64
	bestWinRatio float64
	purePlayouts int

	iterations  []metrics.IterationRecord
	evaluations []metrics.EvaluationRecord
	games       []metrics.GameRecord
}

func NewController(cfg config.Config, ev evaluator.Evaluator, options ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	newState := func() game.State {
		b, err := game.NewBoard(cfg.BoardWidth, cfg.BoardHeight, cfg.NInRow)
		if err != nil {
			panic(err)
		}
		return b
	}

	c := &Controller{ // Default values
		cfg:       cfg,
		evaluator: ev,
		selfPlay: engine.SelfPlay{
			NewState:         newState,
			CPuct:            cfg.CPuct,
			Playouts:         cfg.NPlayout,
			DirichletAlpha:   cfg.DirichletAlpha,
			DirichletEpsilon: cfg.DirichletEpsilon,
		},
		newState:     newState,
		buffer:       dataset.NewReplayBuffer(cfg.BufferSize),
		lrMultiplier: 1,
		purePlayouts: cfg.PureMCTSPlayoutNum,
	}
	for _, option := range options {
		option(c)
	}
	if c.rng == nil {
		c.rng = utils.NewRand(utils.SeedOr(cfg.Seed))
	}

	if cfg.ResumeArchive != "" {
		samples, err := dataset.ReadArchiveDir(cfg.ResumeArchive)
		if err != nil {
			return nil, fmt.Errorf("resume replay buffer: %w", err)
		}
		c.buffer.Push(samples...)
		log.Info().Msgf("resumed replay buffer with %d of %d archived samples", c.buffer.Len(), len(samples))
	}
	return c, nil
}

// Run trains for the configured number of iterations or until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	log.Info().Msgf("starting training for %d iterations...", c.cfg.GameBatchNum)
	for i := 1; i <= c.cfg.GameBatchNum; i++ {
		if err := c.Step(ctx, i); err != nil {
			if flushErr := c.flush(); flushErr != nil {
				log.Error().Err(flushErr).Msg("failed to store training records")
			}
			return fmt.Errorf("iteration %d: %w", i, err)
		}
	}
	log.Info().Msg("completed training")
	return c.flush()
}

// Step runs iteration i. A failed self-play leaves the buffer untouched.
func (c *Controller) Step(ctx context.Context, i int) error {
	episodeLen, err := c.collectSelfPlay(ctx, i)
	if err != nil {
		return err
	}

	record := metrics.IterationRecord{
		Iteration:    i,
		EpisodeLen:   episodeLen,
		BufferSize:   c.buffer.Len(),
		LRMultiplier: c.lrMultiplier,
	}
	if c.buffer.Len() > c.cfg.BatchSize {
		stats, err := c.policyUpdate()
		if err != nil {
			return err
		}
		record.Updated = true
		record.Epochs = stats.epochs
		record.KL = stats.kl
		record.LRMultiplier = c.lrMultiplier
		record.Loss = stats.loss
		record.Entropy = stats.entropy
		record.ExplainedVarOld = stats.explainedVarOld
		record.ExplainedVarNew = stats.explainedVarNew

		log.Info().
			Int("iteration", i).
			Int("episode_len", episodeLen).
			Float64("kl", stats.kl).
			Float64("lr_multiplier", c.lrMultiplier).
			Float64("loss", stats.loss).
			Float64("entropy", stats.entropy).
			Float64("explained_var_old", stats.explainedVarOld).
			Float64("explained_var_new", stats.explainedVarNew).
			Msg("updated policy")
	} else {
		log.Info().Int("iteration", i).Int("episode_len", episodeLen).Int("buffer_size", c.buffer.Len()).
			Msg("collecting samples")
	}
	c.iterations = append(c.iterations, record)

	if i%c.cfg.CheckFreq == 0 {
		if err := c.policyEvaluate(ctx, i); err != nil {
			return err
		}
		if err := c.flush(); err != nil {
			return err
		}
	}
	return nil
}

// collectSelfPlay plays the iteration's games and pushes their augmented
// samples. It returns the length of the last game.
func (c *Controller) collectSelfPlay(ctx context.Context, iteration int) (int, error) {
	seeds := make([]uint64, c.cfg.PlayBatchSize)
	for i := range seeds {
		seeds[i] = c.rng.Uint64()
	}
	games := make([][]dataset.Sample, c.cfg.PlayBatchSize)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i := range games {
		g.Go(func() error {
			_, samples, err := c.selfPlay.Play(ctx, c.evaluator, c.cfg.Temperature, utils.NewRand(seeds[i]))
			if err != nil {
				return fmt.Errorf("self-play game %d: %w", i+1, err)
			}
			games[i] = samples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var augmented []dataset.Sample
	var rows []dataset.ArchiveRow
	for _, samples := range games {
		extended, err := dataset.Augment(samples, c.cfg.BoardWidth, c.cfg.BoardHeight)
		if err != nil {
			return 0, err
		}
		if c.cfg.Dedupe {
			extended = dataset.Dedupe(extended)
		}
		if c.cfg.ArchiveDir != "" {
			rows = append(rows, dataset.NewArchiveRows(uuid.NewString(), iteration, extended)...)
		}
		augmented = append(augmented, extended...)
	}
	if len(rows) > 0 {
		path, err := dataset.WriteArchive(c.cfg.ArchiveDir, rows)
		if err != nil {
			return 0, fmt.Errorf("archive samples: %w", err)
		}
		log.Debug().Msgf("archived %d samples to %s", len(rows), path)
	}
	c.buffer.Push(augmented...)

	return len(games[len(games)-1]), nil
}

type updateStats struct {
	epochs          int
	kl              float64
	loss            float64
	entropy         float64
	explainedVarOld float64
	explainedVarNew float64
}

// policyUpdate trains on one minibatch for up to Epochs steps, stopping
// early when the policy moves too far from where it started.
func (c *Controller) policyUpdate() (updateStats, error) {
	batch, err := c.buffer.Sample(c.rng, c.cfg.BatchSize)
	if err != nil {
		return updateStats{}, err
	}
	states := lo.Map(batch, func(s dataset.Sample, _ int) game.Tensor { return s.State })
	probs := lo.Map(batch, func(s dataset.Sample, _ int) []float64 { return s.Probs })
	values := lo.Map(batch, func(s dataset.Sample, _ int) float64 { return s.Z })

	oldProbs, oldValues, err := c.predict(states)
	if err != nil {
		return updateStats{}, err
	}

	var stats updateStats
	newValues := oldValues
	for e := 0; e < c.cfg.Epochs; e++ {
		stats.loss, stats.entropy, err = c.evaluator.TrainStep(states, probs, values, c.cfg.LearnRate*c.lrMultiplier)
		if err != nil {
			return updateStats{}, fmt.Errorf("train step: %w", err)
		}
		var newProbs [][]float64
		newProbs, newValues, err = c.predict(states)
		if err != nil {
			return updateStats{}, err
		}
		stats.epochs = e + 1
		stats.kl = klDivergence(oldProbs, newProbs)
		if stats.kl > 4*c.cfg.KLTarget {
			log.Warn().Float64("kl", stats.kl).Int("epoch", e+1).Msg("stopping update early on divergence")
			break
		}
	}

	c.lrMultiplier = adaptMultiplier(c.lrMultiplier, stats.kl, c.cfg.KLTarget)
	stats.explainedVarOld = explainedVariance(values, oldValues)
	stats.explainedVarNew = explainedVariance(values, newValues)
	return stats, nil
}

func (c *Controller) predict(states []game.Tensor) ([][]float64, []float64, error) {
	probs := make([][]float64, len(states))
	values := make([]float64, len(states))
	for i, state := range states {
		p, v, err := c.evaluator.PolicyValue(state)
		if err != nil {
			return nil, nil, fmt.Errorf("evaluate batch: %w", err)
		}
		probs[i], values[i] = p, v
	}
	return probs, values, nil
}

// policyEvaluate plays the guided search against the rollout baseline and
// checkpoints the model.
func (c *Controller) policyEvaluate(ctx context.Context, iteration int) error {
	playouts := c.purePlayouts
	matchup := experiments.Matchup{
		Candidate: func(rng *rand.Rand) agent.Agent {
			return agent.NewEvaluationAgent(searcher.NewGuidedMCTS(c.evaluator, c.cfg.CPuct, c.cfg.NPlayout, searcher.WithRand(rng)))
		},
		Baseline: func(rng *rand.Rand) agent.Agent {
			return agent.NewEvaluationAgent(searcher.NewRolloutMCTS(c.cfg.PureC, playouts, rng))
		},
		NewState: c.newState,
		Games:    c.cfg.EvalGames,
		Workers:  c.cfg.Workers,
	}
	tally, games, err := experiments.Evaluate(ctx, matchup, c.rng, iteration)
	if err != nil {
		return fmt.Errorf("evaluate against %d playouts: %w", playouts, err)
	}
	winRatio := tally.WinRatio()

	if err := c.evaluator.Save(filepath.Join(c.cfg.ModelDir, CurrentModel)); err != nil {
		return fmt.Errorf("save current model: %w", err)
	}
	best := c.promote(winRatio)
	if best {
		log.Info().Float64("win_ratio", winRatio).Int("pure_playouts", playouts).Msg("new best policy")
		if err := c.evaluator.Save(filepath.Join(c.cfg.ModelDir, BestModel)); err != nil {
			return fmt.Errorf("save best model: %w", err)
		}
	}

	c.evaluations = append(c.evaluations, metrics.EvaluationRecord{
		Iteration:    iteration,
		PurePlayouts: playouts,
		Wins:         tally.Wins,
		Losses:       tally.Losses,
		Draws:        tally.Draws,
		WinRatio:     winRatio,
		Best:         best,
	})
	c.games = append(c.games, games...)
	return nil
}

// promote records winRatio and reports whether it is a new best. A perfect
// score against a baseline below the ceiling makes the baseline stronger
// and restarts the best ratio from zero.
func (c *Controller) promote(winRatio float64) bool {
	if winRatio <= c.bestWinRatio {
		return false
	}
	c.bestWinRatio = winRatio
	if winRatio == 1 && c.purePlayouts < c.cfg.PureMCTSPlayoutMax {
		c.purePlayouts += c.cfg.PureMCTSPlayoutStep
		c.bestWinRatio = 0
		log.Info().Int("pure_playouts", c.purePlayouts).Msg("raised baseline strength")
	}
	return true
}

func (c *Controller) flush() error {
	if c.writer == nil {
		return nil
	}
	return errors.Join(
		c.writer.WriteIterationRecords(c.iterations),
		c.writer.WriteEvaluationRecords(c.evaluations),
		c.writer.WriteGameRecords(c.games),
	)
}

func (c *Controller) Buffer() *dataset.ReplayBuffer { return c.buffer }
func (c *Controller) LRMultiplier() float64         { return c.lrMultiplier }
func (c *Controller) BestWinRatio() float64         { return c.bestWinRatio }
func (c *Controller) PurePlayouts() int             { return c.purePlayouts }

func (c *Controller) Iterations() []metrics.IterationRecord   { return c.iterations }
func (c *Controller) Evaluations() []metrics.EvaluationRecord { return c.evaluations }
