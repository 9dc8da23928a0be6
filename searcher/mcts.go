package searcher

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"

	"gomoku/evaluator"
	"gomoku/experiments/metrics"
	"gomoku/game"
	"gomoku/utils"
)

var ErrGameOver = errors.New("cannot search a finished game")

type Option func(mcts *MCTS)

// MCTS runs a fixed number of select, expand, evaluate and backup cycles per
// search. The selection policy and leaf evaluator decide which flavour of
// search it is. An MCTS is not safe for concurrent use.
type MCTS struct {
	playouts int
	policy   SelectionPolicy
	leaf     LeafEvaluator
	noise    bool
	alpha    float64
	epsilon  float64
	rng      *rand.Rand
	root     *node
	metrics  metrics.Collector
}

func WithPlayouts(playouts int) Option {
	return func(m *MCTS) {
		if playouts > 0 {
			m.playouts = playouts
		}
	}
}

// WithDirichletNoise blends Dir(alpha) noise into the root priors with weight epsilon.
func WithDirichletNoise(alpha, epsilon float64) Option {
	return func(m *MCTS) {
		if alpha > 0 && epsilon > 0 {
			m.noise = true
			m.alpha = alpha
			m.epsilon = epsilon
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(m *MCTS) {
		if rng != nil {
			m.rng = rng
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(policy SelectionPolicy, leaf LeafEvaluator, options ...Option) *MCTS {
	m := &MCTS{ // Default values
		policy:  policy,
		leaf:    leaf,
		metrics: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.playouts <= 0 {
		panic("Must specify a positive number of playouts")
	}
	if m.rng == nil {
		m.rng = utils.NewRand(utils.Seed())
	}
	return m
}

// NewRolloutMCTS builds the baseline search: UCB1 selection and random rollouts.
func NewRolloutMCTS(c float64, playouts int, rng *rand.Rand, options ...Option) *MCTS {
	if rng == nil {
		rng = utils.NewRand(utils.Seed())
	}
	options = append([]Option{WithPlayouts(playouts), WithRand(rng)}, options...)
	return NewMCTS(UCB1{C: c}, Rollout{Rand: rng}, options...)
}

// NewGuidedMCTS builds the evaluator-guided search: PUCT selection, leaves
// valued by ev.
func NewGuidedMCTS(ev evaluator.PolicyValuer, cPuct float64, playouts int, options ...Option) *MCTS {
	options = append([]Option{WithPlayouts(playouts)}, options...)
	return NewMCTS(PUCT{C: cPuct}, Guided{Evaluator: ev}, options...)
}

// Search runs the playout budget from state. The tree kept from earlier
// searches must describe state, which Advance and Reset take care of.
func (m *MCTS) Search(state game.State) (metrics.SearchMetric, error) {
	if done, _ := state.Terminal(); done {
		return metrics.SearchMetric{}, ErrGameOver
	}
	if m.root == nil {
		m.root = newNode(nil, 1)
		m.metrics.SetTreeReset(true)
	}

	m.metrics.Start()
	for i := 0; i < m.playouts; i++ {
		if m.noise && !m.root.isLeaf() {
			addDirichletNoise(m.root, m.alpha, m.epsilon, m.rng)
		}
		if err := m.playout(state); err != nil {
			return metrics.SearchMetric{}, fmt.Errorf("playout %d: %w", i, err)
		}
		m.metrics.AddPlayout()
	}
	return m.metrics.Complete(), nil
}

func (m *MCTS) playout(state game.State) error {
	node := m.root
	for !node.isLeaf() {
		var move game.Move
		move, node = node.pickChild(m.policy)
		state = state.Play(move)
	}

	var value float64
	if done, winner := state.Terminal(); done {
		value = game.Outcome(winner, state.Player())
		m.metrics.AddTerminal()
	} else {
		moves := state.LegalMoves()
		priors, v, err := m.leaf.Evaluate(state, moves)
		if err != nil {
			return err
		}
		node.expand(moves, priors)
		value = v
	}
	node.backup(value)
	return nil
}

// Advance moves the root to the child reached by move, keeping its subtree
// and dropping its siblings. Without such a child the tree starts over.
func (m *MCTS) Advance(move game.Move) {
	if m.root == nil {
		return
	}
	child := m.root.child(move)
	if child == nil {
		m.Reset()
		return
	}
	child.parent = nil
	m.root = child
	m.metrics.SetTreeReset(false)
}

func (m *MCTS) Reset() {
	m.root = nil
}

// BestMove returns the most visited root move.
func (m *MCTS) BestMove() game.Move {
	if m.root == nil {
		panic("search has not run")
	}
	return m.root.mostVisited()
}

// Visits returns the root moves and their visit counts.
func (m *MCTS) Visits() ([]game.Move, []int) {
	if m.root == nil {
		return nil, nil
	}
	visits := make([]int, len(m.root.children))
	for i, child := range m.root.children {
		visits[i] = child.visits
	}
	return m.root.moves, visits
}

// Policy converts the root visit counts into a move distribution at the
// given temperature.
func (m *MCTS) Policy(temperature float64) Policy {
	moves, visits := m.Visits()
	return Policy{Moves: moves, Probs: visitPolicy(visits, temperature)}
}

// Rand is the random source the search draws noise from.
func (m *MCTS) Rand() *rand.Rand {
	return m.rng
}
