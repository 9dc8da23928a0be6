package engine

import (
	"gomoku/experiments/metrics"
	"gomoku/game"
)

type Runner interface {
	// Run plays a game to the end and reports the winner, NoPlayer on a draw
	Run() (winner game.Player, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}
