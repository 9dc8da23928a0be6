package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gomoku/config"
	"gomoku/evaluator"
	"gomoku/experiments/metrics"
	"gomoku/game"
	"gomoku/trainer"
	"gomoku/utils"
)

func main() {
	configPath := flag.String("config", "", "YAML config file, GOMOKU_* environment variables override it")
	initModel := flag.String("init-model", "", "Model to warm start from")
	seed := flag.Uint64("seed", 0, "Random seed, 0 draws one")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	cfg.Seed = utils.SeedOr(cfg.Seed)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msgf("unknown log level %q", cfg.LogLevel)
	}
	zerolog.SetGlobalLevel(level)

	model := evaluator.NewLinear(game.Planes, cfg.BoardHeight, cfg.BoardWidth)
	if *initModel != "" {
		if err := model.Load(*initModel); err != nil {
			log.Fatal().Err(err).Msg("failed to load initial model")
		}
		log.Info().Msgf("loaded initial model from %s", *initModel)
	}

	writer, err := metrics.NewWriter(cfg.MetricsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create metrics writer")
	}
	// Snapshot with the resolved seed so the run can be reproduced
	if err := cfg.Save(filepath.Join(writer.Dir(), "config.yaml")); err != nil {
		log.Fatal().Err(err).Msg("failed to store config")
	}
	log.Info().Uint64("seed", cfg.Seed).Msgf("storing training records in %s", writer.Dir())

	controller, err := trainer.NewController(cfg, model, trainer.WithWriter(writer))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create training controller")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := controller.Run(ctx); err != nil {
		log.Error().Err(err).Msg("training stopped")
		stop()
		os.Exit(1)
	}
}
