package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the board, search and training settings of a training run.
type Config struct {
	BoardWidth  int `mapstructure:"board_width" yaml:"board_width"`
	BoardHeight int `mapstructure:"board_height" yaml:"board_height"`
	NInRow      int `mapstructure:"n_in_row" yaml:"n_in_row"`

	LearnRate        float64 `mapstructure:"learn_rate" yaml:"learn_rate"`
	Temperature      float64 `mapstructure:"temperature" yaml:"temperature"`
	NPlayout         int     `mapstructure:"n_playout" yaml:"n_playout"`
	CPuct            float64 `mapstructure:"c_puct" yaml:"c_puct"`
	DirichletAlpha   float64 `mapstructure:"dirichlet_alpha" yaml:"dirichlet_alpha"`
	DirichletEpsilon float64 `mapstructure:"dirichlet_epsilon" yaml:"dirichlet_epsilon"`

	BufferSize    int     `mapstructure:"buffer_size" yaml:"buffer_size"`
	BatchSize     int     `mapstructure:"batch_size" yaml:"batch_size"`
	PlayBatchSize int     `mapstructure:"play_batch_size" yaml:"play_batch_size"`
	Epochs        int     `mapstructure:"epochs" yaml:"epochs"`
	KLTarget      float64 `mapstructure:"kl_target" yaml:"kl_target"`
	CheckFreq     int     `mapstructure:"check_freq" yaml:"check_freq"`
	GameBatchNum  int     `mapstructure:"game_batch_num" yaml:"game_batch_num"`
	EvalGames     int     `mapstructure:"eval_games" yaml:"eval_games"`

	PureC               float64 `mapstructure:"pure_c" yaml:"pure_c"`
	PureMCTSPlayoutNum  int     `mapstructure:"pure_mcts_playout_num" yaml:"pure_mcts_playout_num"`
	PureMCTSPlayoutStep int     `mapstructure:"pure_mcts_playout_step" yaml:"pure_mcts_playout_step"`
	PureMCTSPlayoutMax  int     `mapstructure:"pure_mcts_playout_max" yaml:"pure_mcts_playout_max"`

	Workers       int    `mapstructure:"workers" yaml:"workers"`
	Seed          uint64 `mapstructure:"seed" yaml:"seed"`
	ModelDir      string `mapstructure:"model_dir" yaml:"model_dir"`
	MetricsDir    string `mapstructure:"metrics_dir" yaml:"metrics_dir"`
	ArchiveDir    string `mapstructure:"archive_dir" yaml:"archive_dir"`
	ResumeArchive string `mapstructure:"resume_archive" yaml:"resume_archive"`
	Dedupe        bool   `mapstructure:"dedupe" yaml:"dedupe"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
}

func Default() Config {
	return Config{
		BoardWidth:  15,
		BoardHeight: 15,
		NInRow:      5,

		LearnRate:        2e-3,
		Temperature:      1.0,
		NPlayout:         400,
		CPuct:            5,
		DirichletAlpha:   0.3,
		DirichletEpsilon: 0.25,

		BufferSize:    10000,
		BatchSize:     512,
		PlayBatchSize: 1,
		Epochs:        5,
		KLTarget:      0.02,
		CheckFreq:     50,
		GameBatchNum:  1500,
		EvalGames:     10,

		PureC:               1.4142,
		PureMCTSPlayoutNum:  1000,
		PureMCTSPlayoutStep: 1000,
		PureMCTSPlayoutMax:  5000,

		Workers:    1,
		ModelDir:   ".",
		MetricsDir: "experiments",
		LogLevel:   "info",
	}
}

// Load reads the defaults, then the YAML file at path if given, then
// GOMOKU_* environment variables, each overriding the last.
func Load(path string) (Config, error) {
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return Config{}, fmt.Errorf("encode defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, fmt.Errorf("read defaults: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.SetEnvPrefix("GOMOKU")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	positive := map[string]int{
		"board_width":     c.BoardWidth,
		"board_height":    c.BoardHeight,
		"n_in_row":        c.NInRow,
		"n_playout":       c.NPlayout,
		"buffer_size":     c.BufferSize,
		"batch_size":      c.BatchSize,
		"play_batch_size": c.PlayBatchSize,
		"epochs":          c.Epochs,
		"check_freq":      c.CheckFreq,
		"game_batch_num":  c.GameBatchNum,
		"eval_games":      c.EvalGames,
		"workers":         c.Workers,

		"pure_mcts_playout_num": c.PureMCTSPlayoutNum,
	}
	for key, value := range positive {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, value))
		}
	}
	if c.BoardWidth < c.NInRow || c.BoardHeight < c.NInRow {
		errs = append(errs, fmt.Errorf("board %dx%d cannot fit %d in a row", c.BoardWidth, c.BoardHeight, c.NInRow))
	}
	if c.LearnRate <= 0 || c.KLTarget <= 0 || c.CPuct <= 0 || c.PureC <= 0 {
		errs = append(errs, errors.New("learn_rate, kl_target, c_puct and pure_c must be positive"))
	}
	if c.Temperature < 0 {
		errs = append(errs, fmt.Errorf("temperature must not be negative, got %g", c.Temperature))
	}
	if c.DirichletAlpha < 0 {
		errs = append(errs, fmt.Errorf("dirichlet_alpha must not be negative, got %g", c.DirichletAlpha))
	}
	if c.DirichletEpsilon < 0 || c.DirichletEpsilon > 1 {
		errs = append(errs, fmt.Errorf("dirichlet_epsilon must be within [0, 1], got %g", c.DirichletEpsilon))
	}
	if c.PureMCTSPlayoutStep < 0 || c.PureMCTSPlayoutMax < c.PureMCTSPlayoutNum {
		errs = append(errs, errors.New("pure_mcts_playout_step must not be negative and pure_mcts_playout_max must reach pure_mcts_playout_num"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Save writes the config as YAML, creating the parent directory.
func (c Config) Save(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
