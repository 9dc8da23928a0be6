package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type GameRecord struct {
	ID        int
	Iteration int
	Candidate int // game.Player the candidate played as
	GameMetric
}

type IterationRecord struct {
	Iteration       int
	EpisodeLen      int
	BufferSize      int
	Updated         bool
	Epochs          int
	KL              float64
	LRMultiplier    float64
	Loss            float64
	Entropy         float64
	ExplainedVarOld float64
	ExplainedVarNew float64
}

type EvaluationRecord struct {
	Iteration    int
	PurePlayouts int
	Wins         int
	Losses       int
	Draws        int
	WinRatio     float64
	Best         bool
}

type Writer struct {
	baseDir string
}

func NewWriter(root string) (*Writer, error) {
	// Create a subfolder named by current timestamp
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join(root, "training", timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

// Dir is the directory the writer stores its files in.
func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteIterationRecords(records []IterationRecord) error {
	header := []string{"iteration", "episode_len", "buffer_size", "updated", "epochs", "kl",
		"lr_multiplier", "loss", "entropy", "explained_var_old", "explained_var_new"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Iteration),
			strconv.Itoa(record.EpisodeLen),
			strconv.Itoa(record.BufferSize),
			strconv.FormatBool(record.Updated),
			strconv.Itoa(record.Epochs),
			formatFloat(record.KL),
			formatFloat(record.LRMultiplier),
			formatFloat(record.Loss),
			formatFloat(record.Entropy),
			formatFloat(record.ExplainedVarOld),
			formatFloat(record.ExplainedVarNew),
		})
	}
	return w.write("iterations.csv", header, rows)
}

func (w *Writer) WriteEvaluationRecords(records []EvaluationRecord) error {
	header := []string{"iteration", "pure_playouts", "wins", "losses", "draws", "win_ratio", "best"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Iteration),
			strconv.Itoa(record.PurePlayouts),
			strconv.Itoa(record.Wins),
			strconv.Itoa(record.Losses),
			strconv.Itoa(record.Draws),
			formatFloat(record.WinRatio),
			strconv.FormatBool(record.Best),
		})
	}
	return w.write("evaluations.csv", header, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "iteration", "candidate", "starting_player", "winner", "start_time", "end_time", "duration", "total_moves"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Iteration),
			strconv.Itoa(record.Candidate),
			strconv.Itoa(record.StartingPlayer),
			strconv.Itoa(record.Winner),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
			strconv.Itoa(record.TotalMoves),
		})
	}
	return w.write("game_records.csv", header, rows)
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	err = writer.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
