package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/samber/lo"

	"gomoku/game"
)

const archiveSchema = "gomoku_sample_v1"

// ArchiveRow is one augmented training sample as stored on disk.
type ArchiveRow struct {
	GameID    string    `parquet:"game_id,dict"`
	Iteration int32     `parquet:"iteration"`
	Planes    int32     `parquet:"planes"`
	Height    int32     `parquet:"height"`
	Width     int32     `parquet:"width"`
	State     []float32 `parquet:"state"`
	Probs     []float32 `parquet:"probs"`
	Z         float32   `parquet:"z"`
}

// NewArchiveRows converts the samples of one game into archive rows.
func NewArchiveRows(gameID string, iteration int, samples []Sample) []ArchiveRow {
	rows := make([]ArchiveRow, len(samples))
	for i, s := range samples {
		rows[i] = ArchiveRow{
			GameID:    gameID,
			Iteration: int32(iteration),
			Planes:    int32(s.State.Planes),
			Height:    int32(s.State.Height),
			Width:     int32(s.State.Width),
			State:     toFloat32(s.State.Data),
			Probs:     toFloat32(s.Probs),
			Z:         float32(s.Z),
		}
	}
	return rows
}

// Sample converts the row back into a training sample.
func (r ArchiveRow) Sample() (Sample, error) {
	state := game.Tensor{
		Planes: int(r.Planes),
		Height: int(r.Height),
		Width:  int(r.Width),
		Data:   toFloat64(r.State),
	}
	if err := state.Validate(); err != nil {
		return Sample{}, fmt.Errorf("game %s: %w", r.GameID, err)
	}
	if len(r.Probs) != state.Height*state.Width {
		return Sample{}, fmt.Errorf("game %s: %d probabilities for a %dx%d board", r.GameID, len(r.Probs), state.Height, state.Width)
	}
	return Sample{State: state, Probs: toFloat64(r.Probs), Z: float64(r.Z)}, nil
}

// WriteArchive writes rows into a new batch file under outDir and returns its path.
func WriteArchive(outDir string, rows []ArchiveRow) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", archiveSchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadArchive reads every sample stored in one archive file.
func ReadArchive(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[ArchiveRow](f)
	defer reader.Close()

	samples := make([]Sample, 0, int(reader.NumRows()))
	buf := make([]ArchiveRow, 256)
	for {
		n, err := reader.Read(buf)
		for _, row := range buf[:n] {
			s, convErr := row.Sample()
			if convErr != nil {
				return nil, fmt.Errorf("%s: %w", path, convErr)
			}
			samples = append(samples, s)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return samples, nil
}

// ReadArchiveDir reads every batch file in dir, oldest first.
func ReadArchiveDir(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read archive dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".parquet") {
			continue
		}
		names = append(names, entry.Name())
	}
	// batch_<unix nanos> names sort by creation time at equal length
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})

	var samples []Sample
	for _, name := range names {
		batch, err := ReadArchive(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		samples = append(samples, batch...)
	}
	return samples, nil
}

func toFloat32(values []float64) []float32 {
	return lo.Map(values, func(v float64, _ int) float32 { return float32(v) })
}

func toFloat64(values []float32) []float64 {
	return lo.Map(values, func(v float32, _ int) float64 { return float64(v) })
}
