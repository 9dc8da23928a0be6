package dataset

import (
	"errors"
	"fmt"

	"gomoku/game"
)

var ErrNonSquareBoard = errors.New("symmetries need a square board")

// Augment returns the 8 symmetries of every sample: for k = 1..4 quarter
// turns, the rotated sample followed by its horizontal mirror. The fourth
// rotation is the identity, so the originals are included.
func Augment(samples []Sample, width, height int) ([]Sample, error) {
	if width != height {
		return nil, fmt.Errorf("%w: %dx%d", ErrNonSquareBoard, width, height)
	}
	out := make([]Sample, 0, 8*len(samples))
	for _, sample := range samples {
		if err := checkSample(sample, width); err != nil {
			return nil, err
		}
		for k := 1; k <= 4; k++ {
			rotated := Rotate(sample, width, k)
			out = append(out, rotated, Mirror(rotated, width))
		}
	}
	return out, nil
}

func checkSample(s Sample, n int) error {
	if err := s.State.Validate(); err != nil {
		return err
	}
	if s.State.Height != n || s.State.Width != n {
		return fmt.Errorf("sample state is %dx%d, board is %dx%d", s.State.Height, s.State.Width, n, n)
	}
	if len(s.Probs) != n*n {
		return fmt.Errorf("sample has %d probabilities, board has %d cells", len(s.Probs), n*n)
	}
	return nil
}

// Rotate turns a sample on an n x n board k quarter turns counter-clockwise.
// The state planes and the probability grid move together.
func Rotate(s Sample, n, k int) Sample {
	k = ((k % 4) + 4) % 4
	out := s
	for i := 0; i < k; i++ {
		out = transform(out, n, func(row, col int) int {
			// Counter-clockwise: dest(row, col) takes src(col, n-1-row).
			return col*n + (n - 1 - row)
		})
	}
	if k == 0 {
		out = transform(out, n, func(row, col int) int { return row*n + col })
	}
	return out
}

// Mirror flips a sample left to right.
func Mirror(s Sample, n int) Sample {
	return transform(s, n, func(row, col int) int {
		return row*n + (n - 1 - col)
	})
}

// transform builds a new sample where each destination cell is read from
// the source cell src(row, col) names.
func transform(s Sample, n int, src func(row, col int) int) Sample {
	state := game.NewTensor(s.State.Planes, n, n)
	probs := make([]float64, n*n)
	cells := n * n
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			from := src(row, col)
			to := row*n + col
			probs[to] = s.Probs[from]
			for p := 0; p < s.State.Planes; p++ {
				state.Data[p*cells+to] = s.State.Data[p*cells+from]
			}
		}
	}
	return Sample{State: state, Probs: probs, Z: s.Z}
}
