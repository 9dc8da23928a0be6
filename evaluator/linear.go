package evaluator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gomoku/game"
)

// DefaultL2 is the weight decay applied on every train step.
const DefaultL2 = 1e-4

var ErrShapeMismatch = errors.New("tensor shape does not match the model")

// Linear is a softmax policy head and a tanh value head over the raw
// feature planes. It is small enough to train on a CPU inside the self-play
// loop and stands in for a deeper network behind the same contract.
type Linear struct {
	mu sync.RWMutex

	planes int
	height int
	width  int
	l2     float64

	policyW *mat.Dense    // actions x features
	policyB *mat.VecDense // actions
	valueW  *mat.VecDense // features
	valueB  float64
}

// NewLinear returns a zero-initialized model: uniform policy, zero value.
func NewLinear(planes, height, width int) *Linear {
	actions := height * width
	features := planes * actions
	return &Linear{
		planes:  planes,
		height:  height,
		width:   width,
		l2:      DefaultL2,
		policyW: mat.NewDense(actions, features, nil),
		policyB: mat.NewVecDense(actions, nil),
		valueW:  mat.NewVecDense(features, nil),
	}
}

func (l *Linear) actions() int  { return l.height * l.width }
func (l *Linear) features() int { return l.planes * l.actions() }

func (l *Linear) check(state game.Tensor) error {
	if err := state.Validate(); err != nil {
		return err
	}
	if state.Planes != l.planes || state.Height != l.height || state.Width != l.width {
		return fmt.Errorf("%w: got %dx%dx%d, want %dx%dx%d", ErrShapeMismatch,
			state.Planes, state.Height, state.Width, l.planes, l.height, l.width)
	}
	return nil
}

func (l *Linear) PolicyValue(state game.Tensor) ([]float64, float64, error) {
	if err := l.check(state); err != nil {
		return nil, 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	probs, value := l.forward(mat.NewVecDense(l.features(), state.Data))
	return probs, value, nil
}

func (l *Linear) forward(x *mat.VecDense) ([]float64, float64) {
	logits := mat.NewVecDense(l.actions(), nil)
	logits.MulVec(l.policyW, x)
	logits.AddVec(logits, l.policyB)
	probs := softmax(logits.RawVector().Data)
	value := math.Tanh(mat.Dot(l.valueW, x) + l.valueB)
	return probs, value
}

// TrainStep takes one gradient step on the mean of the value loss (z - v)^2
// and the policy cross-entropy -pi·log p. It reports that loss and the mean
// policy entropy, both measured before the step.
func (l *Linear) TrainStep(states []game.Tensor, probs [][]float64, values []float64, learningRate float64) (float64, float64, error) {
	if len(states) == 0 {
		return 0, 0, errors.New("empty training batch")
	}
	if len(probs) != len(states) || len(values) != len(states) {
		return 0, 0, fmt.Errorf("batch columns differ in length: %d states, %d probs, %d values",
			len(states), len(probs), len(values))
	}
	for i, state := range states {
		if err := l.check(state); err != nil {
			return 0, 0, fmt.Errorf("sample %d: %w", i, err)
		}
		if len(probs[i]) != l.actions() {
			return 0, 0, fmt.Errorf("sample %d: %d target probabilities, want %d", i, len(probs[i]), l.actions())
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	n := float64(len(states))
	gradW := mat.NewDense(l.actions(), l.features(), nil)
	gradB := mat.NewVecDense(l.actions(), nil)
	gradV := mat.NewVecDense(l.features(), nil)
	gradVB := 0.0

	loss, entropy := 0.0, 0.0
	for i, state := range states {
		x := mat.NewVecDense(l.features(), state.Data)
		p, v := l.forward(x)

		for a, pa := range p {
			logP := math.Log(pa + 1e-10)
			loss -= probs[i][a] * logP / n
			entropy -= pa * logP / n
		}
		loss += (values[i] - v) * (values[i] - v) / n

		// dLogits owns its memory so p stays a distribution.
		dLogits := mat.NewVecDense(l.actions(), nil)
		dLogits.SubVec(mat.NewVecDense(l.actions(), p), mat.NewVecDense(l.actions(), probs[i]))
		gradW.RankOne(gradW, 1/n, dLogits, x)
		gradB.AddScaledVec(gradB, 1/n, dLogits)

		dValue := 2 * (v - values[i]) * (1 - v*v)
		gradV.AddScaledVec(gradV, dValue/n, x)
		gradVB += dValue / n
	}

	decay := 1 - learningRate*l.l2
	l.policyW.Scale(decay, l.policyW)
	gradW.Scale(learningRate, gradW)
	l.policyW.Sub(l.policyW, gradW)
	l.policyB.AddScaledVec(l.policyB, -learningRate, gradB)
	l.valueW.ScaleVec(decay, l.valueW)
	l.valueW.AddScaledVec(l.valueW, -learningRate, gradV)
	l.valueB -= learningRate * gradVB

	return loss, entropy, nil
}

// Save writes the model with gonum's binary encoding, replacing path atomically.
func (l *Linear) Save(path string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}

	w := bufio.NewWriter(f)
	shape := mat.NewVecDense(3, []float64{float64(l.planes), float64(l.height), float64(l.width)})
	bias := mat.NewVecDense(1, []float64{l.valueB})
	for _, part := range []interface {
		MarshalBinaryTo(w io.Writer) (int, error)
	}{shape, l.policyW, l.policyB, l.valueW, bias} {
		if _, err := part.MarshalBinaryTo(w); err != nil {
			f.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("encode model: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("flush model: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close model: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename model: %w", err)
	}
	return nil
}

// Load replaces the weights with the ones stored at path. The stored shape
// must match the model's.
func (l *Linear) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var shape, policyB, valueW, bias mat.VecDense
	var policyW mat.Dense
	if _, err := shape.UnmarshalBinaryFrom(r); err != nil {
		return fmt.Errorf("decode model shape: %w", err)
	}
	if shape.Len() != 3 {
		return fmt.Errorf("decode model shape: %d values", shape.Len())
	}
	planes, height, width := int(shape.AtVec(0)), int(shape.AtVec(1)), int(shape.AtVec(2))
	if planes != l.planes || height != l.height || width != l.width {
		return fmt.Errorf("%w: stored %dx%dx%d, want %dx%dx%d", ErrShapeMismatch,
			planes, height, width, l.planes, l.height, l.width)
	}
	if _, err := policyW.UnmarshalBinaryFrom(r); err != nil {
		return fmt.Errorf("decode policy weights: %w", err)
	}
	if _, err := policyB.UnmarshalBinaryFrom(r); err != nil {
		return fmt.Errorf("decode policy bias: %w", err)
	}
	if _, err := valueW.UnmarshalBinaryFrom(r); err != nil {
		return fmt.Errorf("decode value weights: %w", err)
	}
	if _, err := bias.UnmarshalBinaryFrom(r); err != nil {
		return fmt.Errorf("decode value bias: %w", err)
	}
	if rows, cols := policyW.Dims(); rows != l.actions() || cols != l.features() {
		return fmt.Errorf("%w: policy weights are %dx%d, want %dx%d", ErrShapeMismatch, rows, cols, l.actions(), l.features())
	}
	if policyB.Len() != l.actions() || valueW.Len() != l.features() || bias.Len() != 1 {
		return fmt.Errorf("%w: policy bias %d, value weights %d, value bias %d", ErrShapeMismatch,
			policyB.Len(), valueW.Len(), bias.Len())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.policyW = &policyW
	l.policyB = &policyB
	l.valueW = &valueW
	l.valueB = bias.AtVec(0)
	return nil
}

func softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))
	maxLogit := floats.Max(logits)
	for i, v := range logits {
		probs[i] = math.Exp(v - maxLogit)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}
