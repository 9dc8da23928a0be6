package game

import "fmt"

// Tensor is a stack of board-sized planes stored plane-major, then row-major.
type Tensor struct {
	Planes int
	Height int
	Width  int
	Data   []float64
}

func NewTensor(planes, height, width int) Tensor {
	return Tensor{
		Planes: planes,
		Height: height,
		Width:  width,
		Data:   make([]float64, planes*height*width),
	}
}

func (t Tensor) index(plane, row, col int) int {
	return plane*t.Height*t.Width + row*t.Width + col
}

func (t Tensor) At(plane, row, col int) float64 {
	return t.Data[t.index(plane, row, col)]
}

func (t Tensor) Set(plane, row, col int, v float64) {
	t.Data[t.index(plane, row, col)] = v
}

// Len is the number of features, Planes*Height*Width.
func (t Tensor) Len() int {
	return t.Planes * t.Height * t.Width
}

func (t Tensor) Clone() Tensor {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return Tensor{Planes: t.Planes, Height: t.Height, Width: t.Width, Data: data}
}

// Validate checks that the backing data matches the declared shape.
func (t Tensor) Validate() error {
	if t.Planes <= 0 || t.Height <= 0 || t.Width <= 0 {
		return fmt.Errorf("invalid tensor shape %dx%dx%d", t.Planes, t.Height, t.Width)
	}
	if len(t.Data) != t.Len() {
		return fmt.Errorf("tensor data has %d values, shape %dx%dx%d needs %d",
			len(t.Data), t.Planes, t.Height, t.Width, t.Len())
	}
	return nil
}
