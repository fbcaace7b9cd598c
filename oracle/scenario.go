package oracle

import (
	"s2d_lib/nn/layers"
	"s2d_lib/tensor"
	"s2d_lib/utils"
)

// Scenario is one oracle run: a (1, Height, Width, Channels) index tensor
// folded with block size BlockSize.
type Scenario struct {
	Name      string
	Height    int
	Width     int
	Channels  int
	BlockSize int
}

// FromConfig converts a configured scenario.
func FromConfig(sc utils.ScenarioConfig) Scenario {
	return Scenario{
		Name:      sc.Name,
		Height:    sc.Height,
		Width:     sc.Width,
		Channels:  sc.Channels,
		BlockSize: sc.BlockSize,
	}
}

// Validate rejects a scenario before anything is built: non-positive
// dimensions are a ShapeError, a block size that does not tile the plane is
// an InvalidBlockSizeError.
func (s Scenario) Validate() error {
	if s.Height < 1 || s.Width < 1 || s.Channels < 1 {
		return &layers.ShapeError{
			Op:     "oracle " + s.Name,
			Got:    s.InputShape(),
			Reason: "dimensions must be positive",
		}
	}
	b := s.BlockSize
	if b < 1 || s.Height%b != 0 || s.Width%b != 0 {
		return &layers.InvalidBlockSizeError{BlockSize: b, Height: s.Height, Width: s.Width}
	}
	return nil
}

func (s Scenario) InputShape() []int {
	return []int{1, s.Height, s.Width, s.Channels}
}

// OutputShape is only meaningful for a valid scenario.
func (s Scenario) OutputShape() []int {
	b := s.BlockSize
	return []int{1, s.Height / b, s.Width / b, s.Channels * b * b}
}

// IndexTensor builds the (1, h, w, c) tensor whose element at (row, col, ch)
// is row*w + col + ch*h*w, so every value names its own coordinates.
func IndexTensor(h, w, c int) *tensor.Tensor {
	x := tensor.New(1, h, w, c)
	for r := 0; r < h; r++ {
		for col := 0; col < w; col++ {
			for ch := 0; ch < c; ch++ {
				x.Set(float64(r*w+col+ch*h*w), 0, r, col, ch)
			}
		}
	}
	return x
}

// Decode inverts IndexTensor's labelling.
func Decode(v float64, h, w int) (row, col, ch int) {
	i := int(v)
	plane := h * w
	ch = i / plane
	row = (i % plane) / w
	col = i % w
	return row, col, ch
}
