package layers

import "fmt"

var ErrType = &TypeError{"input must be *tensor.Tensor"}

type TypeError struct{ msg string }

func (e *TypeError) Error() string { return e.msg }

// ShapeError reports a tensor whose shape does not fit an operation. Want is
// nil when no single expected shape exists; Reason then says what is wrong.
type ShapeError struct {
	Op     string
	Want   []int
	Got    []int
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Want != nil {
		return fmt.Sprintf("%s: shape mismatch: want %v, got %v", e.Op, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: %s (shape %v)", e.Op, e.Reason, e.Got)
}

// InvalidBlockSizeError reports a block size that is not positive or does not
// divide both spatial dimensions.
type InvalidBlockSizeError struct {
	BlockSize int
	Height    int
	Width     int
}

func (e *InvalidBlockSizeError) Error() string {
	if e.BlockSize < 1 {
		return fmt.Sprintf("block size must be positive, got %d", e.BlockSize)
	}
	return fmt.Sprintf("block size %d must divide height %d and width %d", e.BlockSize, e.Height, e.Width)
}

// checkBlock validates that b tiles an h x w plane.
func checkBlock(b, h, w int) error {
	if b < 1 || h%b != 0 || w%b != 0 {
		return &InvalidBlockSizeError{BlockSize: b, Height: h, Width: w}
	}
	return nil
}
