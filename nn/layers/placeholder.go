package layers

import (
	"fmt"

	"s2d_lib/tensor"
)

// Placeholder is the graph input: it declares a shape and passes fed tensors
// through unchanged once their shape matches.
type Placeholder struct {
	shape []int
}

func NewPlaceholder(shape ...int) *Placeholder {
	return &Placeholder{shape: append([]int(nil), shape...)}
}

// Shape returns the declared shape.
func (p *Placeholder) Shape() []int { return append([]int(nil), p.shape...) }

func (p *Placeholder) Forward(x interface{}) (interface{}, error) {
	t, ok := x.(*tensor.Tensor)
	if !ok {
		return nil, ErrType
	}
	if !tensor.SameShape(p.shape, t.Shape) {
		return nil, &ShapeError{Op: p.Tag(), Want: p.Shape(), Got: append([]int(nil), t.Shape...)}
	}
	if len(t.Data) != tensor.Numel(t.Shape...) {
		return nil, &ShapeError{Op: p.Tag(), Got: t.Shape, Reason: fmt.Sprintf("holds %d values", len(t.Data))}
	}
	return t, nil
}

func (p *Placeholder) Backward(g interface{}) (interface{}, error) { return g, nil }
func (p *Placeholder) Update(float64) error                        { return nil }
func (p *Placeholder) Encrypted() bool                             { return false }
func (p *Placeholder) Levels() int                                 { return 0 }
func (p *Placeholder) Tag() string                                 { return "Placeholder" }
