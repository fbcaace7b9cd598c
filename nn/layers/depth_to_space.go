package layers

import (
	"fmt"

	"s2d_lib/core/ckkswrapper"
	"s2d_lib/tensor"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// DepthToSpace is the inverse of SpaceToDepth with the same channel-outer
// ordering: input channel c*B*B + dr*B + dc at (h, w) goes to output channel
// c at (h*B+dr, w*B+dc).
type DepthToSpace struct {
	s2d *SpaceToDepth
}

func NewDepthToSpace(blockSize int, encrypted bool, heCtx *ckkswrapper.HeContext) *DepthToSpace {
	return &DepthToSpace{s2d: NewSpaceToDepth(blockSize, encrypted, heCtx)}
}

func (d *DepthToSpace) EnableEncrypted(encrypted bool) { d.s2d.EnableEncrypted(encrypted) }

func (d *DepthToSpace) ForwardPlain(x *tensor.Tensor) (*tensor.Tensor, error) {
	return d.s2d.BackwardPlain(x)
}

func (d *DepthToSpace) Forward(x interface{}) (interface{}, error)  { return d.s2d.Backward(x) }
func (d *DepthToSpace) Backward(g interface{}) (interface{}, error) { return d.s2d.Forward(g) }
func (d *DepthToSpace) Update(float64) error                        { return nil }
func (d *DepthToSpace) Encrypted() bool                             { return d.s2d.Encrypted() }
func (d *DepthToSpace) Levels() int                                 { return d.s2d.Levels() }

func (d *DepthToSpace) Tag() string {
	return fmt.Sprintf("DepthToSpace_%d", d.s2d.BlockSize())
}

// SetDimensions takes the spatial size of the output plane.
func (d *DepthToSpace) SetDimensions(outH, outW int) error {
	return d.s2d.SetDimensions(outH, outW)
}

func (d *DepthToSpace) SyncHE() error { return d.s2d.SyncHE() }

func (d *DepthToSpace) ForwardHE(in []*rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	return d.s2d.BackwardHE(in)
}

func (d *DepthToSpace) BackwardHE(dOut []*rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	return d.s2d.ForwardHE(dOut)
}

func (d *DepthToSpace) OpCounts() OpCounts { return d.s2d.OpCounts() }
func (d *DepthToSpace) ResetOpCounts()     { d.s2d.ResetOpCounts() }
