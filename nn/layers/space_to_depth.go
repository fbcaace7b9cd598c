package layers

import (
	"fmt"

	"s2d_lib/core/ckkswrapper"
	"s2d_lib/tensor"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SpaceToDepth folds every non-overlapping BxB spatial block of an NHWC
// tensor into channel depth. Output channel c*B*B + dr*B + dc at (oh, ow)
// holds input channel c at (oh*B+dr, ow*B+dc): channel is the outer key and
// the row-major position inside the block the inner one.
//
// Plain inputs are [N, H, W, C] or single-batch [H, W, C]. Encrypted inputs
// are one ciphertext per input channel with the H x W plane packed row-major
// in the leading slots; the output is one ciphertext per output channel.
type SpaceToDepth struct {
	blockSize int
	encrypted bool
	heCtx     *ckkswrapper.HeContext
	serverKit *ckkswrapper.ServerKit
	eval      *WrappedEvaluator

	// HE plan, set by SetDimensions
	inH, inW  int
	plan      [][]stage // [dr*B+dc] -> column stage, row stage
	maskCache map[maskKey]*rlwe.Plaintext

	indexCache map[[3]int][]int
}

// slotGroup is a set of slot moves that share one rotation: after masking,
// rotating by shift carries src[i] to dst[i] for every i.
type slotGroup struct {
	shift int
	src   []int
	dst   []int
}

// stage is one masked rotate-and-sum pass; it costs one level.
type stage []slotGroup

type maskKey struct {
	level    int
	block    int
	stage    int
	shift    int
	backward bool
}

func NewSpaceToDepth(blockSize int, encrypted bool, heCtx *ckkswrapper.HeContext) *SpaceToDepth {
	return &SpaceToDepth{
		blockSize:  blockSize,
		encrypted:  encrypted,
		heCtx:      heCtx,
		indexCache: make(map[[3]int][]int),
	}
}

// BlockSize returns B.
func (s *SpaceToDepth) BlockSize() int { return s.blockSize }

// EnableEncrypted switches the layer between encrypted and plaintext mode
func (s *SpaceToDepth) EnableEncrypted(encrypted bool) {
	s.encrypted = encrypted
	if encrypted && s.heCtx != nil && s.plan != nil && s.serverKit == nil {
		s.genKeys()
	}
}

func (s *SpaceToDepth) genKeys() {
	s.serverKit = s.heCtx.GenServerKit(s.Rotations())
	s.eval = NewWrappedEvaluator(s.serverKit.Evaluator)
}

// OpCounts returns the HE operations run since keys were generated or the
// counters were last reset.
func (s *SpaceToDepth) OpCounts() OpCounts {
	if s.eval == nil {
		return OpCounts{}
	}
	return s.eval.Counts()
}

func (s *SpaceToDepth) ResetOpCounts() {
	if s.eval != nil {
		s.eval.ResetCounters()
	}
}

// OutputShape returns the shape ForwardPlain produces for an input of shape in.
func (s *SpaceToDepth) OutputShape(in []int) ([]int, error) {
	n, h, w, c, err := nhwc(s.Tag(), in)
	if err != nil {
		return nil, err
	}
	if err := checkBlock(s.blockSize, h, w); err != nil {
		return nil, err
	}
	b := s.blockSize
	if len(in) == 3 {
		return []int{h / b, w / b, c * b * b}, nil
	}
	return []int{n, h / b, w / b, c * b * b}, nil
}

// IndexMap returns the gather table for one batch item of an H x W x C
// input: out[i] = in[IndexMap[i]] over flat NHWC offsets.
func (s *SpaceToDepth) IndexMap(h, w, c int) ([]int, error) {
	if err := checkBlock(s.blockSize, h, w); err != nil {
		return nil, err
	}
	return append([]int(nil), s.indexMap(h, w, c)...), nil
}

func (s *SpaceToDepth) indexMap(h, w, c int) []int {
	key := [3]int{h, w, c}
	if idx, ok := s.indexCache[key]; ok {
		return idx
	}
	b := s.blockSize
	outH, outW, outC := h/b, w/b, c*b*b
	idx := make([]int, outH*outW*outC)
	for oh := 0; oh < outH; oh++ {
		for ow := 0; ow < outW; ow++ {
			base := (oh*outW + ow) * outC
			for ch := 0; ch < c; ch++ {
				for dr := 0; dr < b; dr++ {
					for dc := 0; dc < b; dc++ {
						idx[base+ch*b*b+dr*b+dc] = ((oh*b+dr)*w+(ow*b+dc))*c + ch
					}
				}
			}
		}
	}
	s.indexCache[key] = idx
	return idx
}

func (s *SpaceToDepth) ForwardPlain(x *tensor.Tensor) (*tensor.Tensor, error) {
	outShape, err := s.OutputShape(x.Shape)
	if err != nil {
		return nil, err
	}
	n, h, w, c, _ := nhwc(s.Tag(), x.Shape)
	idx := s.indexMap(h, w, c)
	per := len(idx)
	out := tensor.New(outShape...)
	for bi := 0; bi < n; bi++ {
		base := bi * per
		for i, src := range idx {
			out.Data[base+i] = x.Data[base+src]
		}
	}
	return out, nil
}

// BackwardPlain scatters a gradient shaped like the forward output back to
// the input layout. It is the depth-to-space rearrangement.
func (s *SpaceToDepth) BackwardPlain(g *tensor.Tensor) (*tensor.Tensor, error) {
	n, outH, outW, depth, err := nhwc(s.Tag()+" backward", g.Shape)
	if err != nil {
		return nil, err
	}
	b := s.blockSize
	if b < 1 {
		return nil, &InvalidBlockSizeError{BlockSize: b, Height: outH, Width: outW}
	}
	if depth%(b*b) != 0 {
		return nil, &ShapeError{
			Op:     s.Tag() + " backward",
			Got:    append([]int(nil), g.Shape...),
			Reason: fmt.Sprintf("depth %d is not a multiple of %d", depth, b*b),
		}
	}
	h, w, c := outH*b, outW*b, depth/(b*b)
	idx := s.indexMap(h, w, c)
	per := len(idx)

	var out *tensor.Tensor
	if len(g.Shape) == 3 {
		out = tensor.New(h, w, c)
	} else {
		out = tensor.New(n, h, w, c)
	}
	for bi := 0; bi < n; bi++ {
		base := bi * per
		for i, dst := range idx {
			out.Data[base+dst] = g.Data[base+i]
		}
	}
	return out, nil
}

func (s *SpaceToDepth) Forward(x interface{}) (interface{}, error) {
	if s.encrypted {
		if cts, ok := x.([]*rlwe.Ciphertext); ok {
			return s.ForwardHE(cts)
		}
	}
	t, ok := x.(*tensor.Tensor)
	if !ok {
		return nil, ErrType
	}
	return s.ForwardPlain(t)
}

func (s *SpaceToDepth) Backward(g interface{}) (interface{}, error) {
	if s.encrypted {
		if cts, ok := g.([]*rlwe.Ciphertext); ok {
			return s.BackwardHE(cts)
		}
	}
	t, ok := g.(*tensor.Tensor)
	if !ok {
		return nil, ErrType
	}
	return s.BackwardPlain(t)
}

func (s *SpaceToDepth) Update(float64) error { return nil }
func (s *SpaceToDepth) Encrypted() bool      { return s.encrypted }

// Levels is 2: one mask per stage, columns then rows.
func (s *SpaceToDepth) Levels() int { return 2 }

func (s *SpaceToDepth) Tag() string {
	return fmt.Sprintf("SpaceToDepth_%d", s.blockSize)
}

// SetDimensions fixes the input plane size for the HE path and, in encrypted
// mode, generates the rotation keys the plan needs.
func (s *SpaceToDepth) SetDimensions(inH, inW int) error {
	if err := checkBlock(s.blockSize, inH, inW); err != nil {
		return err
	}
	if s.heCtx != nil {
		if slots := s.heCtx.Params.MaxSlots(); inH*inW > slots {
			return fmt.Errorf("%s: %dx%d plane does not fit in %d slots", s.Tag(), inH, inW, slots)
		}
	}
	s.inH, s.inW = inH, inW
	s.plan = buildPlan(inH, inW, s.blockSize)
	s.maskCache = make(map[maskKey]*rlwe.Plaintext)
	s.serverKit, s.eval = nil, nil
	if s.encrypted && s.heCtx != nil {
		s.genKeys()
	}
	return nil
}

func (s *SpaceToDepth) SyncHE() error {
	if !s.encrypted {
		return nil
	}
	if s.plan == nil {
		return fmt.Errorf("dimensions not set: call SetDimensions(inH, inW) first")
	}
	if s.serverKit == nil {
		return fmt.Errorf("%s: no HE context", s.Tag())
	}
	return nil
}

// Rotations lists every slot rotation the forward and backward plans use.
func (s *SpaceToDepth) Rotations() []int {
	set := make(map[int]struct{})
	for _, stages := range s.plan {
		for _, st := range stages {
			for _, g := range st {
				if g.shift != 0 {
					set[g.shift] = struct{}{}
					set[-g.shift] = struct{}{}
				}
			}
		}
	}
	rots := maps.Keys(set)
	slices.Sort(rots)
	return rots
}

// buildPlan splits, for each in-block offset (dr, dc), the move from input
// slot (oh*b+dr)*w + ow*b+dc to output slot oh*(w/b)+ow in two stages. The
// column stage compacts every source row to (oh*b+dr)*w + ow and the row
// stage lifts those rows to oh*(w/b). Each stage needs one rotation per
// output column or row instead of one per output pixel.
func buildPlan(h, w, b int) [][]stage {
	outH, outW := h/b, w/b
	plan := make([][]stage, b*b)
	for dr := 0; dr < b; dr++ {
		for dc := 0; dc < b; dc++ {
			var cols, rows []slotMove
			for oh := 0; oh < outH; oh++ {
				row := (oh*b + dr) * w
				for ow := 0; ow < outW; ow++ {
					cols = append(cols, slotMove{src: row + ow*b + dc, dst: row + ow})
					rows = append(rows, slotMove{src: row + ow, dst: oh*outW + ow})
				}
			}
			plan[dr*b+dc] = []stage{groupByShift(cols), groupByShift(rows)}
		}
	}
	return plan
}

type slotMove struct{ src, dst int }

func groupByShift(moves []slotMove) stage {
	byShift := make(map[int]int)
	var st stage
	for _, m := range moves {
		shift := m.src - m.dst
		gi, ok := byShift[shift]
		if !ok {
			gi = len(st)
			byShift[shift] = gi
			st = append(st, slotGroup{shift: shift})
		}
		st[gi].src = append(st[gi].src, m.src)
		st[gi].dst = append(st[gi].dst, m.dst)
	}
	return st
}

// ForwardHE maps C channel ciphertexts to C*B*B output channel ciphertexts.
func (s *SpaceToDepth) ForwardHE(in []*rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	if err := s.SyncHE(); err != nil {
		return nil, err
	}
	bb := s.blockSize * s.blockSize
	out := make([]*rlwe.Ciphertext, len(in)*bb)
	for c, ct := range in {
		ct, err := s.refresh(ct)
		if err != nil {
			return nil, err
		}
		for k, stages := range s.plan {
			moved := ct
			for si, st := range stages {
				if moved, err = s.refresh(moved); err != nil {
					return nil, err
				}
				if moved, err = s.move(moved, k, si, st, false); err != nil {
					return nil, fmt.Errorf("%s: channel %d block %d: %w", s.Tag(), c, k, err)
				}
			}
			out[c*bb+k] = moved
		}
	}
	return out, nil
}

// BackwardHE scatters C*B*B output channel ciphertexts back to C input
// channel ciphertexts.
func (s *SpaceToDepth) BackwardHE(dOut []*rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	if err := s.SyncHE(); err != nil {
		return nil, err
	}
	bb := s.blockSize * s.blockSize
	if len(dOut) == 0 || len(dOut)%bb != 0 {
		return nil, fmt.Errorf("%s: %d ciphertexts is not a positive multiple of %d", s.Tag(), len(dOut), bb)
	}
	eval := s.eval
	dIn := make([]*rlwe.Ciphertext, len(dOut)/bb)
	for c := range dIn {
		for k, stages := range s.plan {
			part := dOut[c*bb+k]
			var err error
			for si := len(stages) - 1; si >= 0; si-- {
				if part, err = s.refresh(part); err != nil {
					return nil, err
				}
				if part, err = s.move(part, k, si, stages[si], true); err != nil {
					return nil, fmt.Errorf("%s backward: channel %d block %d: %w", s.Tag(), c, k, err)
				}
			}
			if dIn[c] == nil {
				dIn[c] = part
				continue
			}
			if dIn[c], err = eval.AddNew(dIn[c], part); err != nil {
				return nil, err
			}
		}
	}
	return dIn, nil
}

// move applies one stage: mask each group's source slots, rotate them onto
// their destinations and sum the groups.
func (s *SpaceToDepth) move(ct *rlwe.Ciphertext, k, si int, st stage, backward bool) (*rlwe.Ciphertext, error) {
	eval := s.eval
	var acc *rlwe.Ciphertext
	for _, g := range st {
		slots, rot := g.src, g.shift
		if backward {
			slots, rot = g.dst, -g.shift
		}
		mask, err := s.mask(maskKey{level: ct.Level(), block: k, stage: si, shift: g.shift, backward: backward}, slots)
		if err != nil {
			return nil, err
		}
		term, err := eval.MulNew(ct, mask)
		if err != nil {
			return nil, err
		}
		if term.Degree() > 1 {
			if err := eval.Relinearize(term, term); err != nil {
				return nil, err
			}
		}
		if err := eval.Rescale(term, term); err != nil {
			return nil, err
		}
		if rot != 0 {
			if term, err = eval.RotateNew(term, rot); err != nil {
				return nil, fmt.Errorf("rotation by %d: %w", rot, err)
			}
		}
		if acc == nil {
			acc = term
			continue
		}
		if acc, err = eval.AddNew(acc, term); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// mask returns a 0/1 plaintext selecting slots, encoded at the modulus of
// its level so the rescale after multiplication restores the input scale.
func (s *SpaceToDepth) mask(key maskKey, slots []int) (*rlwe.Plaintext, error) {
	if pt, ok := s.maskCache[key]; ok {
		return pt, nil
	}
	params := s.serverKit.Params
	vec := make([]complex128, params.MaxSlots())
	for _, i := range slots {
		vec[i] = 1
	}
	pt := ckks.NewPlaintext(params, key.level)
	pt.Scale = rlwe.NewScale(float64(params.Q()[key.level]))
	if err := s.serverKit.Encoder.Encode(vec, pt); err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}
	s.maskCache[key] = pt
	return pt, nil
}

// refresh restores levels on ct when it cannot pay for the next mask.
func (s *SpaceToDepth) refresh(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if !ckkswrapper.NeedsBootstrap(ct, 1) {
		return ct, nil
	}
	if s.heCtx == nil {
		return nil, fmt.Errorf("%s: ciphertext at level %d and no context to refresh it", s.Tag(), ct.Level())
	}
	return s.heCtx.CheatBootstrap(ct)
}

// Interface methods for HE benchmarking
func (s *SpaceToDepth) ForwardHEIface(x interface{}) (interface{}, error) {
	cts, ok := x.([]*rlwe.Ciphertext)
	if !ok {
		return nil, fmt.Errorf("expected []*rlwe.Ciphertext for HE input")
	}
	return s.ForwardHE(cts)
}

func (s *SpaceToDepth) BackwardHEIface(g interface{}) (interface{}, error) {
	cts, ok := g.([]*rlwe.Ciphertext)
	if !ok {
		return nil, fmt.Errorf("expected []*rlwe.Ciphertext for HE grad")
	}
	return s.BackwardHE(cts)
}

// nhwc splits a rank-4 NHWC or rank-3 HWC shape into its dimensions.
func nhwc(op string, shape []int) (n, h, w, c int, err error) {
	switch len(shape) {
	case 3:
		n, h, w, c = 1, shape[0], shape[1], shape[2]
	case 4:
		n, h, w, c = shape[0], shape[1], shape[2], shape[3]
	default:
		return 0, 0, 0, 0, &ShapeError{
			Op:     op,
			Got:    append([]int(nil), shape...),
			Reason: "expected NHWC rank 4 or HWC rank 3",
		}
	}
	if n < 1 || h < 1 || w < 1 || c < 1 {
		return 0, 0, 0, 0, &ShapeError{
			Op:     op,
			Got:    append([]int(nil), shape...),
			Reason: "dimensions must be positive",
		}
	}
	return n, h, w, c, nil
}
