package oracle

import (
	"fmt"
	"sort"

	"s2d_lib/nn/layers"
	"s2d_lib/tensor"

	"gonum.org/v1/gonum/floats"
)

// maxMismatches caps how many differences a report keeps.
const maxMismatches = 16

// Mismatch is one output element that disagrees with the reference formula.
type Mismatch struct {
	N, OH, OW, OC int
	Got, Want     float64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("out[%d,%d,%d,%d] = %v, want %v", m.N, m.OH, m.OW, m.OC, m.Got, m.Want)
}

// Expected is the reference value at output (n, oh, ow, oc): channel
// oc/(b*b), row offset (oc%(b*b))/b and column offset (oc%(b*b))%b of the
// input block at (oh, ow).
func Expected(in *tensor.Tensor, b, n, oh, ow, oc int) float64 {
	bb := b * b
	k := oc % bb
	return in.At(n, oh*b+k/b, ow*b+k%b, oc/bb)
}

// CheckShape reports a ShapeError unless out is (N, H/B, W/B, C*B*B) for the
// NHWC input shape in.
func CheckShape(in, out []int, b int) error {
	if len(in) != 4 {
		return &layers.ShapeError{Op: "check", Got: append([]int(nil), in...), Reason: "expected NHWC input"}
	}
	want := []int{in[0], in[1] / b, in[2] / b, in[3] * b * b}
	if !tensor.SameShape(want, out) {
		return &layers.ShapeError{Op: "check", Want: want, Got: append([]int(nil), out...)}
	}
	return nil
}

// CheckPermutation compares every output element against Expected and
// returns up to maxMismatches differences with the total count.
func CheckPermutation(in, out *tensor.Tensor, b int) ([]Mismatch, int) {
	var found []Mismatch
	total := 0
	n, oh, ow, oc := out.Shape[0], out.Shape[1], out.Shape[2], out.Shape[3]
	for bi := 0; bi < n; bi++ {
		for i := 0; i < oh; i++ {
			for j := 0; j < ow; j++ {
				for k := 0; k < oc; k++ {
					got, want := out.At(bi, i, j, k), Expected(in, b, bi, i, j, k)
					if got == want {
						continue
					}
					total++
					if len(found) < maxMismatches {
						found = append(found, Mismatch{N: bi, OH: i, OW: j, OC: k, Got: got, Want: want})
					}
				}
			}
		}
	}
	return found, total
}

// CheckBijection reports whether out holds exactly the multiset of values in
// in: nothing created, lost or duplicated.
func CheckBijection(in, out *tensor.Tensor) bool {
	if len(in.Data) != len(out.Data) {
		return false
	}
	a := append([]float64(nil), in.Data...)
	o := append([]float64(nil), out.Data...)
	sort.Float64s(a)
	sort.Float64s(o)
	return floats.Equal(a, o)
}
