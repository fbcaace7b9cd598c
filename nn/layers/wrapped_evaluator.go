package layers

import (
	"fmt"

	"s2d_lib/utils"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

// OpCounts tallies homomorphic operations.
type OpCounts struct {
	Rotate  int
	Mul     int
	Relin   int
	Rescale int
	Add     int
}

func (c OpCounts) String() string {
	return fmt.Sprintf("Rotates: %d, Muls: %d, Relins: %d, Rescales: %d, Adds: %d",
		c.Rotate, c.Mul, c.Relin, c.Rescale, c.Add)
}

// WrappedEvaluator wraps a ckks.Evaluator to count operations
type WrappedEvaluator struct {
	eval   *ckks.Evaluator
	counts OpCounts
}

// NewWrappedEvaluator creates a new wrapped evaluator
func NewWrappedEvaluator(eval *ckks.Evaluator) *WrappedEvaluator {
	return &WrappedEvaluator{eval: eval}
}

// Counts returns the operations performed since the last reset.
func (w *WrappedEvaluator) Counts() OpCounts { return w.counts }

// ResetCounters resets all operation counters to zero
func (w *WrappedEvaluator) ResetCounters() { w.counts = OpCounts{} }

// PrintCounters prints the current operation counts.
// Respects utils.Verbose flag - does nothing if Verbose is false.
func (w *WrappedEvaluator) PrintCounters(phaseName string) {
	if !utils.Verbose {
		return
	}
	fmt.Fprintf(utils.Output, "=== Phase: %s ===\n%s\n", phaseName, w.counts)
}

func (w *WrappedEvaluator) RotateNew(ct *rlwe.Ciphertext, k int) (*rlwe.Ciphertext, error) {
	w.counts.Rotate++
	return w.eval.RotateNew(ct, k)
}

func (w *WrappedEvaluator) MulNew(ct *rlwe.Ciphertext, pt *rlwe.Plaintext) (*rlwe.Ciphertext, error) {
	w.counts.Mul++
	return w.eval.MulNew(ct, pt)
}

func (w *WrappedEvaluator) Relinearize(ct, ctOut *rlwe.Ciphertext) error {
	w.counts.Relin++
	return w.eval.Relinearize(ct, ctOut)
}

func (w *WrappedEvaluator) Rescale(ct, ctOut *rlwe.Ciphertext) error {
	w.counts.Rescale++
	return w.eval.Rescale(ct, ctOut)
}

func (w *WrappedEvaluator) AddNew(ct1, ct2 *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	w.counts.Add++
	return w.eval.AddNew(ct1, ct2)
}
