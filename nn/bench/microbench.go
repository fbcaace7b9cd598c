package bench

import (
	"fmt"
	"time"

	"s2d_lib/nn"
	"s2d_lib/nn/layers"
	"s2d_lib/tensor"
	"s2d_lib/utils"
)

// HELayer is a layer whose encrypted passes can be timed.
type HELayer interface {
	nn.Module
	Tag() string
	ForwardHEIface(x interface{}) (interface{}, error)
	BackwardHEIface(g interface{}) (interface{}, error)
}

type opCounter interface {
	OpCounts() layers.OpCounts
	ResetOpCounts()
}

// Point is the mean cost of one layer's forward and backward pass.
type Point struct {
	Layer     string
	Encrypted bool
	Runs      int
	Fwd, Bwd  time.Duration
	// per run; zero for plaintext layers
	FwdOps, BwdOps layers.OpCounts
}

// TimeLayer runs the encrypted forward pass on in and the backward pass on
// its output numRuns times and returns the mean durations and op counts.
func TimeLayer(m HELayer, in interface{}, numRuns int) (Point, error) {
	if numRuns < 1 {
		return Point{}, fmt.Errorf("numRuns must be positive, got %d", numRuns)
	}
	p := Point{Layer: m.Tag(), Encrypted: true, Runs: numRuns}
	counter, counted := m.(opCounter)

	var fwdSum, bwdSum time.Duration
	var fwdOps, bwdOps layers.OpCounts
	for i := 0; i < numRuns; i++ {
		if counted {
			counter.ResetOpCounts()
		}
		start := time.Now()
		out, err := m.ForwardHEIface(in)
		if err != nil {
			return Point{}, fmt.Errorf("%s forward: %w", p.Layer, err)
		}
		fwdSum += time.Since(start)
		if counted {
			fwdOps = counter.OpCounts()
			counter.ResetOpCounts()
		}

		start = time.Now()
		if _, err := m.BackwardHEIface(out); err != nil {
			return Point{}, fmt.Errorf("%s backward: %w", p.Layer, err)
		}
		bwdSum += time.Since(start)
		if counted {
			bwdOps = counter.OpCounts()
		}
	}
	p.Fwd = fwdSum / time.Duration(numRuns)
	p.Bwd = bwdSum / time.Duration(numRuns)
	p.FwdOps, p.BwdOps = fwdOps, bwdOps
	return p, nil
}

// TimeLayerPlain is TimeLayer for the plaintext path.
func TimeLayerPlain(m nn.Module, tag string, in *tensor.Tensor, numRuns int) (Point, error) {
	if numRuns < 1 {
		return Point{}, fmt.Errorf("numRuns must be positive, got %d", numRuns)
	}
	var fwdSum, bwdSum time.Duration
	for i := 0; i < numRuns; i++ {
		start := time.Now()
		out, err := m.Forward(in)
		if err != nil {
			return Point{}, fmt.Errorf("%s forward: %w", tag, err)
		}
		fwdSum += time.Since(start)

		start = time.Now()
		if _, err := m.Backward(out); err != nil {
			return Point{}, fmt.Errorf("%s backward: %w", tag, err)
		}
		bwdSum += time.Since(start)
	}
	return Point{
		Layer: tag,
		Runs:  numRuns,
		Fwd:   fwdSum / time.Duration(numRuns),
		Bwd:   bwdSum / time.Duration(numRuns),
	}, nil
}

// PrintPoints writes a microbenchmark table to utils.Output.
// Respects utils.Verbose.
func PrintPoints(title string, points []Point) {
	if !utils.Verbose {
		return
	}
	fmt.Fprintf(utils.Output, "\nMicrobenchmarks for %s:\n", title)
	fmt.Fprintf(utils.Output, "%-24s | %-5s | %-12s | %-12s | %-6s | %-6s\n", "Layer", "HE", "Fwd", "Bwd", "Rot", "Mul")
	for _, p := range points {
		fmt.Fprintf(utils.Output, "%-24s | %-5v | %-12s | %-12s | %-6d | %-6d\n",
			p.Layer, p.Encrypted, p.Fwd, p.Bwd, p.FwdOps.Rotate+p.BwdOps.Rotate, p.FwdOps.Mul+p.BwdOps.Mul)
	}
}
