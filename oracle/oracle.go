package oracle

import (
	"fmt"
	"math"
	"time"

	"s2d_lib/core/ckkswrapper"
	"s2d_lib/nn"
	"s2d_lib/nn/layers"
	"s2d_lib/split"
	"s2d_lib/tensor"
	"s2d_lib/utils"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// Options selects how the transform is evaluated.
type Options struct {
	// Encrypted runs the transform on CKKS ciphertexts, one per channel.
	Encrypted bool
	// LogN is the ring degree for a fresh HE context; 0 means the default.
	LogN int
	// HeContext is reused when set instead of generating new keys.
	HeContext *ckkswrapper.HeContext
	// Split serves the encrypted layer behind the split protocol, so it only
	// sees serialized ciphertexts.
	Split bool
}

// Report is the outcome of one oracle run.
type Report struct {
	Scenario  Scenario
	Encrypted bool
	Input     *tensor.Tensor
	Output    *tensor.Tensor

	ShapeErr       error
	Mismatches     []Mismatch
	MismatchCount  int
	Bijective      bool
	MaxDecodeError float64 // encrypted runs: largest |decrypted - rounded|
	Ops            layers.OpCounts
	WireBytes      int // split runs: bytes sent plus bytes received

	Stats utils.TimingStats
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return r.ShapeErr == nil && r.MismatchCount == 0 && r.Bijective
}

// Origin returns output[n, 0, 0, :] for every batch item n.
func (r *Report) Origin() [][]float64 {
	n, depth := r.Output.Shape[0], r.Output.Shape[3]
	out := make([][]float64, n)
	for bi := range out {
		out[bi] = make([]float64, depth)
		for oc := range out[bi] {
			out[bi][oc] = r.Output.At(bi, 0, 0, oc)
		}
	}
	return out
}

// Run validates sc, builds its index tensor and checks the transform of it.
func Run(sc Scenario, opts Options) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	in := IndexTensor(sc.Height, sc.Width, sc.Channels)
	build := time.Since(start)

	rep, err := run(sc, in, opts)
	if err != nil {
		return nil, err
	}
	rep.Stats.BuildTime = build
	rep.Stats.TotalTime = time.Since(start)
	return rep, nil
}

// RunFeed is Run with a caller-supplied feed in place of the index tensor.
// The feed must match the scenario's declared input shape.
func RunFeed(sc Scenario, feed *tensor.Tensor, opts Options) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	rep, err := run(sc, feed, opts)
	if err != nil {
		return nil, err
	}
	rep.Stats.TotalTime = time.Since(start)
	return rep, nil
}

func run(sc Scenario, feed *tensor.Tensor, opts Options) (*Report, error) {
	rep := &Report{Scenario: sc, Encrypted: opts.Encrypted, Input: feed}

	var err error
	if opts.Encrypted {
		rep.Output, err = runEncrypted(sc, feed, opts, rep)
	} else {
		rep.Output, err = runPlain(sc, feed, rep)
	}
	if err != nil {
		return nil, err
	}

	t := time.Now()
	rep.ShapeErr = CheckShape(feed.Shape, rep.Output.Shape, sc.BlockSize)
	if rep.ShapeErr == nil {
		rep.Mismatches, rep.MismatchCount = CheckPermutation(feed, rep.Output, sc.BlockSize)
	}
	rep.Bijective = CheckBijection(feed, rep.Output)
	rep.Stats.VerifyTime = time.Since(t)
	return rep, nil
}

func runPlain(sc Scenario, feed *tensor.Tensor, rep *Report) (*tensor.Tensor, error) {
	graph := &nn.Sequential{Layers: []nn.Module{
		layers.NewPlaceholder(sc.InputShape()...),
		layers.NewSpaceToDepth(sc.BlockSize, false, nil),
	}}
	sess := nn.NewSession(graph)
	defer sess.Close()

	out, err := sess.Run(feed)
	if err != nil {
		return nil, err
	}
	rep.Stats.TransformTime = sess.Elapsed()
	t, ok := out.(*tensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("oracle: unexpected graph output %T", out)
	}
	return t, nil
}

func runEncrypted(sc Scenario, feed *tensor.Tensor, opts Options, rep *Report) (*tensor.Tensor, error) {
	if _, err := layers.NewPlaceholder(sc.InputShape()...).Forward(feed); err != nil {
		return nil, err
	}

	t := time.Now()
	heCtx := opts.HeContext
	if heCtx == nil {
		logN := opts.LogN
		if logN == 0 {
			logN = ckkswrapper.DefaultLogN
		}
		heCtx = ckkswrapper.NewHeContextWithLogN(logN)
	}
	s2d := layers.NewSpaceToDepth(sc.BlockSize, true, heCtx)
	if err := s2d.SetDimensions(sc.Height, sc.Width); err != nil {
		return nil, fmt.Errorf("oracle: HE setup: %w", err)
	}
	rep.Stats.HEInitTime = time.Since(t)

	t = time.Now()
	cts := make([]*rlwe.Ciphertext, sc.Channels)
	for ch := range cts {
		ct, err := heCtx.EncryptVector(channelPlane(feed, ch))
		if err != nil {
			return nil, fmt.Errorf("oracle: encrypt channel %d: %w", ch, err)
		}
		cts[ch] = ct
	}
	rep.Stats.EncryptionTime = time.Since(t)

	var stage nn.Module = s2d
	var wire *split.Loopback
	if opts.Split {
		wire = split.NewLoopback(s2d)
		stage = wire
	}
	sess := nn.NewSession(&nn.Sequential{Layers: []nn.Module{stage}})
	defer sess.Close()
	res, err := sess.Run(cts)
	if err != nil {
		return nil, err
	}
	rep.Stats.TransformTime = sess.Elapsed()
	rep.Ops = s2d.OpCounts()
	if wire != nil {
		rep.WireBytes = wire.BytesSent + wire.BytesReceived
	}
	outCts, ok := res.([]*rlwe.Ciphertext)
	if !ok {
		return nil, fmt.Errorf("oracle: unexpected graph output %T", res)
	}

	t = time.Now()
	shape := sc.OutputShape()
	oh, ow := shape[1], shape[2]
	out := tensor.New(shape...)
	for oc, ct := range outCts {
		vals, err := heCtx.DecryptVector(ct, oh*ow)
		if err != nil {
			return nil, fmt.Errorf("oracle: decrypt channel %d: %w", oc, err)
		}
		for i, v := range vals {
			r := math.Round(v)
			rep.MaxDecodeError = math.Max(rep.MaxDecodeError, math.Abs(v-r))
			out.Set(r, 0, i/ow, i%ow, oc)
		}
	}
	rep.Stats.DecryptionTime = time.Since(t)
	return out, nil
}

// channelPlane packs channel ch of batch item 0 row-major.
func channelPlane(x *tensor.Tensor, ch int) []float64 {
	h, w := x.Shape[1], x.Shape[2]
	plane := make([]float64, h*w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			plane[r*w+c] = x.At(0, r, c, ch)
		}
	}
	return plane
}
