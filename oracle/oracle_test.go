package oracle

import (
	"errors"
	"testing"

	"s2d_lib/core/ckkswrapper"
	"s2d_lib/nn/layers"
	"s2d_lib/tensor"
	"s2d_lib/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexTensorLabels(t *testing.T) {
	x := IndexTensor(4, 5, 2)
	require.Equal(t, []int{1, 4, 5, 2}, x.Shape)
	assert.Equal(t, 0.0, x.At(0, 0, 0, 0))
	assert.Equal(t, 7.0, x.At(0, 1, 2, 0))
	assert.Equal(t, 27.0, x.At(0, 1, 2, 1))

	r, c, ch := Decode(x.At(0, 3, 4, 1), 4, 5)
	assert.Equal(t, [3]int{3, 4, 1}, [3]int{r, c, ch})
}

func TestRunScenarioA(t *testing.T) {
	rep, err := Run(Scenario{Name: "A", Height: 28, Width: 28, Channels: 3, BlockSize: 2}, Options{})
	require.NoError(t, err)
	require.True(t, rep.OK(), "mismatches: %v", rep.Mismatches)

	assert.Equal(t, []int{1, 14, 14, 12}, rep.Output.Shape)
	origin := rep.Origin()
	require.Len(t, origin, 1)
	in := rep.Input
	assert.Equal(t, []float64{in.At(0, 0, 0, 0), in.At(0, 0, 1, 0), in.At(0, 1, 0, 0), in.At(0, 1, 1, 0)}, origin[0][:4])
	assert.Equal(t, []float64{0, 1, 28, 29}, origin[0][:4])
	assert.Equal(t, 1568.0, origin[0][8])
}

func TestRunScenarioB(t *testing.T) {
	rep, err := Run(Scenario{Name: "B", Height: 38, Width: 38, Channels: 8, BlockSize: 2}, Options{})
	require.NoError(t, err)
	require.True(t, rep.OK())

	assert.Equal(t, []int{1, 19, 19, 32}, rep.Output.Shape)
	assert.Equal(t, []float64{0, 1, 38, 39}, rep.Origin()[0][:4])
	assert.Greater(t, rep.Stats.TotalTime, rep.Stats.VerifyTime)
}

func TestRunGeneralShapes(t *testing.T) {
	for _, sc := range []Scenario{
		{Height: 6, Width: 9, Channels: 2, BlockSize: 3},
		{Height: 4, Width: 8, Channels: 1, BlockSize: 4},
		{Height: 3, Width: 5, Channels: 2, BlockSize: 1},
	} {
		rep, err := Run(sc, Options{})
		require.NoError(t, err)
		assert.True(t, rep.OK(), "%+v", sc)
		assert.Equal(t, sc.OutputShape(), rep.Output.Shape)
	}
}

func TestRunInvalidBlockSize(t *testing.T) {
	_, err := Run(Scenario{Height: 27, Width: 28, Channels: 3, BlockSize: 2}, Options{})
	var blockErr *layers.InvalidBlockSizeError
	require.True(t, errors.As(err, &blockErr), "got %v", err)
	assert.Equal(t, 27, blockErr.Height)

	_, err = Run(Scenario{Height: 4, Width: 4, Channels: 1, BlockSize: 0}, Options{Encrypted: true})
	require.True(t, errors.As(err, &blockErr), "got %v", err)
}

func TestRunNonPositiveDims(t *testing.T) {
	_, err := Run(Scenario{Height: 4, Width: 4, Channels: 0, BlockSize: 2}, Options{})
	var shapeErr *layers.ShapeError
	require.True(t, errors.As(err, &shapeErr), "got %v", err)
}

func TestRunFeedShapeMismatch(t *testing.T) {
	sc := Scenario{Height: 28, Width: 28, Channels: 3, BlockSize: 2}
	var shapeErr *layers.ShapeError

	_, err := RunFeed(sc, IndexTensor(28, 28, 1), Options{})
	require.True(t, errors.As(err, &shapeErr), "got %v", err)
	assert.Equal(t, sc.InputShape(), shapeErr.Want)

	_, err = RunFeed(sc, IndexTensor(26, 28, 3), Options{Encrypted: true})
	require.True(t, errors.As(err, &shapeErr), "got %v", err)
}

func TestRunFeedDetectsDuplicates(t *testing.T) {
	sc := Scenario{Height: 4, Width: 4, Channels: 1, BlockSize: 2}
	feed := IndexTensor(4, 4, 1)
	feed.Set(0, 0, 3, 3, 0)

	rep, err := RunFeed(sc, feed, Options{})
	require.NoError(t, err)
	// the transform is still a permutation of what it was fed
	assert.True(t, rep.OK())
	assert.False(t, CheckBijection(IndexTensor(4, 4, 1), rep.Output))
}

func TestRunEncrypted(t *testing.T) {
	heCtx := ckkswrapper.NewHeContext()
	sc := Scenario{Name: "small", Height: 4, Width: 6, Channels: 2, BlockSize: 2}

	rep, err := Run(sc, Options{Encrypted: true, HeContext: heCtx})
	require.NoError(t, err)
	require.True(t, rep.OK(), "mismatches: %v", rep.Mismatches)
	assert.Less(t, rep.MaxDecodeError, 0.01)
	assert.Equal(t, rep.Ops.Mul, rep.Ops.Rescale)
	assert.NotZero(t, rep.Ops.Rotate)
	assert.Equal(t, []float64{0, 1, 6, 7, 24, 25, 30, 31}, rep.Origin()[0])

	plain, err := Run(sc, Options{})
	require.NoError(t, err)
	assert.Equal(t, plain.Output.Data, rep.Output.Data)
	assert.Greater(t, rep.Stats.HEInitTime, plain.Stats.HEInitTime)
}

func TestRunEncryptedSplit(t *testing.T) {
	heCtx := ckkswrapper.NewHeContext()
	sc := Scenario{Name: "split", Height: 4, Width: 4, Channels: 1, BlockSize: 2}

	rep, err := Run(sc, Options{Encrypted: true, Split: true, HeContext: heCtx})
	require.NoError(t, err)
	require.True(t, rep.OK(), "mismatches: %v", rep.Mismatches)
	assert.Positive(t, rep.WireBytes)
	assert.Equal(t, []float64{0, 1, 4, 5}, rep.Origin()[0])
}

func TestChecks(t *testing.T) {
	in := IndexTensor(4, 4, 2)
	out, err := layers.NewSpaceToDepth(2, false, nil).ForwardPlain(in)
	require.NoError(t, err)

	require.NoError(t, CheckShape(in.Shape, out.Shape, 2))
	var shapeErr *layers.ShapeError
	require.True(t, errors.As(CheckShape(in.Shape, []int{1, 2, 2, 4}, 2), &shapeErr))

	bad := out.Clone()
	bad.Data[0], bad.Data[1] = bad.Data[1], bad.Data[0]
	found, total := CheckPermutation(in, bad, 2)
	assert.Equal(t, 2, total)
	require.Len(t, found, 2)
	assert.Equal(t, Mismatch{OC: 0, Got: 1, Want: 0}, found[0])
	// swapping keeps the value set intact
	assert.True(t, CheckBijection(in, bad))

	bad.Data[0] = 99
	assert.False(t, CheckBijection(in, bad))
	assert.False(t, CheckBijection(in, tensor.New(1, 2, 2, 7)))
}

func TestCheckPermutationCapsMismatches(t *testing.T) {
	in := IndexTensor(8, 8, 2)
	out := tensor.New(1, 4, 4, 8)
	found, total := CheckPermutation(in, out, 2)
	assert.Len(t, found, maxMismatches)
	assert.Equal(t, len(out.Data)-1, total) // out[0,0,0,0] == 0 matches
}

func TestFromConfig(t *testing.T) {
	cfg := utils.DefaultConfig()
	sc := FromConfig(cfg.Scenarios[1])
	assert.Equal(t, Scenario{Name: "B", Height: 38, Width: 38, Channels: 8, BlockSize: 2}, sc)
	assert.NoError(t, sc.Validate())
}
