package bench

import (
	"bytes"
	"testing"

	"s2d_lib/core/ckkswrapper"
	"s2d_lib/nn/layers"
	"s2d_lib/tensor"
	"s2d_lib/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

func TestTimeLayerPlain(t *testing.T) {
	x := tensor.New(1, 8, 8, 3)
	p, err := TimeLayerPlain(layers.NewSpaceToDepth(2, false, nil), "SpaceToDepth_2", x, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Runs)
	assert.False(t, p.Encrypted)
	assert.Equal(t, layers.OpCounts{}, p.FwdOps)

	_, err = TimeLayerPlain(layers.NewSpaceToDepth(3, false, nil), "SpaceToDepth_3", x, 1)
	require.Error(t, err)
	_, err = TimeLayerPlain(layers.NewSpaceToDepth(2, false, nil), "SpaceToDepth_2", x, 0)
	require.Error(t, err)
}

func TestTimeLayerHE(t *testing.T) {
	heCtx := ckkswrapper.NewHeContext()
	layer := layers.NewSpaceToDepth(2, true, heCtx)
	require.NoError(t, layer.SetDimensions(4, 4))

	ct, err := heCtx.EncryptVector(make([]float64, 16))
	require.NoError(t, err)

	p, err := TimeLayer(layer, []*rlwe.Ciphertext{ct}, 2)
	require.NoError(t, err)
	assert.Equal(t, "SpaceToDepth_2", p.Layer)
	assert.True(t, p.Encrypted)
	// both passes visit the same groups
	assert.Equal(t, p.FwdOps.Rotate, p.BwdOps.Rotate)
	assert.Equal(t, p.FwdOps.Mul, p.BwdOps.Mul)
	assert.NotZero(t, p.FwdOps.Mul)

	_, err = TimeLayer(layer, "not ciphertexts", 1)
	require.Error(t, err)
}

func TestPrintPoints(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldVerbose := utils.Output, utils.Verbose
	utils.Output, utils.Verbose = &buf, true
	defer func() { utils.Output, utils.Verbose = oldOut, oldVerbose }()

	PrintPoints("A", []Point{{Layer: "SpaceToDepth_2", Runs: 1}})
	assert.Contains(t, buf.String(), "Microbenchmarks for A:")
	assert.Contains(t, buf.String(), "SpaceToDepth_2")

	buf.Reset()
	utils.Verbose = false
	PrintPoints("A", nil)
	assert.Empty(t, buf.String())
}
