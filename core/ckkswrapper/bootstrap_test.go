package ckkswrapper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheatBootstrap(t *testing.T) {
	heCtx := NewHeContext()

	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i) * 0.1
	}
	ct, err := heCtx.EncryptVector(data)
	require.NoError(t, err)

	refreshed, err := heCtx.CheatBootstrap(ct)
	require.NoError(t, err)
	if refreshed.Level() != heCtx.Params.MaxLevel() {
		t.Errorf("Level = %d, want %d", refreshed.Level(), heCtx.Params.MaxLevel())
	}

	got, err := heCtx.DecryptVector(refreshed, len(data))
	require.NoError(t, err)
	maxErr := 0.0
	for i := range data {
		maxErr = math.Max(maxErr, math.Abs(got[i]-data[i]))
	}
	t.Logf("Max error after bootstrap: %e", maxErr)
	if maxErr > 1e-6 {
		t.Errorf("Data corrupted after bootstrap, max error = %e", maxErr)
	}
}

func TestCheatBootstrapAfterRescale(t *testing.T) {
	heCtx := NewHeContext()
	kit := heCtx.GenServerKit(nil)

	data := make([]float64, 32)
	for i := range data {
		data[i] = 0.5
	}
	ct, err := heCtx.EncryptVector(data)
	require.NoError(t, err)

	for ct.Level() > 0 {
		require.NoError(t, kit.Evaluator.MulRelin(ct, ct, ct))
		require.NoError(t, kit.Evaluator.Rescale(ct, ct))
	}
	require.True(t, NeedsBootstrap(ct, 1))

	require.NoError(t, heCtx.CheatBootstrapInPlace(ct))
	require.Equal(t, heCtx.Params.MaxLevel(), ct.Level())
	require.False(t, NeedsBootstrap(ct, 1))

	// two squarings: 0.5^4
	got, err := heCtx.DecryptVector(ct, 4)
	require.NoError(t, err)
	for i, v := range got {
		if math.Abs(v-0.0625) > 1e-4 {
			t.Errorf("slot %d: got %f, want 0.0625", i, v)
		}
	}
}

func TestNeedsBootstrap(t *testing.T) {
	heCtx := NewHeContext()
	ct, err := heCtx.EncryptVector([]float64{1})
	require.NoError(t, err)

	maxLevel := heCtx.Params.MaxLevel()
	if NeedsBootstrap(ct, 1) {
		t.Errorf("fresh ciphertext should not need bootstrap")
	}
	if NeedsBootstrap(ct, 0) {
		t.Errorf("threshold 0 should behave like 1 on a fresh ciphertext")
	}
	if !NeedsBootstrap(ct, maxLevel+1) {
		t.Errorf("should need bootstrap when more levels are required than available")
	}
}
