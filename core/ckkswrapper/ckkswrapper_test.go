package ckkswrapper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeContextRoundTrip(t *testing.T) {
	h := NewHeContext()
	vals := []float64{3.1415926535, -2, 0, 11552}
	ct, err := h.EncryptVector(vals)
	require.NoError(t, err)
	got, err := h.DecryptVector(ct, len(vals))
	require.NoError(t, err)
	for i := range vals {
		if math.Abs(got[i]-vals[i]) > 1e-6 {
			t.Fatalf("slot %d: got %f, want %f", i, got[i], vals[i])
		}
	}
}

func TestEncryptVectorTooLong(t *testing.T) {
	h := NewHeContext()
	_, err := h.EncryptVector(make([]float64, h.Params.MaxSlots()+1))
	require.Error(t, err)
}

func TestServerKitRotation(t *testing.T) {
	h := NewHeContext()
	kit := h.GenServerKit([]int{0, 3, -2})
	require.Equal(t, []int{3, -2}, kit.Rotations)

	vals := make([]float64, 16)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	ct, err := h.EncryptVector(vals)
	require.NoError(t, err)

	left, err := kit.Evaluator.RotateNew(ct, 3)
	require.NoError(t, err)
	got, err := h.DecryptVector(left, 8)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		if math.Abs(got[i]-vals[i+3]) > 1e-4 {
			t.Fatalf("rotate +3 slot %d: got %f, want %f", i, got[i], vals[i+3])
		}
	}

	right, err := kit.Evaluator.RotateNew(ct, -2)
	require.NoError(t, err)
	got, err = h.DecryptVector(right, 8)
	require.NoError(t, err)
	for i := 2; i < 8; i++ {
		if math.Abs(got[i]-vals[i-2]) > 1e-4 {
			t.Fatalf("rotate -2 slot %d: got %f, want %f", i, got[i], vals[i-2])
		}
	}
}
