package ckkswrapper

import (
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

// CheatBootstrap refreshes a ciphertext's level by decrypting and re-encrypting
// with the secret key held by the context. Only the party owning the keys can
// call it.
//
// The refreshed ciphertext has the maximum level and default scale.
func (h *HeContext) CheatBootstrap(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	pt := h.Decryptor.DecryptNew(ct)
	values := make([]complex128, h.Params.MaxSlots())
	if err := h.Encoder.Decode(pt, values); err != nil {
		return nil, err
	}

	newPt := ckks.NewPlaintext(h.Params, h.Params.MaxLevel())
	newPt.Scale = h.Params.DefaultScale()
	if err := h.Encoder.Encode(values, newPt); err != nil {
		return nil, err
	}

	return h.Encryptor.EncryptNew(newPt)
}

// CheatBootstrapInPlace refreshes a ciphertext in place.
func (h *HeContext) CheatBootstrapInPlace(ct *rlwe.Ciphertext) error {
	refreshed, err := h.CheatBootstrap(ct)
	if err != nil {
		return err
	}
	*ct = *refreshed
	return nil
}

// NeedsBootstrap reports whether ct has fewer than levels multiplicative
// levels left. A non-positive levels is treated as 1.
func NeedsBootstrap(ct *rlwe.Ciphertext, levels int) bool {
	if levels <= 0 {
		levels = 1
	}
	return ct.Level() < levels
}
