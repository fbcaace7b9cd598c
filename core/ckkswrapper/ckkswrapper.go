package ckkswrapper

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

// DefaultLogN is the ring dimension used by NewHeContext.
const DefaultLogN = 13

// HeContext holds the client-side CKKS material: parameters, keys and the
// encoder/encryptor/decryptor built from them.
type HeContext struct {
	Params    ckks.Parameters
	Encoder   *ckks.Encoder
	Encryptor *rlwe.Encryptor
	Decryptor *rlwe.Decryptor

	kgen *rlwe.KeyGenerator
	sk   *rlwe.SecretKey
	rlk  *rlwe.RelinearizationKey
}

// ServerKit is what an evaluating party needs: no secret key, only the
// evaluator loaded with relinearization and the requested rotation keys.
type ServerKit struct {
	Params    ckks.Parameters
	Encoder   *ckks.Encoder
	Evaluator *ckks.Evaluator
	Rotations []int
}

// NewHeContext builds a context with DefaultLogN.
func NewHeContext() *HeContext {
	return NewHeContextWithLogN(DefaultLogN)
}

// NewHeContextWithLogN builds a context for ring degree 2^logN. It panics on
// invalid parameters, like the rest of the setup helpers.
func NewHeContextWithLogN(logN int) *HeContext {
	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            logN,
		LogQ:            []int{55, 40, 40},
		LogP:            []int{61},
		LogDefaultScale: 40,
	})
	if err != nil {
		panic(fmt.Sprintf("ckkswrapper: invalid parameters for logN=%d: %v", logN, err))
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	return &HeContext{
		Params:    params,
		Encoder:   ckks.NewEncoder(params),
		Encryptor: rlwe.NewEncryptor(params, pk),
		Decryptor: rlwe.NewDecryptor(params, sk),
		kgen:      kgen,
		sk:        sk,
		rlk:       kgen.GenRelinearizationKeyNew(sk),
	}
}

// GenServerKit generates Galois keys for the given slot rotations (0 is
// skipped) and returns an evaluator that can apply them.
func (h *HeContext) GenServerKit(rotations []int) *ServerKit {
	galEls := make([]uint64, 0, len(rotations))
	kept := make([]int, 0, len(rotations))
	for _, r := range rotations {
		if r == 0 {
			continue
		}
		galEls = append(galEls, h.Params.GaloisElement(r))
		kept = append(kept, r)
	}
	gks := h.kgen.GenGaloisKeysNew(galEls, h.sk)
	evk := rlwe.NewMemEvaluationKeySet(h.rlk, gks...)
	return &ServerKit{
		Params:    h.Params,
		Encoder:   ckks.NewEncoder(h.Params),
		Evaluator: ckks.NewEvaluator(h.Params, evk),
		Rotations: kept,
	}
}

// EncryptVector packs values into the leading slots of a fresh ciphertext at
// the maximum level. Remaining slots are zero.
func (h *HeContext) EncryptVector(values []float64) (*rlwe.Ciphertext, error) {
	slots := h.Params.MaxSlots()
	if len(values) > slots {
		return nil, fmt.Errorf("vector of length %d does not fit in %d slots", len(values), slots)
	}
	vec := make([]complex128, slots)
	for i, v := range values {
		vec[i] = complex(v, 0)
	}
	pt := ckks.NewPlaintext(h.Params, h.Params.MaxLevel())
	pt.Scale = h.Params.DefaultScale()
	if err := h.Encoder.Encode(vec, pt); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return h.Encryptor.EncryptNew(pt)
}

// DecryptVector decrypts ct and returns the real parts of its first n slots.
func (h *HeContext) DecryptVector(ct *rlwe.Ciphertext, n int) ([]float64, error) {
	decoded := make([]complex128, h.Params.MaxSlots())
	if err := h.Encoder.Decode(h.Decryptor.DecryptNew(ct), decoded); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if n > len(decoded) {
		n = len(decoded)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = real(decoded[i])
	}
	return out, nil
}
