package split

import (
	"errors"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// Layer is the evaluator-side view of an encrypted layer.
type Layer interface {
	ForwardHE(in []*rlwe.Ciphertext) ([]*rlwe.Ciphertext, error)
	BackwardHE(dOut []*rlwe.Ciphertext) ([]*rlwe.Ciphertext, error)
}

// Serve answers forward and backward requests on p with layer until the peer
// sends done or the stream ends. Bad requests and layer failures go back to
// the peer as error messages; transport failures end Serve.
func Serve(p *Protocol, layer Layer) error {
	for {
		msg, err := p.Receive()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if msg.Type == MsgDone {
			return nil
		}

		reply, batchID, out, err := handle(msg, layer)
		if err != nil {
			if err := p.SendError(err); err != nil {
				return err
			}
			continue
		}
		if err := p.SendCiphertexts(reply, batchID, out); err != nil {
			return err
		}
	}
}

func handle(msg *Message, layer Layer) (MessageType, int, []*rlwe.Ciphertext, error) {
	payload, cts, err := decodeCiphertexts(msg, MsgForwardInput, MsgBackwardGrad)
	if err != nil {
		return 0, 0, nil, err
	}
	if msg.Type == MsgForwardInput {
		out, err := layer.ForwardHE(cts)
		return MsgForwardOutput, payload.BatchID, out, err
	}
	out, err := layer.BackwardHE(cts)
	return MsgBackwardOutput, payload.BatchID, out, err
}
