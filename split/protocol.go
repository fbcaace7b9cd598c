// Package split carries encrypted channel planes between the key holder and
// the evaluator that runs a layer on them.
package split

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

func init() {
	gob.Register(CiphertextsPayload{})
}

// MessageType defines message types for the split protocol
type MessageType int

const (
	MsgForwardInput MessageType = iota
	MsgForwardOutput
	MsgBackwardGrad
	MsgBackwardOutput
	MsgDone
	MsgError
)

func (t MessageType) String() string {
	switch t {
	case MsgForwardInput:
		return "forward-input"
	case MsgForwardOutput:
		return "forward-output"
	case MsgBackwardGrad:
		return "backward-grad"
	case MsgBackwardOutput:
		return "backward-output"
	case MsgDone:
		return "done"
	case MsgError:
		return "error"
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Message represents a message in the split protocol
type Message struct {
	Type    MessageType
	Payload interface{}
}

// CiphertextsPayload holds one serialized ciphertext per channel.
type CiphertextsPayload struct {
	BatchID     int
	Ciphertexts [][]byte
}

// Protocol handles split communication
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

// NewProtocol creates a new protocol handler
func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	p := &Protocol{}
	if w != nil {
		p.encoder = gob.NewEncoder(w)
	}
	if r != nil {
		p.decoder = gob.NewDecoder(r)
	}
	return p
}

// Send sends a message
func (p *Protocol) Send(msg *Message) error {
	if p.encoder == nil {
		return fmt.Errorf("split: protocol has no writer")
	}
	return p.encoder.Encode(msg)
}

// Receive receives a message
func (p *Protocol) Receive() (*Message, error) {
	if p.decoder == nil {
		return nil, fmt.Errorf("split: protocol has no reader")
	}
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendCiphertexts serializes cts into one message of type t.
func (p *Protocol) SendCiphertexts(t MessageType, batchID int, cts []*rlwe.Ciphertext) error {
	payload := CiphertextsPayload{BatchID: batchID, Ciphertexts: make([][]byte, len(cts))}
	for i, ct := range cts {
		b, err := ct.MarshalBinary()
		if err != nil {
			return fmt.Errorf("split: marshal ciphertext %d: %w", i, err)
		}
		payload.Ciphertexts[i] = b
	}
	return p.Send(&Message{Type: t, Payload: payload})
}

// SendDone signals completion
func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

// SendError sends an error message
func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{Type: MsgError, Payload: err.Error()})
}

// ReceiveCiphertexts reads the next message, which must be of one of the
// accepted types, and deserializes its ciphertexts. A done message yields
// io.EOF and an error message the remote error.
func (p *Protocol) ReceiveCiphertexts(accept ...MessageType) (MessageType, *CiphertextsPayload, []*rlwe.Ciphertext, error) {
	msg, err := p.Receive()
	if err != nil {
		return 0, nil, nil, err
	}
	switch msg.Type {
	case MsgError:
		return msg.Type, nil, nil, fmt.Errorf("remote error: %v", msg.Payload)
	case MsgDone:
		return msg.Type, nil, nil, io.EOF
	}
	payload, cts, err := decodeCiphertexts(msg, accept...)
	return msg.Type, payload, cts, err
}

func decodeCiphertexts(msg *Message, accept ...MessageType) (*CiphertextsPayload, []*rlwe.Ciphertext, error) {
	if !accepts(accept, msg.Type) {
		return nil, nil, fmt.Errorf("split: unexpected %s message", msg.Type)
	}
	payload, ok := msg.Payload.(CiphertextsPayload)
	if !ok {
		return nil, nil, fmt.Errorf("split: invalid %s payload %T", msg.Type, msg.Payload)
	}
	cts := make([]*rlwe.Ciphertext, len(payload.Ciphertexts))
	for i, b := range payload.Ciphertexts {
		ct := new(rlwe.Ciphertext)
		if err := ct.UnmarshalBinary(b); err != nil {
			return nil, nil, fmt.Errorf("split: unmarshal ciphertext %d: %w", i, err)
		}
		cts[i] = ct
	}
	return &payload, cts, nil
}

func accepts(types []MessageType, t MessageType) bool {
	for _, a := range types {
		if a == t {
			return true
		}
	}
	return false
}
