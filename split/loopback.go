package split

import (
	"bytes"
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// RemoteLayer is what Loopback needs from the layer it hosts.
type RemoteLayer interface {
	Layer
	Levels() int
}

// Loopback runs a layer behind the protocol inside one process: every call
// serializes its ciphertexts, lets Serve answer from its own buffer and
// deserializes the reply, so the layer only ever sees wire copies. It is an
// nn.Module over []*rlwe.Ciphertext.
type Loopback struct {
	layer   RemoteLayer
	batchID int
	// bytes moved across the wire in both directions
	BytesSent, BytesReceived int
}

func NewLoopback(layer RemoteLayer) *Loopback {
	return &Loopback{layer: layer}
}

func (l *Loopback) Forward(x interface{}) (interface{}, error) {
	return l.call(MsgForwardInput, MsgForwardOutput, x)
}

func (l *Loopback) Backward(g interface{}) (interface{}, error) {
	return l.call(MsgBackwardGrad, MsgBackwardOutput, g)
}

func (l *Loopback) Encrypted() bool { return true }
func (l *Loopback) Levels() int     { return l.layer.Levels() }

func (l *Loopback) call(req, resp MessageType, x interface{}) (interface{}, error) {
	cts, ok := x.([]*rlwe.Ciphertext)
	if !ok {
		return nil, fmt.Errorf("split: expected []*rlwe.Ciphertext, got %T", x)
	}
	l.batchID++

	var toServer, toClient bytes.Buffer
	client := NewProtocol(&toClient, &toServer)
	if err := client.SendCiphertexts(req, l.batchID, cts); err != nil {
		return nil, err
	}
	if err := client.SendDone(); err != nil {
		return nil, err
	}
	l.BytesSent += toServer.Len()

	if err := Serve(NewProtocol(&toServer, &toClient), l.layer); err != nil {
		return nil, err
	}
	l.BytesReceived += toClient.Len()

	_, payload, out, err := client.ReceiveCiphertexts(resp)
	if err != nil {
		return nil, err
	}
	if payload.BatchID != l.batchID {
		return nil, fmt.Errorf("split: reply for batch %d, want %d", payload.BatchID, l.batchID)
	}
	return out, nil
}
