package protocol_test

import (
	"testing"

	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/protocol"
	"github.com/momentics/hioload-sga/sga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeEncodeDecode(t *testing.T) {
	tests := []struct {
		env  protocol.Envelope
		wire []byte
	}{
		{protocol.SingleEnvelope(), []byte{0, 0, 0, 0}},
		{protocol.ListEnvelope(0), []byte{0, 1, 0, 0}},
		{protocol.ListEnvelope(258), []byte{0, 1, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.env.String(), func(t *testing.T) {
			buf, err := protocol.AppendEnvelope(nil, tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.wire, buf)
			got, err := protocol.DecodeEnvelope(append(buf, 0xAA))
			require.NoError(t, err)
			assert.Equal(t, tt.env, got)
		})
	}
}

func TestEnvelopeRejects(t *testing.T) {
	for name, raw := range map[string][]byte{
		"short":          {0, 0, 0},
		"single w/count": {0, 0, 0, 1},
		"unknown type":   {0, 2, 0, 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := protocol.DecodeEnvelope(raw)
			assert.True(t, api.IsWireCorruption(err))
		})
	}
	assert.ErrorIs(t, protocol.EncodeEnvelope(make([]byte, 4), protocol.Envelope{Type: protocol.TypeSingle, Count: 3}),
		api.ErrInvalidArgument)
	assert.ErrorIs(t, protocol.EncodeEnvelope(make([]byte, 2), protocol.SingleEnvelope()), api.ErrInvalidArgument)
}

func TestEnvelopeShapes(t *testing.T) {
	assert.True(t, protocol.SingleEnvelope().Shape().Equal(sga.SingleShape()))
	assert.True(t, protocol.ListEnvelope(3).Shape().Equal(sga.ListShape(sga.BytesShape())))

	env, err := protocol.EnvelopeFor(sga.NewSingle())
	require.NoError(t, err)
	assert.Equal(t, protocol.SingleEnvelope(), env)

	_, err = protocol.EnvelopeFor(sga.NewList(sga.SingleShape(), 0))
	assert.ErrorIs(t, err, api.ErrNotSupported)
	tree, err := sga.NewTree(1)
	require.NoError(t, err)
	_, err = protocol.EnvelopeFor(tree)
	assert.ErrorIs(t, err, api.ErrNotSupported)
}

func TestFramingBlock(t *testing.T) {
	buf := make([]byte, 40)
	for i := range buf {
		buf[i] = 0xFF
	}
	protocol.PutFraming(buf, 0x0102030405060708, 42)
	fb, err := protocol.Framing(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), fb.Timestamp())
	assert.Equal(t, uint64(42), fb.FlowID())
	assert.Equal(t, make([]byte, 8), buf[8:16])
	assert.Equal(t, make([]byte, 8), buf[24:32])
	assert.Equal(t, byte(0xFF), buf[32], "framing never writes past its block")

	_, err = protocol.Framing(buf[:31])
	assert.True(t, api.IsWireCorruption(err))
}
