package ipc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfufuu/nova/internal/bridge"
	"github.com/tfufuu/nova/internal/comperr"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Type: RequestGetWindow, Surface: 42}
	require.NoError(t, writeFrame(&buf, req))

	// Length prefix is 4 bytes, big endian.
	prefix := binary.BigEndian.Uint32(buf.Bytes()[:4])
	assert.Equal(t, int(prefix), buf.Len()-4)

	var got Request
	require.NoError(t, readFrame(&buf, &got))
	assert.Equal(t, req, got)
}

func TestFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(maxFrame+1)))

	var got Request
	err := readFrame(&buf, &got)
	assert.Error(t, err)
}

func TestFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(100)))
	buf.WriteString("{}")

	var got Request
	assert.Error(t, readFrame(&buf, &got))
}

func TestErrorResponseCarriesCode(t *testing.T) {
	resp := errorResponse(&comperr.UnknownSurfaceError{ID: 9})
	assert.False(t, resp.OK)
	assert.Equal(t, comperr.CodeUnknownSurface, resp.Code)
	assert.NotEmpty(t, resp.Error)
}

func TestResponseFrameWithPayload(t *testing.T) {
	var buf bytes.Buffer
	in := Response{
		OK: true,
		Windows: []bridge.WindowInfo{
			{ID: 1, Title: "editor", State: "floating", Width: 800, Height: 600},
		},
	}
	require.NoError(t, writeFrame(&buf, in))

	var out Response
	require.NoError(t, readFrame(&buf, &out))
	require.Len(t, out.Windows, 1)
	assert.Equal(t, "editor", out.Windows[0].Title)
}
