package protocol

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLineStripsTerminator(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\"GetPeers\"\n"))
	line, err := ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, `"GetPeers"`, line)
}

func TestReadLineUnterminatedFinalLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(`"GetPeers"`))
	line, err := ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, `"GetPeers"`, line)
}

func TestReadLineEmptyIsConnectionClosed(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	_, err := ReadLine(r)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestReadFrameReturnsWhatWasSent(t *testing.T) {
	r := bytes.NewReader([]byte(`"GetAvailability"`))
	frame, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, `"GetAvailability"`, string(frame))
}

func TestReadFrameEmptyIsConnectionClosed(t *testing.T) {
	r := bytes.NewReader(nil)
	_, err := ReadFrame(r)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestReadExactly(t *testing.T) {
	r := bytes.NewReader([]byte("hello"))
	buf := make([]byte, 5)
	require.NoError(t, ReadExactly(r, buf))
	assert.Equal(t, "hello", string(buf))

	r2 := bytes.NewReader([]byte("ab"))
	buf2 := make([]byte, 5)
	err := ReadExactly(r2, buf2)
	assert.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteJSONLineAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONLine(&buf, NewGetPeersRequest()))
	assert.Equal(t, "\"GetPeers\"\n", buf.String())
}

func TestWriteJSONFrameHasNoTerminator(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONFrame(&buf, NewGetAvailabilityRequest()))
	assert.Equal(t, "\"GetAvailability\"", buf.String())
}
</content>
