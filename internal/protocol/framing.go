package protocol

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// PeerRequestBuffer is the read ceiling for a single peer-to-peer request
// frame (GetAvailability / GetPackets), per §4.5 of the spec: "1024 bytes
// is a reasonable ceiling for requests".
const PeerRequestBuffer = 1024

// ErrConnectionClosed signals that the peer went away (EOF or a read
// error) rather than having sent a malformed frame — callers must not
// reply InvalidRequest in this case, just close the connection.
var ErrConnectionClosed = errors.New("connection closed before a frame was read")

// WriteJSONLine marshals v and writes it followed by a newline, as used
// for tracker-bound requests.
func WriteJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding request line")
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return errors.Wrap(err, "writing request line")
}

// ReadLine reads one newline-terminated line from r, stripped of its
// trailing newline. Returns ErrConnectionClosed if the connection ended
// before any bytes were read.
func ReadLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if line == "" {
			return "", ErrConnectionClosed
		}
		// A final unterminated line is still a complete request.
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}

// WriteJSONFrame marshals v and writes it as a single value with no
// terminator, as used for peer-to-peer request/response frames.
func WriteJSONFrame(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding frame")
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "writing frame")
}

// ReadFrame reads a single frame with one Read call bounded by
// PeerRequestBuffer. Returns ErrConnectionClosed when the peer closed
// the connection before sending anything.
func ReadFrame(r io.Reader) ([]byte, error) {
	buf := make([]byte, PeerRequestBuffer)
	n, err := r.Read(buf)
	if n == 0 {
		return nil, ErrConnectionClosed
	}
	return buf[:n], nil
}

// ReadExactly reads exactly len(buf) bytes, looping over short reads —
// required for raw GetPackets payloads, which are not length-prefixed.
func ReadExactly(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return errors.Wrap(err, "reading raw packet payload")
}
</content>
