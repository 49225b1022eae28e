package trackerserver

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpodl/torrentesque/internal/logging"
	"github.com/hpodl/torrentesque/internal/protocol"
)

func startTestTracker(t *testing.T) net.Addr {
	t.Helper()

	tr := New(logging.New("test-tracker"), nil)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go tr.handleConn(conn)
		}
	}()

	t.Cleanup(func() { listener.Close() })
	return listener.Addr()
}

func roundTrip(t *testing.T, addr net.Addr, req protocol.RequestToTracker) protocol.TrackerResponse {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, protocol.WriteJSONLine(conn, req))

	reader := bufio.NewReader(conn)
	line, err := protocol.ReadLine(reader)
	require.NoError(t, err)

	var resp protocol.TrackerResponse
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	return resp
}

func TestGetPeersOnEmptyRoster(t *testing.T) {
	addr := startTestTracker(t)

	resp := roundTrip(t, addr, protocol.NewGetPeersRequest())
	assert.Equal(t, protocol.PeersResponse, resp.Kind)
	assert.Empty(t, resp.Peers)
}

func TestRegisterThenGetPeersPreservesOrder(t *testing.T) {
	addr := startTestTracker(t)

	respA := roundTrip(t, addr, protocol.NewRegisterAsPeerRequest("127.0.0.166:5468"))
	assert.Equal(t, protocol.RegisteredSuccessfullyResponse, respA.Kind)

	respB := roundTrip(t, addr, protocol.NewRegisterAsPeerRequest("127.0.0.167:7846"))
	assert.Equal(t, protocol.RegisteredSuccessfullyResponse, respB.Kind)

	resp := roundTrip(t, addr, protocol.NewGetPeersRequest())
	assert.Equal(t, protocol.PeersResponse, resp.Kind)
	assert.Equal(t, []string{"127.0.0.166:5468", "127.0.0.167:7846"}, resp.Peers)
}

func TestMalformedRequestGetsInvalidRequestReplyAndKeepsConnOpen(t *testing.T) {
	addr := startTestTracker(t)

	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not json\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := protocol.ReadLine(reader)
	require.NoError(t, err)

	var resp protocol.TrackerResponse
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	assert.Equal(t, protocol.InvalidRequestResponse, resp.Kind)

	require.NoError(t, protocol.WriteJSONLine(conn, protocol.NewGetPeersRequest()))
	line, err = protocol.ReadLine(reader)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	assert.Equal(t, protocol.PeersResponse, resp.Kind)
}
</content>
