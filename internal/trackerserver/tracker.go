// Package trackerserver implements the directory server peers use to
// discover each other: an ordered, duplicate-tolerant roster of peer
// addresses, mutated only by RegisterAsPeer and read by GetPeers.
//
// Grounded on original_source/src/server.rs, rendered in the teacher's
// accept-loop-per-connection style (lvbealr-BitTorrent/torrent/p2p.go).
package trackerserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hpodl/torrentesque/internal/metrics"
	"github.com/hpodl/torrentesque/internal/protocol"
)

// Tracker holds the peer roster for the lifetime of the process.
type Tracker struct {
	log     *logrus.Entry
	metrics *metrics.Tracker

	mu     sync.Mutex
	roster []string
}

// New returns an empty Tracker.
func New(log *logrus.Entry, m *metrics.Tracker) *Tracker {
	return &Tracker{log: log, metrics: m}
}

// Peers returns a snapshot copy of the current roster, in registration
// order.
func (t *Tracker) Peers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	peers := make([]string, len(t.roster))
	copy(peers, t.roster)
	return peers
}

// Serve accepts connections on addr until ctx is canceled. Per-connection
// errors never stop the accept loop; only the bind itself is fatal.
func (t *Tracker) Serve(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	t.log.WithField("addr", addr).Info("tracker listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				t.log.WithError(err).Warn("tracker accept failed")
				continue
			}
		}

		go t.handleConn(conn)
	}
}

// handleConn answers every newline-terminated request line on conn in
// arrival order until the peer disconnects.
func (t *Tracker) handleConn(conn net.Conn) {
	defer conn.Close()

	peerAddr := conn.RemoteAddr().String()
	reader := bufio.NewReader(conn)

	for {
		line, err := protocol.ReadLine(reader)
		if err != nil {
			t.log.WithField("peer", peerAddr).Debug("tracker connection closed")
			return
		}

		var req protocol.RequestToTracker
		var resp protocol.TrackerResponse
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			t.log.WithField("peer", peerAddr).Warn("invalid tracker request")
			resp = protocol.NewInvalidRequestResponse()
		} else {
			resp = t.handleRequest(req, peerAddr)
		}

		if err := protocol.WriteJSONLine(conn, resp); err != nil {
			t.log.WithError(err).WithField("peer", peerAddr).Warn("tracker failed to reply")
			return
		}
	}
}

func (t *Tracker) handleRequest(req protocol.RequestToTracker, peerAddr string) protocol.TrackerResponse {
	switch req.Kind {
	case protocol.GetPeersRequest:
		peers := t.Peers()
		if t.metrics != nil {
			t.metrics.ObserveRosterSize(len(peers))
		}
		return protocol.NewPeersResponse(peers)

	case protocol.RegisterAsPeerKind:
		t.mu.Lock()
		t.roster = append(t.roster, req.Addr)
		size := len(t.roster)
		t.mu.Unlock()

		if t.metrics != nil {
			t.metrics.ObserveRegistration()
			t.metrics.ObserveRosterSize(size)
		}

		t.log.WithFields(logrus.Fields{"peer": peerAddr, "registered_addr": req.Addr}).Info("peer registered")
		return protocol.NewRegisteredSuccessfullyResponse()

	default:
		t.log.WithField("peer", peerAddr).Warn("invalid tracker request")
		return protocol.NewInvalidRequestResponse()
	}
}
</content>
