package peer

import (
	"context"
	"encoding/json"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/hpodl/torrentesque/internal/metrics"
	"github.com/hpodl/torrentesque/internal/packetstore"
	"github.com/hpodl/torrentesque/internal/protocol"
)

// Seed answers GetAvailability and GetPackets requests from other peers.
//
// Grounded on original_source/src/client.rs's do_seed_loop, rendered in
// the teacher's accept-loop style (lvbealr-BitTorrent/torrent/p2p.go).
type Seed struct {
	store   *packetstore.PacketStore
	log     *logrus.Entry
	metrics *metrics.Peer
}

// NewSeed returns a Seed serving store.
func NewSeed(store *packetstore.PacketStore, log *logrus.Entry, m *metrics.Peer) *Seed {
	return &Seed{store: store, log: log, metrics: m}
}

// Serve accepts connections on addr until ctx is canceled. A failing
// connection never kills the accept loop; only the bind itself is fatal.
func (s *Seed) Serve(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.log.WithField("addr", addr).Info("seed listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.WithError(err).Warn("seed accept failed")
				continue
			}
		}

		go s.handleConn(conn)
	}
}

func (s *Seed) handleConn(conn net.Conn) {
	defer conn.Close()

	peerAddr := conn.RemoteAddr().String()

	for {
		raw, err := protocol.ReadFrame(conn)
		if err != nil {
			s.log.WithField("peer", peerAddr).Debug("seed connection closed")
			return
		}

		var req protocol.LeechRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			s.log.WithField("peer", peerAddr).Warn("invalid seed request")
			if err := protocol.WriteJSONFrame(conn, protocol.NewSeedInvalidRequestResponse()); err != nil {
				return
			}
			continue
		}

		if !s.serveOne(conn, req, peerAddr) {
			return
		}
	}
}

// serveOne answers a single decoded request. It returns false when the
// connection should be torn down (a write failed).
func (s *Seed) serveOne(conn net.Conn, req protocol.LeechRequest, peerAddr string) bool {
	switch req.Kind {
	case protocol.GetAvailabilityKind:
		snapshot := s.store.ReadPacketAvailability()
		resp := protocol.NewAvailabilityResponse(snapshot)
		if err := protocol.WriteJSONFrame(conn, resp); err != nil {
			s.log.WithError(err).WithField("peer", peerAddr).Warn("seed failed to reply availability")
			return false
		}
		return true

	case protocol.GetPacketsKind:
		data, err := s.store.ReadPackets(int64(req.Start), int64(req.Count))
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"peer": peerAddr, "start": req.Start, "count": req.Count,
			}).Warn("seed could not serve packets")
			if err := protocol.WriteJSONFrame(conn, protocol.NewSeedInvalidRequestResponse()); err != nil {
				return false
			}
			return true
		}

		if _, err := conn.Write(data); err != nil {
			s.log.WithError(err).WithField("peer", peerAddr).Warn("seed failed to write packet bytes")
			return false
		}

		if s.metrics != nil {
			for n := 0; n < req.Count; n++ {
				s.metrics.ObservePacketServed()
			}
		}
		return true

	default:
		if err := protocol.WriteJSONFrame(conn, protocol.NewSeedInvalidRequestResponse()); err != nil {
			return false
		}
		return true
	}
}
</content>
