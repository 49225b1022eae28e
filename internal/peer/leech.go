package peer

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hpodl/torrentesque/internal/metrics"
	"github.com/hpodl/torrentesque/internal/packetstore"
	"github.com/hpodl/torrentesque/internal/protocol"
)

// errShutdown signals that ctx was canceled mid-fetch; Run translates it
// into a progress save rather than propagating it as a failure.
var errShutdown = errors.New("leech loop received shutdown signal")

// peerRetryInterval is how long the leech sleeps before re-polling the
// tracker for an empty peer list, per spec §4.4 step 2a.
const peerRetryInterval = 50 * time.Millisecond

// Leech acquires every missing packet by polling peers discovered via
// the tracker.
//
// Grounded on original_source/src/client.rs's do_leech_loop and
// peer_stream_with_packet.
type Leech struct {
	store       *packetstore.PacketStore
	trackerAddr string
	log         *logrus.Entry
	metrics     *metrics.Peer
	dialer      net.Dialer
}

// NewLeech returns a Leech fetching missing packets for store via the
// tracker at trackerAddr.
func NewLeech(store *packetstore.PacketStore, trackerAddr string, log *logrus.Entry, m *metrics.Peer) *Leech {
	return &Leech{store: store, trackerAddr: trackerAddr, log: log, metrics: m}
}

// Run fetches every missing packet in ascending index order. On
// cancellation it flushes progress to the sidecar and returns nil, per
// spec §4.4's failure handling rule.
func (l *Leech) Run(ctx context.Context) error {
	snapshot := l.store.ReadPacketAvailability()
	count := l.store.PacketCount()

	for i := int64(0); i < count; i++ {
		if snapshot.Test(uint(i)) {
			continue
		}

		if err := l.fetchPacket(ctx, i); err != nil {
			if errors.Is(err, errShutdown) {
				l.log.Info("leech shutting down, saving progress")
				return l.store.SaveProgressToFile()
			}
			return err
		}
	}

	l.log.Info("leech completed: all packets present")
	return nil
}

// fetchPacket implements spec §4.4 step 2: repeatedly query the tracker
// and probe a random permutation of its peers until one yields packet i.
func (l *Leech) fetchPacket(ctx context.Context, i int64) error {
	for {
		select {
		case <-ctx.Done():
			return errShutdown
		default:
		}

		peers, err := l.waitForPeers(ctx)
		if err != nil {
			return err
		}

		rng := newXorshift64(uint64(len(peers)) * uint64(i))
		order := rng.permutation(len(peers))

		for _, idx := range order {
			addr := peers[idx]
			ok, err := l.tryFetchFrom(ctx, addr, i)
			if err != nil {
				if l.metrics != nil {
					l.metrics.ObservePeerProbeFailure()
				}
				l.log.WithError(err).WithFields(logrus.Fields{"peer": addr, "packet": i}).Debug("leech probe failed, trying next peer")
				continue
			}
			if ok {
				if l.metrics != nil {
					l.metrics.ObservePacketFetched()
				}
				return nil
			}
		}
		// No candidate held packet i in this pass; restart at step (a).
	}
}

// waitForPeers queries the tracker, sleeping and retrying while the
// roster is empty. A tracker connect failure is fatal for this run.
func (l *Leech) waitForPeers(ctx context.Context) ([]string, error) {
	for {
		peers, err := l.requestPeerList(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errShutdown
			}
			return nil, errors.Wrap(err, "requesting peer list from tracker")
		}
		if len(peers) > 0 {
			return peers, nil
		}

		select {
		case <-ctx.Done():
			return nil, errShutdown
		case <-time.After(peerRetryInterval):
		}
	}
}

func (l *Leech) requestPeerList(ctx context.Context) ([]string, error) {
	conn, err := l.dialer.DialContext(ctx, "tcp", l.trackerAddr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := protocol.WriteJSONLine(conn, protocol.NewGetPeersRequest()); err != nil {
		return nil, err
	}

	reader := bufio.NewReader(conn)
	line, err := protocol.ReadLine(reader)
	if err != nil {
		return nil, err
	}

	var resp protocol.TrackerResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, errors.Wrap(err, "decoding tracker response")
	}
	if resp.Kind != protocol.PeersResponse {
		return nil, errors.New("tracker replied with a non-Peers response")
	}

	return resp.Peers, nil
}

// tryFetchFrom probes one candidate peer for packet i. A false, nil
// result means the peer doesn't have it (or replied malformed) and the
// caller should try the next candidate; a non-nil error means the probe
// itself failed (connect/read) and is also non-fatal, just logged.
func (l *Leech) tryFetchFrom(ctx context.Context, addr string, i int64) (bool, error) {
	conn, err := l.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if err := protocol.WriteJSONFrame(conn, protocol.NewGetAvailabilityRequest()); err != nil {
		return false, err
	}

	raw, err := protocol.ReadFrame(conn)
	if err != nil {
		return false, err
	}

	var resp protocol.SeedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		// Malformed seed response: treated as "peer does not have packet".
		return false, nil
	}

	if resp.Kind != protocol.AvailabilityKind || resp.Availability == nil || !resp.Availability.Test(uint(i)) {
		return false, nil
	}

	if err := protocol.WriteJSONFrame(conn, protocol.NewGetPacketsRequest(int(i), 1)); err != nil {
		return false, err
	}

	packetSize := l.store.PacketSize()
	bytesToRead := packetSize
	if remaining := l.store.TorrentSize() - i*packetSize; remaining < bytesToRead {
		bytesToRead = remaining
	}

	buf := make([]byte, bytesToRead)
	if err := protocol.ReadExactly(conn, buf); err != nil {
		return false, err
	}

	if err := l.store.WritePackets(i, buf); err != nil {
		return false, err
	}

	l.log.WithFields(logrus.Fields{"packet": i, "bytes": len(buf), "peer": addr}).Info("fetched packet")
	return true, nil
}
</content>
