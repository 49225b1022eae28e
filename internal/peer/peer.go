// Package peer implements the dual seed/leech role a torrentesque
// process plays: it registers itself with the tracker, then serves its
// locally available packets to other peers while fetching the packets
// it is still missing from them.
//
// Grounded on original_source/src/client.rs (do_seed_loop/do_leech_loop
// run concurrently) and rendered in the teacher's goroutine-plus-shared-
// mutex style (lvbealr-BitTorrent/torrent/p2p.go), swapping its
// sync.WaitGroup fan-out for golang.org/x/sync/errgroup.
package peer

import (
	"bufio"
	"context"
	"encoding/json"
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hpodl/torrentesque/internal/metrics"
	"github.com/hpodl/torrentesque/internal/packetstore"
	"github.com/hpodl/torrentesque/internal/protocol"
)

// Peer owns a packet store and runs the seed and leech loops over it
// concurrently for the lifetime of a process.
type Peer struct {
	store       *packetstore.PacketStore
	selfAddr    string
	trackerAddr string
	log         *logrus.Entry
	metrics     *metrics.Peer

	seed  *Seed
	leech *Leech
}

// New returns a Peer seeding/leeching store, reachable by other peers
// at selfAddr, discovering them via the tracker at trackerAddr.
func New(store *packetstore.PacketStore, selfAddr, trackerAddr string, log *logrus.Entry, m *metrics.Peer) *Peer {
	return &Peer{
		store:       store,
		selfAddr:    selfAddr,
		trackerAddr: trackerAddr,
		log:         log,
		metrics:     m,
		seed:        NewSeed(store, log.WithField("subrole", "seed"), m),
		leech:       NewLeech(store, trackerAddr, log.WithField("subrole", "leech"), m),
	}
}

// Run registers with the tracker, then runs the seed accept loop and
// the leech fetch loop concurrently until ctx is canceled or either loop
// returns an error. A leech that finishes downloading every packet
// returns nil and the seed loop keeps serving until ctx is canceled.
func (p *Peer) Run(ctx context.Context) error {
	if err := p.registerWithTracker(ctx); err != nil {
		return errors.Wrap(err, "registering with tracker")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.seed.Serve(gctx, p.selfAddr)
	})

	g.Go(func() error {
		return p.leech.Run(gctx)
	})

	return g.Wait()
}

// registerWithTracker sends a single RegisterAsPeer request announcing
// selfAddr and waits for the tracker's acknowledgement.
func (p *Peer) registerWithTracker(ctx context.Context) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", p.trackerAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := protocol.NewRegisterAsPeerRequest(p.selfAddr)
	if err := protocol.WriteJSONLine(conn, req); err != nil {
		return err
	}

	reader := bufio.NewReader(conn)
	line, err := protocol.ReadLine(reader)
	if err != nil {
		return err
	}

	var resp protocol.TrackerResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return errors.Wrap(err, "decoding registration response")
	}
	if resp.Kind != protocol.RegisteredSuccessfullyResponse {
		return errors.Errorf("tracker rejected registration: %s", resp.Kind)
	}

	p.log.WithField("addr", p.selfAddr).Info("registered with tracker")
	return nil
}
</content>
