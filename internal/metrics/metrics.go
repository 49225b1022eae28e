// Package metrics wraps the prometheus collectors exposed by each role,
// grounded on chihaya-chihaya/anniemaybytes-chihaya's shared use of
// prometheus/client_golang for tracker and storage observability.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracker holds the tracker role's counters/gauges.
type Tracker struct {
	registrations prometheus.Counter
	rosterSize    prometheus.Gauge
}

// NewTracker registers and returns the tracker's metric set on reg.
func NewTracker(reg prometheus.Registerer) *Tracker {
	t := &Tracker{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "torrentesque_tracker_registrations_total",
			Help: "Total RegisterAsPeer requests accepted.",
		}),
		rosterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "torrentesque_tracker_roster_size",
			Help: "Current number of entries in the peer roster.",
		}),
	}
	reg.MustRegister(t.registrations, t.rosterSize)
	return t
}

func (t *Tracker) ObserveRegistration()       { t.registrations.Inc() }
func (t *Tracker) ObserveRosterSize(n int)    { t.rosterSize.Set(float64(n)) }

// Peer holds the seed+leech role's counters.
type Peer struct {
	packetsServed       prometheus.Counter
	packetsFetched      prometheus.Counter
	peerProbeFailures    prometheus.Counter
}

// NewPeer registers and returns the peer's metric set on reg.
func NewPeer(reg prometheus.Registerer) *Peer {
	p := &Peer{
		packetsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "torrentesque_seed_packets_served_total",
			Help: "Total packets returned in response to GetPackets.",
		}),
		packetsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "torrentesque_leech_packets_fetched_total",
			Help: "Total packets successfully fetched from other peers.",
		}),
		peerProbeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "torrentesque_leech_peer_probe_failures_total",
			Help: "Total candidate peers skipped due to a failed connect, read or write.",
		}),
	}
	reg.MustRegister(p.packetsServed, p.packetsFetched, p.peerProbeFailures)
	return p
}

func (p *Peer) ObservePacketServed()     { p.packetsServed.Inc() }
func (p *Peer) ObservePacketFetched()    { p.packetsFetched.Inc() }
func (p *Peer) ObservePeerProbeFailure() { p.peerProbeFailures.Inc() }

// Handler returns the HTTP handler serving reg's collected metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NewRegistry returns a fresh registry for one process.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}
</content>
