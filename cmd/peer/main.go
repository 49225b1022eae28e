package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hpodl/torrentesque/internal/logging"
	"github.com/hpodl/torrentesque/internal/metrics"
	"github.com/hpodl/torrentesque/internal/packetstore"
	"github.com/hpodl/torrentesque/internal/peer"
)

func main() {
	var (
		addr        string
		trackerAddr string
		contentPath string
		torrentSize int64
		packetSize  int64
		metricsAddr string
		resume      bool
		complete    bool
	)

	rootCmd := &cobra.Command{
		Use:   "peer",
		Short: "torrentesque seed/leech process",
		Long:  "Registers with a tracker, serves the packets it has, and fetches the ones it's missing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, trackerAddr, contentPath, torrentSize, packetSize, metricsAddr, resume, complete)
		},
	}

	rootCmd.Flags().StringVar(&addr, "addr", ":7001", "address other peers reach this process on")
	rootCmd.Flags().StringVar(&trackerAddr, "tracker-addr", ":7000", "address of the tracker")
	rootCmd.Flags().StringVar(&contentPath, "content-path", "", "path to the content file")
	rootCmd.Flags().Int64Var(&torrentSize, "torrent-size", 0, "total content size in bytes (new download only)")
	rootCmd.Flags().Int64Var(&packetSize, "packet-size", 1<<16, "packet size in bytes")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "resume from content-path's .progress sidecar")
	rootCmd.Flags().BoolVar(&complete, "complete", false, "content-path already holds the full file; seed only")
	rootCmd.MarkFlagRequired("content-path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(addr, trackerAddr, contentPath string, torrentSize, packetSize int64, metricsAddr string, resume, complete bool) error {
	log := logging.New("peer")
	logging.Banner("peer", addr)

	store, err := openStore(contentPath, torrentSize, packetSize, resume, complete)
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	peerMetrics := metrics.NewPeer(registry)

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, registry, log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info("shutdown signal received")
		cancel()
	}()

	done := make(chan struct{})
	go reportProgress(store, done)
	defer close(done)

	p := peer.New(store, addr, trackerAddr, log, peerMetrics)
	return p.Run(ctx)
}

func openStore(contentPath string, torrentSize, packetSize int64, resume, complete bool) (*packetstore.PacketStore, error) {
	switch {
	case resume:
		return packetstore.FromProgressFile(contentPath + ".progress")
	case complete:
		return packetstore.FromComplete(contentPath, packetSize)
	default:
		return packetstore.New(contentPath, torrentSize, packetSize)
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, log *logrus.Entry) {
	server := http.Server{Addr: addr, Handler: metrics.Handler(registry)}
	log.WithField("metrics_addr", addr).Info("serving metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("metrics server failed")
	}
}

// reportProgress renders a live progress bar of packets fetched so far,
// grounded on the teacher's habit of printing download progress while
// it runs (lvbealr-BitTorrent/torrent/p2p.go), swapped for the
// progressbar/v3 widget the rest of the pack reaches for.
func reportProgress(store *packetstore.PacketStore, done <-chan struct{}) {
	bar := progressbar.Default(store.PacketCount(), "fetching packets")
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			count := store.ReadPacketAvailability().Count()
			bar.Set64(int64(count))
			if int64(count) >= store.PacketCount() {
				return
			}
		}
	}
}
</content>
