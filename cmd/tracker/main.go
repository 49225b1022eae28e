package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hpodl/torrentesque/internal/logging"
	"github.com/hpodl/torrentesque/internal/metrics"
	"github.com/hpodl/torrentesque/internal/trackerserver"
)

func main() {
	var addr string
	var metricsAddr string

	rootCmd := &cobra.Command{
		Use:   "tracker",
		Short: "torrentesque peer directory",
		Long:  "Accepts RegisterAsPeer/GetPeers requests and hands out the current peer roster.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, metricsAddr)
		},
	}

	rootCmd.Flags().StringVar(&addr, "addr", ":7000", "address to listen for peer connections on")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(addr, metricsAddr string) error {
	log := logging.New("tracker")
	logging.Banner("tracker", addr)

	registry := metrics.NewRegistry()
	trackerMetrics := metrics.NewTracker(registry)

	if metricsAddr != "" {
		go func() {
			server := http.Server{Addr: metricsAddr, Handler: metrics.Handler(registry)}
			log.WithField("metrics_addr", metricsAddr).Info("serving metrics")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server failed")
			}
		}()
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

	t := trackerserver.New(log, trackerMetrics)
	return t.Serve(ctx, addr)
}
</content>
