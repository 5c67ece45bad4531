package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relex/gotils/logger"

	"github.com/ndstream/receiver/config"
	"github.com/ndstream/receiver/metrics"
	"github.com/ndstream/receiver/receiver"
	"github.com/ndstream/receiver/registry"
	"github.com/ndstream/receiver/server"
	"github.com/ndstream/receiver/worker"
)

type serverCmdState struct {
	server.Config
	StreamConfPath   string `help:"path to stream.conf, defining accepted API keys and machine identities"`
	MetricsAddress   string `help:"address to serve Prometheus metrics on"`
	StreamWorkers    int    `help:"number of concurrent streaming worker goroutines"`
	StreamQueueDepth int    `help:"maximum handed-off connections awaiting a free worker"`
	SnapshotPath     string `help:"file to append a Receiver State snapshot to whenever a streaming connection ends; empty disables"`
}

var serverCmd = serverCmdState{
	Config: server.Config{
		Address: "localhost:19999",
		Path:    "/api/v1/stream",
	},
	StreamConfPath:   "/etc/netdata/stream.conf",
	MetricsAddress:   "localhost:19998",
	StreamWorkers:    4,
	StreamQueueDepth: 64,
	SnapshotPath:     "",
}

func (cmd *serverCmdState) Run(args []string) {
	store, err := config.Load(cmd.StreamConfPath)
	if err != nil {
		logger.Warnf("failed to load %s, starting with an empty store: %v", cmd.StreamConfPath, err)
		store = config.Empty()
	}

	reg := registry.NewRegistry()

	metricsReg := prometheus.NewRegistry()
	metrics.Register(metricsReg, receiver.AllocatedBytes)
	go serveMetrics(cmd.MetricsAddress, metricsReg)

	var sink worker.SnapshotSink
	if cmd.SnapshotPath != "" {
		fileSink, err := worker.NewFileSnapshotSink(cmd.SnapshotPath)
		if err != nil {
			logger.Fatalf("failed to open %s for snapshot recording: %v", cmd.SnapshotPath, err)
		}
		defer fileSink.Close()
		sink = fileSink
	}

	pool := worker.NewPool(cmd.StreamWorkers, cmd.StreamQueueDepth, worker.DefaultConsume(logger.Root(), sink), logger.Root())

	srv, addr := server.LaunchServer(logger.Root(), cmd.Config, reg, store, pool)
	logger.Infof("accepting streaming connections on %s", addr)

	sigChan := make(chan os.Signal, 10)
	signal.Notify(sigChan, syscall.SIGINT)
	signal.Notify(sigChan, syscall.SIGTERM)

	s := <-sigChan
	logger.Infof("server received %v, stopping", s)

	srv.Shutdown()
	pool.Shutdown()
	logger.Info("server stopped")
}

func serveMetrics(address string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(address, mux); err != nil {
		logger.Warnf("metrics listener stopped: %v", err)
	}
}
