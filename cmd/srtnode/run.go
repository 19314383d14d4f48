package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/srtnet/srtnet/config"
	"github.com/srtnet/srtnet/netnode"
)

var metricsAddr string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bootstrap the overlay mesh and serve this node's routing and transport layers",
	RunE:  runNode,
}

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve Prometheus metrics on")
	rootCmd.AddCommand(runCmd)
}

func runNode(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	v := viper.New()
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	n, err := netnode.Wire(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenAddr := net.JoinHostPort("", strconv.Itoa(cfg.OverlayPort))
	if err := n.Run(ctx, listenAddr, cfg); err != nil {
		return err
	}
	log.Info("overlay mesh bootstrapped", slog.Uint64("node_id", uint64(n.Topology.MyNodeID())))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(n.PromReg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", slog.String("err", err.Error()))
		}
	}()

	// This daemon runs the mesh and routing plane only; application
	// sockets are opened by the app* commands against their own node
	// process on the same topology.
	<-ctx.Done()
	srv.Close()
	n.Close()
	return nil
}
