// Command appstressserver is the throughput test server: it accepts
// concurrent connections on one SRT port and reports the bytes and
// duration of each, for comparison against what appstressclient sent.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/srtnet/srtnet/config"
	"github.com/srtnet/srtnet/netnode"
)

func main() {
	cfgFile := flag.String("config", "", "path to a node configuration file")
	port := flag.Uint("port", 7001, "SRT server port to listen on")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	v := viper.New()
	cfg, err := config.Load(v, *cfgFile)
	if err != nil {
		log.Error("config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	n, err := netnode.Wire(cfg, log)
	if err != nil {
		log.Error("wire", slog.String("err", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenAddr := net.JoinHostPort("", strconv.Itoa(cfg.OverlayPort))
	if err := n.Run(ctx, listenAddr, cfg); err != nil {
		log.Error("bootstrap", slog.String("err", err.Error()))
		os.Exit(1)
	}

	listening, err := n.Transport.Listen(uint16(*port))
	if err != nil {
		log.Error("listen", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("stress server listening", slog.Uint64("port", uint64(*port)))

	for {
		conn, err := listening.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("accept", slog.String("err", err.Error()))
			continue
		}
		go receiveAndReport(ctx, conn, log)
	}
}

func receiveAndReport(ctx context.Context, conn interface {
	Recv(ctx context.Context, b []byte) (int, error)
	RemotePort() uint16
}, log *slog.Logger) {
	start := time.Now()
	buf := make([]byte, 64*1024)
	var total int64
	for {
		nr, err := conn.Recv(ctx, buf)
		total += int64(nr)
		if err != nil {
			elapsed := time.Since(start)
			if err != io.EOF {
				log.Warn("stream ended with error", slog.String("err", err.Error()))
			}
			mbps := float64(total) * 8 / 1e6 / elapsed.Seconds()
			log.Info("connection finished",
				slog.Uint64("client_port", uint64(conn.RemotePort())),
				slog.Int64("bytes", total),
				slog.Duration("elapsed", elapsed),
				slog.Float64("mbit_per_s", mbps))
			return
		}
	}
}
