// Command appsimpleserver is the minimal demo server: it bootstraps its
// node's overlay mesh, listens on one SRT port, and drains every
// accepted connection's data stream until the client closes it.
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

	"github.com/spf13/viper"

	"github.com/srtnet/srtnet/config"
	"github.com/srtnet/srtnet/netnode"
)

func main() {
	cfgFile := flag.String("config", "", "path to a node configuration file")
	port := flag.Uint("port", 7000, "SRT server port to listen on")
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
	log.Info("server listening", slog.Uint64("port", uint64(*port)))

	for {
		conn, err := listening.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("accept", slog.String("err", err.Error()))
			continue
		}
		go drain(ctx, conn, log)
	}
}

func drain(ctx context.Context, conn interface {
	Recv(ctx context.Context, b []byte) (int, error)
}, log *slog.Logger) {
	buf := make([]byte, 4096)
	var total int
	for {
		nr, err := conn.Recv(ctx, buf)
		total += nr
		if err != nil {
			if err != io.EOF {
				log.Debug("recv ended", slog.String("err", err.Error()))
			}
			log.Info("connection closed", slog.Int("bytes_received", total))
			return
		}
	}
}
