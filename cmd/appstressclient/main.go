// Command appstressclient is the throughput test client: it dials one
// SRT server and streams a configurable amount of pseudo-random data
// through it as fast as the GBN send window allows.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/srtnet/srtnet/config"
	"github.com/srtnet/srtnet/internal"
	"github.com/srtnet/srtnet/netnode"
)

func main() {
	cfgFile := flag.String("config", "", "path to a node configuration file")
	serverNode := flag.Uint("server-node", 0, "destination node ID")
	serverPort := flag.Uint("server-port", 7001, "destination SRT port")
	totalBytes := flag.Int("bytes", 1<<20, "total bytes to stream")
	chunkSize := flag.Int("chunk", 4096, "bytes per Send call")
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

	conn, err := n.Transport.Dial(ctx, uint32(*serverNode), uint16(*serverPort))
	if err != nil {
		log.Error("dial", slog.String("err", err.Error()))
		os.Exit(1)
	}

	chunk := make([]byte, *chunkSize)
	var rng uint32 = 0x2545F491
	fillRandom(chunk, &rng)

	start := time.Now()
	var sent int
	for sent < *totalBytes {
		n := *chunkSize
		if remaining := *totalBytes - sent; remaining < n {
			n = remaining
		}
		if _, err := conn.Send(ctx, chunk[:n]); err != nil {
			log.Error("send", slog.String("err", err.Error()), slog.Int("sent", sent))
			os.Exit(1)
		}
		sent += n
	}
	elapsed := time.Since(start)
	mbps := float64(sent) * 8 / 1e6 / elapsed.Seconds()
	log.Info("stream complete", slog.Int("bytes", sent), slog.Duration("elapsed", elapsed), slog.Float64("mbit_per_s", mbps))

	if err := conn.Disconnect(ctx); err != nil {
		log.Error("disconnect", slog.String("err", err.Error()))
		os.Exit(1)
	}
	n.Close()
}

// fillRandom fills buf with internal.Prand32 output, avoiding a
// dependency on crypto/math-rand for a payload whose content is
// irrelevant to the throughput measurement.
func fillRandom(buf []byte, state *uint32) {
	for i := 0; i < len(buf); i += 4 {
		*state = internal.Prand32(*state)
		v := *state
		for j := 0; j < 4 && i+j < len(buf); j++ {
			buf[i+j] = byte(v >> (8 * j))
		}
	}
}
