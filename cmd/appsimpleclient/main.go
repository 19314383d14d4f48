// Command appsimpleclient is the minimal demo client: it bootstraps its
// node's overlay mesh, dials one SRT server, sends a single message,
// and tears the connection down.
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

	"github.com/spf13/viper"

	"github.com/srtnet/srtnet/config"
	"github.com/srtnet/srtnet/netnode"
)

func main() {
	cfgFile := flag.String("config", "", "path to a node configuration file")
	serverNode := flag.Uint("server-node", 0, "destination node ID")
	serverPort := flag.Uint("server-port", 7000, "destination SRT port")
	message := flag.String("message", "hello over srt", "payload to send")
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
	log.Info("connected", slog.Uint64("server_node", uint64(*serverNode)), slog.Uint64("server_port", uint64(*serverPort)))

	if _, err := conn.Send(ctx, []byte(*message)); err != nil {
		log.Error("send", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if err := conn.Disconnect(ctx); err != nil {
		log.Error("disconnect", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("message delivered, connection closed")
	n.Close()
}
