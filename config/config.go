// Package config loads node configuration (topology file location, the
// overlay/network/connection ports, and every tunable protocol
// constant) from a file, environment variables, and flags via viper,
// the same layered-configuration approach used throughout this module's
// command-line tools.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/srtnet/srtnet/routing"
	"github.com/srtnet/srtnet/segment"
	"github.com/srtnet/srtnet/srt"
)

// Config is the fully-resolved configuration of one node: the ports it
// listens on, the distance-vector route-update cadence, and the SRT
// transport's tunables.
type Config struct {
	TopologyFile string

	OverlayPort    int
	NetworkPort    int
	ConnectionPort int

	RouteUpdateInterval time.Duration
	PacketLossRate      float64

	MaxNodes                int
	MaxRoutingTableSlots    int
	MaxTransportConnections int

	SRT srt.Options
}

// Default returns the constants used throughout this module's reference
// scenarios, before any overriding file, environment, or flag value is
// applied.
func Default() Config {
	return Config{
		TopologyFile: "topology.dat",

		OverlayPort:    8000,
		NetworkPort:    9000,
		ConnectionPort: 10000,

		RouteUpdateInterval: 5 * time.Second,
		PacketLossRate:      0,

		MaxNodes:                32,
		MaxRoutingTableSlots:    routing.MaxRoutingTableSlots,
		MaxTransportConnections: srt.MaxTransportConnections,

		SRT: srt.DefaultOptions(),
	}
}

// Load builds a viper instance seeded with Default's values, merges in
// path (if non-empty) and the SRTNET_-prefixed environment, and returns
// the resolved Config. Flags bound by a cobra command should be bound
// into v before calling Load so they take precedence.
func Load(v *viper.Viper, path string) (Config, error) {
	def := Default()
	v.SetDefault("topology_file", def.TopologyFile)
	v.SetDefault("overlay_port", def.OverlayPort)
	v.SetDefault("network_port", def.NetworkPort)
	v.SetDefault("connection_port", def.ConnectionPort)
	v.SetDefault("route_update_interval", def.RouteUpdateInterval)
	v.SetDefault("packet_loss_rate", def.PacketLossRate)
	v.SetDefault("max_nodes", def.MaxNodes)
	v.SetDefault("max_routingtable_slots", def.MaxRoutingTableSlots)
	v.SetDefault("max_transport_connections", def.MaxTransportConnections)
	v.SetDefault("gbn_window_size", def.SRT.GBNWindowSize)
	v.SetDefault("syn_timeout", def.SRT.SynTimeout)
	v.SetDefault("data_timeout", def.SRT.DataTimeout)
	v.SetDefault("fin_timeout", def.SRT.FinTimeout)
	v.SetDefault("syn_max_retry", def.SRT.SynMaxRetry)
	v.SetDefault("fin_max_retry", def.SRT.FinMaxRetry)
	v.SetDefault("closewait_timeout", def.SRT.CloseWaitTimeout)
	v.SetDefault("sendbuf_polling_interval", def.SRT.SendPollInterval)
	v.SetDefault("recvbuf_polling_interval", def.SRT.RecvPollInterval)

	v.SetEnvPrefix("srtnet")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg := Config{
		TopologyFile:            v.GetString("topology_file"),
		OverlayPort:             v.GetInt("overlay_port"),
		NetworkPort:             v.GetInt("network_port"),
		ConnectionPort:          v.GetInt("connection_port"),
		RouteUpdateInterval:     v.GetDuration("route_update_interval"),
		PacketLossRate:          v.GetFloat64("packet_loss_rate"),
		MaxNodes:                v.GetInt("max_nodes"),
		MaxRoutingTableSlots:    v.GetInt("max_routingtable_slots"),
		MaxTransportConnections: v.GetInt("max_transport_connections"),
		SRT: srt.Options{
			GBNWindowSize:    v.GetInt("gbn_window_size"),
			SynTimeout:       v.GetDuration("syn_timeout"),
			DataTimeout:      v.GetDuration("data_timeout"),
			FinTimeout:       v.GetDuration("fin_timeout"),
			SynMaxRetry:      v.GetInt("syn_max_retry"),
			FinMaxRetry:      v.GetInt("fin_max_retry"),
			CloseWaitTimeout: v.GetDuration("closewait_timeout"),
			SendPollInterval: v.GetDuration("sendbuf_polling_interval"),
			RecvPollInterval: v.GetDuration("recvbuf_polling_interval"),
		},
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.SRT.GBNWindowSize <= 0 {
		return fmt.Errorf("config: gbn_window_size must be positive, got %d", c.SRT.GBNWindowSize)
	}
	if c.MaxRoutingTableSlots <= 0 {
		return fmt.Errorf("config: max_routingtable_slots must be positive, got %d", c.MaxRoutingTableSlots)
	}
	if segment.MaxSegLen <= 0 {
		return fmt.Errorf("config: segment.MaxSegLen must be positive")
	}
	return nil
}
