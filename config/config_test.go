package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/srtnet/srtnet/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OverlayPort != 8000 {
		t.Errorf("OverlayPort = %d, want 8000", cfg.OverlayPort)
	}
	if cfg.SRT.GBNWindowSize != 10 {
		t.Errorf("GBNWindowSize = %d, want 10", cfg.SRT.GBNWindowSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	contents := "overlay_port: 8123\ngbn_window_size: 4\nsyn_timeout: 1500ms\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OverlayPort != 8123 {
		t.Errorf("OverlayPort = %d, want 8123", cfg.OverlayPort)
	}
	if cfg.SRT.GBNWindowSize != 4 {
		t.Errorf("GBNWindowSize = %d, want 4", cfg.SRT.GBNWindowSize)
	}
	if cfg.SRT.SynTimeout != 1500*time.Millisecond {
		t.Errorf("SynTimeout = %v, want 1500ms", cfg.SRT.SynTimeout)
	}
}

func TestLoadRejectsBadWindowSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	if err := os.WriteFile(path, []byte("gbn_window_size: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(viper.New(), path); err == nil {
		t.Fatal("expected error for zero gbn_window_size")
	}
}
