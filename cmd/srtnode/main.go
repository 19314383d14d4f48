// Command srtnode runs one node of the simulated four-layer Internet
// stack: it bootstraps the overlay mesh from a topology file, runs the
// distance-vector routing daemon over it, and serves SRT sockets to
// local applications.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "srtnode",
	Short: "Run a node of the SRT simulated network stack",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a node configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "srtnode:", err)
		os.Exit(1)
	}
}
