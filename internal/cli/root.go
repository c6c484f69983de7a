package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "sultand",
	Short: "sultand - Sultan L1 settlement node",
	Long: `sultand runs a Sultan L1 node: a single-sequencer settlement engine
with native and factory token ledgers, an on-chain constant-product DEX,
Ed25519-signed transactions and an HTTP/WebSocket API.`,
	Version: Version,
}

// Execute runs the CLI. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
}
