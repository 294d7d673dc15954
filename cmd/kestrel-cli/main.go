package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	tablesDir string
	compact   bool
)

var rootCmd = &cobra.Command{
	Use:   "kestrel-cli",
	Short: "Kestrel - offline checkout scoring toolkit",
	Long: `Evaluate checkout contexts against local scoring tables without a
running server. Subcommands read the same JSON payloads as the HTTP API
and write the same JSON responses to stdout.`,
	Version:      Version,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kestrel-cli %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&tablesDir, "tables", "t", os.Getenv("KESTREL_TABLES_DIR"),
		"scoring table directory (default: built-in tables)")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "single-line JSON output")
}

func main() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
