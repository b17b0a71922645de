// Package app provides the librarian command tree.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/librarian-dev/librarian/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "librarian",
	DisableAutoGenTag: true,
	Short:             "Local manager for language plugin specs",
	Long: `librarian installs, lists and removes language specs: declarative
descriptors teaching the tool how to build and run a language toolchain.
Specs are fetched from the package index or the code-hosting platform,
validated, schema-checked and recorded in a local catalog.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

var rootOnce sync.Once

// NewRootCmd returns the root command for the librarian CLI, wiring
// flags and subcommands on first use.
func NewRootCmd() *cobra.Command {
	rootOnce.Do(func() {
		rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
		if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
			slog.Error("Error binding config flag", "error", err)
		}

		rootCmd.AddCommand(installCmd)
		rootCmd.AddCommand(listCmd)
		rootCmd.AddCommand(removeCmd)
		rootCmd.AddCommand(versionCmd)
	})
	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			slog.Error("Error retrieving format flag", "error", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				slog.Error("Error formatting version info as JSON", "error", err)
				return
			}
			fmt.Println(string(output))
		} else {
			fmt.Printf("librarian %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
