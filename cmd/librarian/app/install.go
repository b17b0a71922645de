package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/librarian-dev/librarian/internal/installer"
)

var installCmd = &cobra.Command{
	Use:   "install NAME [NAME...]",
	Short: "Install one or more language specs",
	Long: `Install fetches each named package from the configured source,
validates and schema-checks it, and records the decoded spec in the
local catalog. Multiple packages install concurrently on a bounded
worker pool.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().String("version", "", "Package version (index default: latest; required for git)")
	installCmd.Flags().String("source", "", "Package source: index or git (default index)")
	installCmd.Flags().String("checksum", "", "Expected hex SHA-256 of the package archive")
	installCmd.Flags().BoolP("recursive", "r", false, "Install missing dependencies too")

	for _, flag := range []string{"version", "source", "checksum", "recursive"} {
		if err := viper.BindPFlag("install."+flag, installCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inst, err := buildInstaller(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requests := make([]installer.InstallRequest, 0, len(args))
	for _, name := range args {
		requests = append(requests, installer.InstallRequest{
			Name:      name,
			Version:   viper.GetString("install.version"),
			Source:    viper.GetString("install.source"),
			Checksum:  viper.GetString("install.checksum"),
			Recursive: viper.GetBool("install.recursive"),
		})
	}

	pool := installer.NewPool(inst, cfg.Install.Workers)
	outcomes := pool.InstallAll(ctx, requests)

	failed := 0
	for _, outcome := range outcomes {
		printOutcome(cmd, outcome)
		if !outcome.Installed() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d install requests did not complete", failed, len(outcomes))
	}
	return nil
}

func printOutcome(cmd *cobra.Command, outcome *installer.Outcome) {
	switch {
	case outcome.Installed():
		cmd.Printf("installed %s %s\n", outcome.Name, outcome.Spec.Version)
	case outcome.Err != nil:
		cmd.Printf("%s: %s (%v)\n", outcome.Name, outcome.Status, outcome.Err)
	default:
		cmd.Printf("%s: %s\n", outcome.Name, outcome.Status)
	}

	for _, warning := range outcome.Warnings {
		cmd.Printf("  warning: %s\n", warning.Message)
	}
}
