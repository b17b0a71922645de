package app

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed language specs",
	RunE:  runList,
}

func init() {
	listCmd.Flags().String("format", "", "Output format (json)")
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inst, err := buildInstaller(cfg)
	if err != nil {
		return err
	}

	installed := inst.ListInstalled()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format == "json" {
		output, err := json.MarshalIndent(installed, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(output))
		return nil
	}

	if len(installed) == 0 {
		cmd.Println("no language specs installed")
		return nil
	}
	for _, summary := range installed {
		line := summary.Name + " " + summary.Version
		if len(summary.Dependencies) > 0 {
			line += " (requires " + strings.Join(summary.Dependencies, ", ") + ")"
		}
		if summary.HasHook {
			line += " [hook]"
		}
		cmd.Println(line)
	}
	return nil
}
