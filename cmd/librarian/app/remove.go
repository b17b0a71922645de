package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove an installed language spec",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	inst, err := buildInstaller(cfg)
	if err != nil {
		return err
	}

	name := args[0]
	removed, err := inst.Remove(cmd.Context(), name)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%s is not installed", name)
	}

	cmd.Printf("removed %s\n", name)
	return nil
}
