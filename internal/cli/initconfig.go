package cli

import (
	"fmt"
	"path/filepath"

	"github.com/HendryAvila/Receptionist/internal/config"
	"github.com/spf13/cobra"
)

func newInitConfigCmd(o *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a config file holding the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := o.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = filepath.Join(config.DefaultDataDir(), config.FileName)
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
