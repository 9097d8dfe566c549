package cli

import (
	"fmt"

	"github.com/HendryAvila/Receptionist/internal/server"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "receptionist v%s\n", server.Version)
		},
	}
}
