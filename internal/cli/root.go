// Package cli implements the receptionist commands.
package cli

import (
	"github.com/HendryAvila/Receptionist/internal/config"
	"github.com/HendryAvila/Receptionist/internal/server"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	configPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "receptionist",
		Short:         "AI phone receptionist setup over MCP",
		Long:          "An MCP server that walks a business through configuring its AI phone receptionist and publishes the result.",
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "Config file (default: ./"+config.FileName+" or <data-dir>/"+config.FileName+")")
	pf.String(config.FlagName(config.KeyDataDir), "", "Data directory (default: ~/.receptionist)")
	pf.String(config.FlagName(config.KeyBackend), "", "Storage backend: sqlite or file")
	pf.Duration(config.FlagName(config.KeyDebounceWindow), 0, "Quiet period before edits are saved")
	pf.Duration(config.FlagName(config.KeyWriteTimeout), 0, "Timeout for a background save")
	pf.Duration(config.FlagName(config.KeyFinalTimeout), 0, "Timeout for the save on submit")
	pf.String(config.FlagName(config.KeyIdentity), "", "Whose draft to work on (default: $RECEPTIONIST_IDENTITY or $USER)")
	pf.String(config.FlagName(config.KeyCatalogFile), "", "YAML file with the voice and phone number catalog")
	pf.String(config.FlagName(config.KeyLogLevel), "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(o),
		newShowCmd(o),
		newInitConfigCmd(o),
		newVersionCmd(),
	)
	return root
}

// settings resolves configuration with cmd's flags on top.
func (o *options) settings(cmd *cobra.Command) (*config.Settings, error) {
	return config.Load(o.configPath, cmd.Flags())
}
