// Receptionist: AI phone receptionist setup over MCP.
//
// An MCP server that any AI client can drive to walk a business owner
// through configuring the receptionist that answers their calls, from
// business hours to the call menu, and to publish the result.
//
// Usage:
//
//	receptionist serve         # Start MCP server (stdio transport)
//	receptionist show          # Print the saved draft and effective configuration
//	receptionist init-config   # Write a starter config file
package main

import (
	"os"

	"github.com/HendryAvila/Receptionist/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
