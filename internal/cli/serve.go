package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/HendryAvila/Receptionist/internal/logging"
	rcpserver "github.com/HendryAvila/Receptionist/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.settings(cmd)
			if err != nil {
				return err
			}
			// stdout carries JSON-RPC, so logs go to stderr.
			logger, err := logging.New(s.LogLevel, os.Stderr)
			if err != nil {
				return err
			}
			if s.File != "" {
				logger.Debug("config loaded", "file", s.File)
			}

			deps, err := rcpserver.Open(s, logger)
			if err != nil {
				return fmt.Errorf("opening stores: %w", err)
			}
			srv, cleanup, err := rcpserver.New(deps)
			if err != nil {
				deps.Store.Close()
				return fmt.Errorf("creating server: %w", err)
			}

			logger.Info("serving", "version", rcpserver.Version, "backend", s.Backend)
			serveErr := server.ServeStdio(srv,
				server.WithErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
			)
			if err := cleanup(); err != nil && serveErr == nil {
				return err
			}
			return serveErr
		},
	}
}
