package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ggoodman/mcp-userdir/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalOptions holds the persistent flags. Empty values leave the
// environment setting in place.
type globalOptions struct {
	store     string
	usersFile string
	logLevel  string
}

func (g *globalOptions) apply(cfg *config.Config) {
	if g.store != "" {
		cfg.Store = g.store
	}
	if g.usersFile != "" {
		cfg.UsersFile = g.usersFile
	}
	if g.logLevel != "" {
		cfg.LogLevel = strings.ToLower(g.logLevel)
	}
	cfg.Normalize()
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "mcp-userdir",
		Short: "MCP server exposing a user directory over stdio",
		Long: `mcp-userdir runs a Model Context Protocol server on stdin/stdout.
Clients can echo messages, create users directly or through sampling, read
the user list and individual profiles, and fetch a prompt for inventing a
user. Without a subcommand it serves.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.store, "store", "", "record backend: file, memory, redis, sqlite or postgres (env USERS_STORE)")
	pf.StringVar(&g.usersFile, "users-file", "", "JSON document for the file backend (env USERS_FILE)")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")

	root.AddCommand(newServeCmd(g), newUsersCmd(g), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mcp-userdir %s\n", version)
			return err
		},
	}
}
