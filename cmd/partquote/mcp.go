package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/philipparndt/partquote/internal/mcptools"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/surrogate"
	"github.com/philipparndt/partquote/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the estimator as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the
estimate_part_cost, analyze_part_file and list_materials tools. Logs go to
stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	var recorder mcptools.Recorder
	if s := openHistory(); s != nil {
		defer s.Close()
		recorder = s
	}

	s := mcptools.NewServer(
		version.GetVersion(),
		surrogate.NewBackend(),
		cfg.NewAdvisor(advisor.WithLogger(componentLogger("advisor"))),
		recorder,
		componentLogger("mcp"),
	)
	return server.ServeStdio(s)
}
