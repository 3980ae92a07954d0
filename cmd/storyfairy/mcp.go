package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/storyfairy/internal/app"
	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/cli"
	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/logging"
	"github.com/fpang/storyfairy/internal/mcptool"
)

var mcpOutFlag string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose story generation as an MCP tool over stdio",
	Long: `Runs an MCP server on stdin/stdout with one tool, generate_story.
Artifacts are written to --out. Logs go to stderr.`,
	Run: runMCP,
}

func init() {
	mcpCmd.Flags().StringVarP(&mcpOutFlag, "out", "o", "storyfairy-out", "Directory to write artifacts to")
}

// runMCP is the mcp command's execution logic.
func runMCP(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	cli.LoadLocalSecrets(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, err := app.Build(ctx, cfg, app.Backends{
		Artifacts: artifact.NewDirStore(cli.ResolveOutputDir(mcpOutFlag)),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build services")
	}

	server := mcptool.NewServer(svc.Orchestrator, cfg.DefaultStyle, commitHash)
	log.Info().Str("out", mcpOutFlag).Msg("MCP server listening on stdio")
	if err := mcptool.ServeStdio(ctx, server); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server stopped")
	}
}
