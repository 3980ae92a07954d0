// Package main is the StoryFairy command line: generate stories locally,
// serve the HTTP API, or expose the pipeline as an MCP tool.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Build-time version identity, injected via -ldflags.
var commitHash = "dev"

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "storyfairy",
	Short: "Turn a topic into an illustrated short story",
	Long: `StoryFairy writes a short story about a topic with an LLM, then
illustrates every sentence with an image model. Providers fall back in
configured order (TEXT_PROVIDERS, IMAGE_PROVIDERS).

Credentials are read from the environment or from the GPG-encrypted
file ~/.storyfairy/credentials.gpg (NAME=value lines).

Examples:
  storyfairy generate --topic "a dragon who is afraid of the dark"
  storyfairy generate -t "space pirates" -s watercolor -o ./stories
  storyfairy serve --addr :8080
  storyfairy mcp`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(generateCmd, serveCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
