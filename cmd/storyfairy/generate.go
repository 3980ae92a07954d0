package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/storyfairy/internal/app"
	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/cli"
	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/logging"
	"github.com/fpang/storyfairy/internal/pipeline"
)

var (
	topicFlag string
	styleFlag string
	outFlag   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one illustrated story into a local directory",
	Long: `Runs the full pipeline for a topic and writes the story text and
images to the output directory:

  <out>/storyfairy-stories/<slug>.txt
  <out>/storyfairy-stories/<slug>_detailed.txt
  <out>/storyfairy-images/<slug>-imageN.png

If --topic is omitted the topic is read from stdin.`,
	Run: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&topicFlag, "topic", "t", "", "What the story is about")
	generateCmd.Flags().StringVarP(&styleFlag, "style", "s", "", "Illustration style (default DEFAULT_IMAGE_STYLE)")
	generateCmd.Flags().StringVarP(&outFlag, "out", "o", "storyfairy-out", "Directory to write artifacts to")
}

// runGenerate is the generate command's execution logic.
func runGenerate(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	cli.LoadLocalSecrets(cfg)

	outDir := cli.ResolveOutputDir(outFlag)

	ctx := context.Background()
	svc, err := app.Build(ctx, cfg, app.Backends{Artifacts: artifact.NewDirStore(outDir)})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise providers. Set provider keys in the environment or ~/.storyfairy/credentials.gpg")
	}

	topic := topicFlag
	if topic == "" {
		topic = cli.PromptForTopic(os.Stdin, os.Stdout)
	}
	style := styleFlag
	if style == "" {
		style = cfg.DefaultStyle
	}

	log.Info().
		Str("topic", topic).
		Str("style", style).
		Str("out", outDir).
		Strs("textProviders", svc.Text.Providers()).
		Strs("imageProviders", svc.Images.Providers()).
		Msg("Generating story")

	start := time.Now()
	res, err := svc.Orchestrator.Run(ctx, topic, pipeline.Options{Style: style})
	if err != nil {
		cli.HandleGenerateError(err)
	}
	cli.PrintResult(os.Stdout, res, time.Since(start))
}
