package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/storyfairy/internal/app"
	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/cli"
	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/httpapi"
	"github.com/fpang/storyfairy/internal/logging"
	"github.com/fpang/storyfairy/internal/store"
	"github.com/fpang/storyfairy/internal/webhook"
)

var (
	addrFlag     string
	serveOutFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API locally",
	Long: `Serves the same routes as the API Lambda on a local address. Stories
and users are kept in memory; artifacts are kept in memory unless --out
names a directory. The Stripe webhook is mounted at /api/stripe/webhook
when STRIPE_WEBHOOK_SECRET is available.`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVarP(&serveOutFlag, "out", "o", "", "Directory to write artifacts to (default in memory)")
}

// runServe is the serve command's execution logic.
func runServe(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	cli.LoadLocalSecrets(cfg)

	var artifacts artifact.Store = artifact.NewMemoryStore()
	if serveOutFlag != "" {
		artifacts = artifact.NewDirStore(cli.ResolveOutputDir(serveOutFlag))
	}
	records := store.NewMemoryStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.Build(ctx, cfg, app.Backends{Artifacts: artifacts, Stories: records, Users: records})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build services")
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.New(svc.APIDeps()).Handler())
	if cfg.Secrets.StripeWebhookSecret != "" {
		mux.Handle("/api/stripe/webhook", webhook.NewHandler(cfg.Secrets.StripeWebhookSecret, records))
	}

	srv := &http.Server{
		Addr:              addrFlag,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Server shutdown did not complete cleanly")
		}
	}()

	svc.Describe(logging.NewStartupLogger("storyfairy-serve")).
		CommitHash(commitHash).
		Config("addr", addrFlag).
		Feature("webhook", cfg.Secrets.StripeWebhookSecret != "").
		Log()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Str("addr", addrFlag).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}
