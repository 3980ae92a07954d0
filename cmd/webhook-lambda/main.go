// Package main provides a Lambda entry point for the Stripe webhook.
//
// This is a lightweight Lambda that handles:
//   - POST /api/stripe/webhook: Stripe event notifications verified with
//     the Stripe-Signature header
//
// checkout.session.completed activates subscriptions and adds purchased
// credits; customer.subscription.deleted cancels the subscription. The
// Lambda only needs the signing secret from SSM and the DynamoDB table.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/lambdaboot"
	"github.com/fpang/storyfairy/internal/logging"
	"github.com/fpang/storyfairy/internal/webhook"
)

var webhookHandler *webhook.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	aws := lambdaboot.InitAWS()
	if cfg.Secrets.StripeWebhookSecret == "" {
		secret, err := lambdaboot.LoadSecret(context.Background(), aws.SSM, cfg.SSM.StripeWebhookSecret)
		if err != nil {
			log.Fatal().Err(err).Msg("Stripe webhook signing secret is required")
		}
		cfg.Secrets.StripeWebhookSecret = secret
	}
	records := lambdaboot.InitDynamo(aws.Config, cfg)

	webhookHandler = webhook.NewHandler(cfg.Secrets.StripeWebhookSecret, records)

	lambdaboot.StartupLog("webhook-lambda", initStart).
		DynamoTable("storyfairy", records.TableName()).
		SSMParam("stripeWebhookSecret", cfg.SSM.StripeWebhookSecret).
		Log()
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/api/stripe/webhook", webhookHandler)

	adapter := httpadapter.NewV2(mux)
	lambda.Start(adapter.ProxyWithContext)
}
