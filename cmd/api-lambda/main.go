// Package main provides the Lambda entry point for the StoryFairy API.
//
// It serves the httpapi routes behind API Gateway (HTTP API, payload v2):
// story generation, image regeneration, saved stories, the blob proxy and
// subscription endpoints.
//
// Secrets (provider keys, Stripe key, JWT secret) are loaded from SSM
// Parameter Store at cold start unless already set in the environment.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/app"
	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/httpapi"
	"github.com/fpang/storyfairy/internal/lambdaboot"
	"github.com/fpang/storyfairy/internal/logging"
	"github.com/fpang/storyfairy/internal/story"
)

var handler http.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	aws := lambdaboot.InitAWS()
	lambdaboot.LoadSecrets(context.Background(), aws.SSM, cfg)
	artifacts := lambdaboot.InitArtifacts(aws.Config, cfg)
	records := lambdaboot.InitDynamo(aws.Config, cfg)

	svc, err := app.Build(context.Background(), cfg, app.Backends{
		Artifacts: artifacts,
		Stories:   records,
		Users:     records,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build services")
	}
	if cfg.OriginVerifySecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set, origin verification disabled")
	}

	handler = httpapi.New(svc.APIDeps()).Handler()

	svc.Describe(lambdaboot.StartupLog("api-lambda", initStart)).
		CommitHash(commitHash).
		Bucket(string(story.ContainerStories), artifacts.Bucket(story.ContainerStories)).
		Bucket(string(story.ContainerImages), artifacts.Bucket(story.ContainerImages)).
		DynamoTable("storyfairy", records.TableName()).
		SSMParam("geminiApiKey", cfg.SSM.GeminiAPIKey).
		SSMParam("openaiApiKey", cfg.SSM.OpenAIAPIKey).
		SSMParam("replicateApiToken", cfg.SSM.ReplicateAPIToken).
		SSMParam("stripeSecretKey", cfg.SSM.StripeSecretKey).
		SSMParam("authJwtSecret", cfg.SSM.AuthJWTSecret).
		Feature("originVerify", cfg.OriginVerifySecret != "").
		Log()
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
