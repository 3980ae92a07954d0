// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Every Lambda in the project needs some subset of: AWS config, S3,
// DynamoDB, SSM secret fetch, and startup logging. This package extracts the
// common init patterns so each Lambda's init() is a short composition of
// helpers.
package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/logging"
	"github.com/fpang/storyfairy/internal/story"
	"github.com/fpang/storyfairy/internal/store"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitArtifacts creates the S3-backed artifact store. Fatals if either
// bucket is not configured.
func InitArtifacts(awsCfg aws.Config, cfg *config.Config) *artifact.S3Store {
	if cfg.StoriesBucket == "" || cfg.ImagesBucket == "" {
		log.Fatal().
			Str("storiesBucket", cfg.StoriesBucket).
			Str("imagesBucket", cfg.ImagesBucket).
			Msg("STORIES_BUCKET_NAME and IMAGES_BUCKET_NAME are required")
	}
	s := artifact.NewS3Store(s3.NewFromConfig(awsCfg), awsCfg.Region, map[story.Container]string{
		story.ContainerStories: cfg.StoriesBucket,
		story.ContainerImages:  cfg.ImagesBucket,
	})
	if cfg.ImagesPublicBaseURL != "" {
		s.WithPublicBase(story.ContainerImages, cfg.ImagesPublicBaseURL)
	}
	return s
}

// InitDynamo creates the DynamoDB store. Fatals if the table is not configured.
func InitDynamo(awsCfg aws.Config, cfg *config.Config) *store.DynamoStore {
	if cfg.TableName == "" {
		log.Fatal().Msg("STORYFAIRY_TABLE_NAME is required")
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName)
}

// ParameterGetter is the SSM call LoadSecrets needs.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadSecrets fills every empty API secret in cfg from its SSM parameter.
// A missing parameter is not fatal: the feature that needs it is disabled
// and the caller logs which ones are enabled. The webhook signing secret is
// loaded separately by the webhook Lambda.
func LoadSecrets(ctx context.Context, client ParameterGetter, cfg *config.Config) {
	secrets := []struct {
		label string
		param string
		dst   *string
	}{
		{"gemini", cfg.SSM.GeminiAPIKey, &cfg.Secrets.GeminiAPIKey},
		{"openai", cfg.SSM.OpenAIAPIKey, &cfg.Secrets.OpenAIAPIKey},
		{"replicate", cfg.SSM.ReplicateAPIToken, &cfg.Secrets.ReplicateAPIToken},
		{"stripe", cfg.SSM.StripeSecretKey, &cfg.Secrets.StripeSecretKey},
		{"authJwt", cfg.SSM.AuthJWTSecret, &cfg.Secrets.AuthJWTSecret},
	}

	for _, s := range secrets {
		if *s.dst != "" || s.param == "" {
			continue
		}
		v, err := LoadSecret(ctx, client, s.param)
		if err != nil {
			log.Warn().Err(err).Str("secret", s.label).Str("param", s.param).Msg("Secret not found in SSM")
			continue
		}
		*s.dst = v
	}
}

// LoadSecret reads one SecureString parameter.
func LoadSecret(ctx context.Context, client ParameterGetter, param string) (string, error) {
	start := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", param, err)
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
	return aws.ToString(result.Parameter.Value), nil
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
