package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/story"
)

// ResolveOutputDir creates dirPath if needed and returns its absolute
// path. Exits fatally on failure.
func ResolveOutputDir(dirPath string) string {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to create output directory")
	}
	info, err := os.Stat(dirPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to access output directory")
	}
	if !info.IsDir() {
		log.Fatal().Str("path", dirPath).Msg("Output path is not a directory")
	}

	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		dirPath = absPath
	}

	return dirPath
}

// HandleGenerateError exits with a message matched to the failure.
func HandleGenerateError(err error) {
	switch {
	case errors.Is(err, story.ErrValidation):
		log.Fatal().Err(err).Msg("Invalid topic")
	case errors.Is(err, story.ErrNoProviderSucceeded):
		switch story.KindOf(err) {
		case story.KindAuth:
			log.Fatal().Err(err).Msg("No text provider accepted its credentials. Check GEMINI_API_KEY / OPENAI_API_KEY or ~/.storyfairy/credentials.gpg")
		case story.KindQuota:
			log.Fatal().Err(err).Msg("Provider quota exceeded. Please try again later or check your usage limits")
		case story.KindNetwork:
			log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
		default:
			log.Fatal().Err(err).Msg("Story generation failed")
		}
	case errors.Is(err, story.ErrPersistence):
		log.Fatal().Err(err).Msg("Failed to write story files")
	default:
		log.Fatal().Err(err).Msg("Unexpected error during story generation")
	}
	os.Exit(1)
}
