// Package mcptool exposes the story pipeline as an MCP tool so assistants
// can request illustrated stories over stdio.
package mcptool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/pipeline"
	"github.com/fpang/storyfairy/internal/story"
)

const serverName = "storyfairy"

// Generator runs the story pipeline.
type Generator interface {
	Run(ctx context.Context, topic string, opts pipeline.Options) (*pipeline.Result, error)
}

// GenerateStoryInput is the generate_story tool input.
type GenerateStoryInput struct {
	Topic      string `json:"topic" jsonschema:"what the story is about"`
	ImageStyle string `json:"image_style,omitempty" jsonschema:"optional illustration style, e.g. watercolor"`
}

// ImageResult is one stored illustration.
type ImageResult struct {
	SentenceIndex int    `json:"sentence_index" jsonschema:"zero-based sentence the image illustrates"`
	Prompt        string `json:"prompt" jsonschema:"prompt the image was generated from"`
	URL           string `json:"url" jsonschema:"stored image location"`
}

// GenerateStoryResult is the generate_story tool output.
type GenerateStoryResult struct {
	StoryText        string        `json:"story_text" jsonschema:"simplified story text"`
	StoryURL         string        `json:"story_url" jsonschema:"stored simplified text"`
	DetailedStoryURL string        `json:"detailed_story_url" jsonschema:"stored detailed text"`
	Images           []ImageResult `json:"images" jsonschema:"illustrations in sentence order"`
	SkippedIndices   []int         `json:"skipped_indices,omitempty" jsonschema:"sentences without an illustration"`
}

// GenerateStoryTool defines the MCP tool schema.
func GenerateStoryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "generate_story",
		Description: "Write a short story about a topic and illustrate every sentence",
	}
}

// GenerateStoryHandler runs the pipeline for one tool call.
func GenerateStoryHandler(gen Generator, defaultStyle string) mcp.ToolHandlerFor[GenerateStoryInput, GenerateStoryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GenerateStoryInput) (*mcp.CallToolResult, GenerateStoryResult, error) {
		topic, err := story.ValidateTopic(input.Topic)
		if err != nil {
			return nil, GenerateStoryResult{}, err
		}
		style := input.ImageStyle
		if style == "" {
			style = defaultStyle
		}

		res, err := gen.Run(ctx, topic, pipeline.Options{Style: style})
		if err != nil {
			return nil, GenerateStoryResult{}, fmt.Errorf("generate story: %w", err)
		}

		out := GenerateStoryResult{
			StoryText:        res.StoryText,
			StoryURL:         res.StoryURL,
			DetailedStoryURL: res.DetailedStoryURL,
			Images:           make([]ImageResult, len(res.Images)),
			SkippedIndices:   res.Telemetry.SkippedIndices,
		}
		for i, img := range res.Images {
			out.Images[i] = ImageResult{SentenceIndex: img.SentenceIndex, Prompt: img.Prompt, URL: img.URL}
		}
		log.Info().Str("topic", topic).Int("images", len(out.Images)).Msg("MCP story generated")
		return nil, out, nil
	}
}

// NewServer creates an MCP server with the generate_story tool registered.
func NewServer(gen Generator, defaultStyle, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	mcp.AddTool(server, GenerateStoryTool(), GenerateStoryHandler(gen, defaultStyle))
	return server
}

// ServeStdio runs server over stdin/stdout until the client disconnects or
// ctx is cancelled.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
