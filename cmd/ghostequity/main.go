// Command ghostequity analyzes a scanned share certificate: it extracts the
// certificate fields with a vision model, verifies the issuing company
// through the tool registry, and prints a valuation report.
package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/ghostequity/ghostequity/internal/app"
	"github.com/ghostequity/ghostequity/internal/config"
	"github.com/ghostequity/ghostequity/internal/extract"
	"github.com/ghostequity/ghostequity/internal/orchestrator"
	"github.com/ghostequity/ghostequity/internal/provider/gemini"
	"github.com/ghostequity/ghostequity/internal/report"
	"github.com/ghostequity/ghostequity/internal/ui"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if os.Getenv("GHOSTEQUITY_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <certificate-image>\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	imagePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n")
		cfg = config.DefaultConfig()
	}

	if err := run(cfg, imagePath); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, imagePath string) error {
	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read image: %v\n", err)
		return err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable is required")
		return fmt.Errorf("missing API key")
	}

	ctx := context.Background()
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create Gemini client: %v\n", err)
		return err
	}
	client := gemini.NewRealGeminiClient(genaiClient)

	extractor := extract.New(client, cfg.Extractor.Model)
	agent := orchestrator.New(
		gemini.New(client, cfg.Agent.Model),
		orchestrator.Options{
			MaxRounds:   cfg.Agent.MaxRounds,
			CallTimeout: cfg.CallTimeout(),
			Temperature: cfg.Agent.Temperature,
		},
	)
	pipeline := app.New(extractor, agent, cfg.SSEURL())

	output, runErr := ui.Run(pipeline, report.NewRenderer(0), imageBytes, mimeType)
	if output != "" {
		fmt.Println(output)
	}
	return runErr
}
