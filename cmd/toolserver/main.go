// Command toolserver hosts the tool registry over SSE: a company status
// lookup backed by search-grounded Gemini and a share value lookup backed by
// the market-data API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/ghostequity/ghostequity/internal/adapter"
	"github.com/ghostequity/ghostequity/internal/config"
	"github.com/ghostequity/ghostequity/internal/marketdata"
	"github.com/ghostequity/ghostequity/internal/provider/gemini"
	"github.com/ghostequity/ghostequity/internal/toolserver"
)

func main() {
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n")
		cfg = config.DefaultConfig()
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable is required")
		os.Exit(1)
	}

	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create Gemini client: %v\n", err)
		os.Exit(1)
	}

	tools := []adapter.Tool{
		adapter.NewStatusAdapter(gemini.NewRealGeminiClient(genaiClient), cfg.Agent.Model),
		adapter.NewPriceAdapter(marketdata.NewClient()),
	}

	srv := toolserver.New("ghostequity-tools", "0.1.0", tools)
	if err := srv.Serve(cfg.Registry.ListenAddress, cfg.Registry.SSEPath); err != nil {
		zlog.Fatal().Err(err).Msg("tool server stopped")
	}
}
