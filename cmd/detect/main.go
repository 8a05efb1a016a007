package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spacesedan/narratives/config"
	"github.com/spacesedan/narratives/internal/clustering"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/spacesedan/narratives/internal/narrative"
	"github.com/spacesedan/narratives/internal/pipeline"
	"github.com/spacesedan/narratives/internal/processing"
	"github.com/spacesedan/narratives/internal/sentiment"
)

// detect runs the engine once over a JSON array of items and prints the
// narratives it finds. Reads stdin when no file is given.
func main() {
	input := flag.String("in", "", "items JSON file (default stdin)")
	normalize := flag.Bool("normalize", false, "clean and dedupe items before analysis")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *input == "" && flag.NArg() > 0 {
		*input = flag.Arg(0)
	}

	config.LoadEnv(os.Getenv("APP_ENV"))
	logger := logging.New(os.Stderr, logging.ParseLevel(*level))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("[Detect] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	items, err := readItems(*input)
	if err != nil {
		logger.Error("[Detect] Failed to read items", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *normalize {
		items = processing.NewNormalizer(logger).Normalize(items)
	}

	engine := pipeline.NewEngine(
		sentiment.NewScorer(logger),
		clustering.NewClusterer(cfg.Detection.Clustering(), logger),
		narrative.NewDetector(cfg.Detection.Narrative(), logger),
		logger,
	)
	res := engine.Run(items)
	if res.Err != nil {
		logger.Error("[Detect] Detection failed", slog.String("error", res.Err.Error()))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Narratives); err != nil {
		logger.Error("[Detect] Failed to write output", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func readItems(path string) ([]models.Item, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var items []models.Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}
