package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vedanthundare/gurukul-forecast/internal/config"
	"github.com/vedanthundare/gurukul-forecast/internal/logging"
	"github.com/vedanthundare/gurukul-forecast/internal/models"
	"github.com/vedanthundare/gurukul-forecast/internal/services"
	"github.com/vedanthundare/gurukul-forecast/internal/telemetry"
)

func main() {
	input := flag.String("input", "-", "path to a JSON array of {date, value} points, or - for stdin")
	metricType := flag.String("metric-type", "general", "metric type: probability, load or general")
	periods := flag.Int("periods", 7, "number of periods to forecast")
	flag.Parse()

	// Optional .env for local runs.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	ctx := context.Background()
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	series, err := readSeries(*input)
	if err != nil {
		logger.WithError(err).Error("Failed to read input series")
		os.Exit(1)
	}

	selector := services.NewSmartModelSelector(cfg.Forecast, logger)
	result, err := selector.SelectBestModel(ctx, series, models.MetricType(*metricType), *periods)
	if err != nil {
		logger.WithError(err).Error("Model selection failed")
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.WithError(err).Error("Failed to encode result")
		os.Exit(1)
	}
}

// readSeries parses a JSON array of time points from a file or stdin and
// validates it into a TimeSeries.
func readSeries(path string) (*models.TimeSeries, error) {
	var reader io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		reader = f
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var points []models.TimePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}

	return models.NewTimeSeries(points)
}
