package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/model"
)

// Classifier implements service.Classifier on top of a Generator.
type Classifier struct {
	generator Generator
	logger    *slog.Logger
	config    Config
}

// Config holds configuration for the classifier and its Gemini generator.
type Config struct {
	APIKey           string
	Model            string
	BaseURL          string
	Timeout          time.Duration
	MaxOutputTokens  int
	Temperature      float32
	StrictCategories bool
}

// DefaultConfig returns the generation settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Model:           "gemini-2.0-flash-lite",
		Temperature:     0.1,
		MaxOutputTokens: 500,
		Timeout:         30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = defaults.MaxOutputTokens
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	return c
}

// NewClassifier creates a classifier that sends prompts through gen.
func NewClassifier(cfg Config, gen Generator, logger *slog.Logger) (*Classifier, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		generator: gen,
		logger:    logger,
		config:    cfg.withDefaults(),
	}, nil
}

// Classify implements service.Classifier.
func (c *Classifier) Classify(ctx context.Context, rawText string) (model.ClassificationResult, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := c.generator.Generate(ctx, BuildPrompt(rawText))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		if !errors.Is(err, common.ErrUpstreamCall) {
			err = fmt.Errorf("%w: %w", common.ErrUpstreamCall, err)
		}
		c.logger.Warn("generation failed", "error", err, "duration", time.Since(start))
		return model.ClassificationResult{}, err
	}

	c.logger.Debug("raw model reply", "reply", reply, "duration", time.Since(start))

	result, err := parseReply(reply, c.config.StrictCategories)
	if err != nil {
		c.logger.Warn("rejected model reply", "error", err, "reply", reply)
		return model.ClassificationResult{}, err
	}

	c.logger.Info("classified transaction",
		"type", result.Type,
		"category", result.Data.Category,
		"confidence", result.Confidence)

	return result, nil
}
