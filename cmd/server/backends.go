package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/generation"
	"github.com/phrazzld/scry-chat/internal/imagestore"
	"github.com/phrazzld/scry-chat/internal/platform/gemini"
	"github.com/phrazzld/scry-chat/internal/platform/gradio"
	"github.com/phrazzld/scry-chat/internal/platform/ollama"
	"github.com/phrazzld/scry-chat/internal/platform/openai"
)

// backends are the external collaborators of the chat service.
type backends struct {
	generator  generation.Generator
	images     generation.ImageGenerator
	imageStore generation.ImageStore
}

// newBackends creates the inference, image generation and image storage
// clients selected by cfg.
func newBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backends, error) {
	var (
		b   backends
		err error
	)

	b.generator, err = newGenerator(ctx, cfg.LLM, logger.With("component", "llm_generator"))
	if err != nil {
		return backends{}, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized", "provider", cfg.LLM.Provider)

	b.images, err = gradio.NewClient(cfg.Image, logger)
	if err != nil {
		return backends{}, fmt.Errorf("failed to initialize image generator: %w", err)
	}

	b.imageStore, err = imagestore.NewDir(cfg.Image.Dir, logger)
	if err != nil {
		return backends{}, fmt.Errorf("failed to initialize image store: %w", err)
	}

	return b, nil
}

// newGenerator selects the text inference backend by provider name.
func newGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Generator, error) {
	var (
		gen generation.Generator
		err error
	)
	switch cfg.Provider {
	case "llm7", "openai":
		gen, err = openai.NewGenerator(cfg, logger)
	case "gemini":
		gen, err = gemini.NewGeminiGenerator(ctx, logger, cfg)
	case "ollama":
		gen, err = ollama.NewClient(cfg, logger)
	default:
		err = fmt.Errorf("%w: unsupported provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return gen, nil
}
