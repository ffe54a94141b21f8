package llm

import (
	"context"
	"fmt"
	"strings"

	"jarvis/internal/config"

	"github.com/rs/zerolog"
)

// New builds the client for the configured provider. Gemini serves every
// operation itself; other providers stream text and borrow Gemini for
// images and speech when a media key is configured.
func New(ctx context.Context, cfg config.LLMConfig, logger zerolog.Logger) (Client, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" || provider == "gemini" {
		return NewGenAIClient(ctx, genAIConfig(cfg, cfg.APIKey), logger)
	}

	chatModel, err := NewEinoChatModel(ctx, EinoConfig{
		Provider: provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.TextModel,
	})
	if err != nil {
		return nil, err
	}
	composite := &Composite{Text: NewEinoClient(chatModel, logger)}

	if cfg.MediaAPIKey != "" {
		media, err := NewGenAIClient(ctx, genAIConfig(cfg, cfg.MediaAPIKey), logger)
		if err != nil {
			return nil, fmt.Errorf("error creating media client: %w", err)
		}
		composite.Media = media
	}
	return composite, nil
}

func genAIConfig(cfg config.LLMConfig, apiKey string) GenAIConfig {
	return GenAIConfig{
		APIKey:     apiKey,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
		TTSModel:   cfg.TTSModel,
	}
}
