package llm

import (
	"context"
	"fmt"
	"strings"

	"jarvis/pkg"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// EinoConfig selects an eino chat model provider
type EinoConfig struct {
	Provider string // openai, ollama, deepseek, ark
	APIKey   string
	BaseURL  string
	Model    string
}

// EinoClient streams text through any eino chat model. It cannot produce
// images or speech.
type EinoClient struct {
	model  model.BaseChatModel
	logger zerolog.Logger
}

// NewEinoChatModel builds the chat model for config.Provider
func NewEinoChatModel(ctx context.Context, config EinoConfig) (model.BaseChatModel, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)

	switch strings.ToLower(config.Provider) {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   config.Model,
		})
	case "ollama":
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		chatModel, err = ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   config.Model,
		})
	case "deepseek":
		chatModel, err = deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   config.Model,
		})
	case "ark":
		chatModel, err = ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   config.Model,
		})
	default:
		return nil, fmt.Errorf("unknown chat model provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating %s chat model: %w", config.Provider, err)
	}
	return chatModel, nil
}

// NewEinoClient wraps an eino chat model
func NewEinoClient(chatModel model.BaseChatModel, logger zerolog.Logger) *EinoClient {
	return &EinoClient{
		model:  chatModel,
		logger: logger.With().Str("component", "eino").Logger(),
	}
}

// StreamText converts the request to eino messages and streams the reply content
func (c *EinoClient) StreamText(ctx context.Context, req TextRequest) (*schema.StreamReader[string], error) {
	messages := toSchemaMessages(req)
	c.logger.Debug().Int("messages", len(messages)).Msg("Streaming text generation")

	stream, err := c.model.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("error streaming chat model: %w", err)
	}

	return schema.StreamReaderWithConvert(stream, func(msg *schema.Message) (string, error) {
		if msg == nil || msg.Content == "" {
			return "", schema.ErrNoValue
		}
		return msg.Content, nil
	}), nil
}

func (c *EinoClient) GenerateImage(ctx context.Context, prompt string) (*InlineData, error) {
	return nil, ErrUnsupported
}

func (c *EinoClient) SynthesizeSpeech(ctx context.Context, text, voice string) (string, error) {
	return "", ErrUnsupported
}

func toSchemaMessages(req TextRequest) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.History)+1)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}

	for _, msg := range req.History {
		if msg.Role == pkg.RoleModel {
			messages = append(messages, schema.AssistantMessage(msg.Text, nil))
			continue
		}
		if len(msg.Media) == 0 {
			messages = append(messages, schema.UserMessage(msg.Text))
			continue
		}

		parts := make([]schema.ChatMessagePart, 0, len(msg.Media)+1)
		if msg.Text != "" {
			parts = append(parts, schema.ChatMessagePart{Type: schema.ChatMessagePartTypeText, Text: msg.Text})
		}
		for _, media := range msg.Media {
			parts = append(parts, mediaPart(media))
		}
		messages = append(messages, &schema.Message{Role: schema.User, MultiContent: parts})
	}
	return messages
}

func mediaPart(media InlineData) schema.ChatMessagePart {
	uri := media.DataURI()
	switch {
	case strings.HasPrefix(media.MIMEType, "audio/"):
		return schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeAudioURL,
			AudioURL: &schema.ChatMessageAudioURL{URL: uri, MIMEType: media.MIMEType},
		}
	case strings.HasPrefix(media.MIMEType, "video/"):
		return schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeVideoURL,
			VideoURL: &schema.ChatMessageVideoURL{URL: uri, MIMEType: media.MIMEType},
		}
	default:
		return schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{URL: uri, MIMEType: media.MIMEType},
		}
	}
}
