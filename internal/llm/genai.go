package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"jarvis/pkg"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// GenAIConfig configures the Gemini client
type GenAIConfig struct {
	APIKey     string
	TextModel  string
	ImageModel string
	TTSModel   string
}

// GenAIClient talks to the Gemini API for text, images and speech
type GenAIClient struct {
	client *genai.Client
	config GenAIConfig
	logger zerolog.Logger
}

// NewGenAIClient creates a Gemini client
func NewGenAIClient(ctx context.Context, config GenAIConfig, logger zerolog.Logger) (*GenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		client: client,
		config: config,
		logger: logger.With().Str("component", "genai").Logger(),
	}, nil
}

// StreamText starts a streamed generation. Chunks arrive on the returned
// reader in order; a provider failure is delivered as the reader's error.
func (c *GenAIClient) StreamText(ctx context.Context, req TextRequest) (*schema.StreamReader[string], error) {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Search {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	contents := toGenAIContents(req.History)
	c.logger.Debug().
		Str("model", c.config.TextModel).
		Int("history", len(contents)).
		Bool("search", req.Search).
		Msg("Streaming text generation")

	reader, writer := schema.Pipe[string](16)
	go func() {
		defer writer.Close()
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.config.TextModel, contents, config) {
			if err != nil {
				writer.Send("", classifyGenAIError(err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if closed := writer.Send(text, nil); closed {
				return
			}
		}
	}()

	return reader, nil
}

// GenerateImage asks the image model for a picture and returns the first
// inline payload. A response without one yields nil and no error.
func (c *GenAIClient) GenerateImage(ctx context.Context, prompt string) (*InlineData, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.config.ImageModel,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", classifyGenAIError(err))
	}
	return firstInlineData(resp), nil
}

// SynthesizeSpeech renders text with a prebuilt voice. The API returns
// 24 kHz mono PCM16, passed back base64 encoded.
func (c *GenAIClient) SynthesizeSpeech(ctx context.Context, text, voice string) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.TTSModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", classifyGenAIError(err))
	}

	audio := firstInlineData(resp)
	if audio == nil {
		return "", nil
	}
	return audio.Base64(), nil
}

func toGenAIContents(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		var parts []*genai.Part
		if msg.Text != "" {
			parts = append(parts, genai.NewPartFromText(msg.Text))
		}
		for _, media := range msg.Media {
			parts = append(parts, genai.NewPartFromBytes(media.Data, media.MIMEType))
		}
		if len(parts) == 0 {
			continue
		}

		var role genai.Role = genai.RoleUser
		if msg.Role == pkg.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

func firstInlineData(resp *genai.GenerateContentResponse) *InlineData {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &InlineData{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}
			}
		}
	}
	return nil
}

// classifyGenAIError marks HTTP 429 responses with ErrRateLimited
func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}
