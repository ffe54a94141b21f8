// Package llm adapts the remote model providers to one streaming interface.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"jarvis/pkg"

	"github.com/cloudwego/eino/schema"
)

// Common errors
var (
	ErrRateLimited = errors.New("rate limited by provider")
	ErrUnsupported = errors.New("operation not supported by provider")
)

// InlineData is a binary payload sent to or returned by the model
type InlineData struct {
	MIMEType string
	Data     []byte
}

// Base64 returns the payload in standard base64
func (d InlineData) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Data)
}

// DataURI renders the payload as a data: URI
func (d InlineData) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", d.MIMEType, d.Base64())
}

// Message is one turn of model history
type Message struct {
	Role  pkg.Role
	Text  string
	Media []InlineData
}

// TextRequest is a streamed chat completion request
type TextRequest struct {
	System  string
	History []Message
	// Search enables provider-side web grounding where supported
	Search bool
}

// Client is the remote model surface the assistant depends on
type Client interface {
	// StreamText streams response text chunks in arrival order
	StreamText(ctx context.Context, req TextRequest) (*schema.StreamReader[string], error)
	// GenerateImage returns the first inline image, or nil when the model produced none
	GenerateImage(ctx context.Context, prompt string) (*InlineData, error)
	// SynthesizeSpeech returns base64 PCM16 mono 24 kHz audio for text
	SynthesizeSpeech(ctx context.Context, text, voice string) (string, error)
}

var quotaPatterns = []string{
	"429",
	"quota",
	"resource_exhausted",
	"rate limit",
	"too many requests",
}

// IsQuotaError reports whether err means the provider refused for quota or rate limits
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range quotaPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Composite routes text to one client and media generation to another
type Composite struct {
	Text  Client
	Media Client
}

func (c *Composite) StreamText(ctx context.Context, req TextRequest) (*schema.StreamReader[string], error) {
	return c.Text.StreamText(ctx, req)
}

func (c *Composite) GenerateImage(ctx context.Context, prompt string) (*InlineData, error) {
	if c.Media == nil {
		return nil, ErrUnsupported
	}
	return c.Media.GenerateImage(ctx, prompt)
}

func (c *Composite) SynthesizeSpeech(ctx context.Context, text, voice string) (string, error) {
	if c.Media == nil {
		return "", ErrUnsupported
	}
	return c.Media.SynthesizeSpeech(ctx, text, voice)
}

// ReadAll drains a text stream into one string
func ReadAll(stream *schema.StreamReader[string]) (string, error) {
	defer stream.Close()
	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}
