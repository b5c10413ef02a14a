package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicDefaultModel   = "claude-sonnet-4-5"
)

// Anthropic generates completions with the Messages API.
type Anthropic struct {
	client     anthropic.Client
	httpClient *http.Client
	model      string
	maxTokens  int64
}

// NewAnthropic creates an Anthropic provider. The SDK's automatic retries are
// disabled: a failed call is final for its job.
func NewAnthropic(opts Options) *Anthropic {
	hc := newHTTPClient()
	model := opts.Model
	if model == "" {
		model = anthropicDefaultModel
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(normalizeAnthropicBaseURL(opts.BaseURL)),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(0),
	)

	return &Anthropic{
		client:     client,
		httpClient: hc,
		model:      model,
		maxTokens:  maxTokens,
	}
}

// Complete implements Generator.
func (p *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", wrapErr(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}

// Close releases idle connections.
func (p *Anthropic) Close() {
	p.httpClient.CloseIdleConnections()
}

func normalizeAnthropicBaseURL(apiBase string) string {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	base = strings.TrimSuffix(base, "/v1")
	if base == "" {
		return anthropicDefaultBaseURL
	}
	return base
}
