package provider

import (
	"context"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAI generates completions with the Chat Completions API, or any
// compatible endpoint given as BaseURL.
type OpenAI struct {
	client     openai.Client
	httpClient *http.Client
	model      string
	maxTokens  int64
}

// NewOpenAI creates an OpenAI provider with retries disabled.
func NewOpenAI(opts Options) *OpenAI {
	hc := newHTTPClient()
	model := opts.Model
	if model == "" {
		model = openAIDefaultModel
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAI{
		client:     openai.NewClient(reqOpts...),
		httpClient: hc,
		model:      model,
		maxTokens:  maxTokens,
	}
}

// Complete implements Generator.
func (p *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(p.maxTokens),
	})
	if err != nil {
		return "", wrapErr(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Close releases idle connections.
func (p *OpenAI) Close() {
	p.httpClient.CloseIdleConnections()
}
