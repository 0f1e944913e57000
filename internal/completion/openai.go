package completion

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/errors"
)

type openAIConfig struct {
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// OpenAIOption configures a new OpenAIClient instance.
type OpenAIOption func(*openAIConfig)

// WithModel overrides DefaultModel.
func WithModel(model string) OpenAIOption {
	return func(cfg *openAIConfig) {
		if strings.TrimSpace(model) != "" {
			cfg.model = model
		}
	}
}

// WithBaseURL points the client at a compatible endpoint other than api.openai.com.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openAIConfig) {
		cfg.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithRequestTimeout bounds each request. Zero keeps the transport default.
func WithRequestTimeout(timeout time.Duration) OpenAIOption {
	return func(cfg *openAIConfig) {
		cfg.timeout = timeout
	}
}

func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(cfg *openAIConfig) {
		cfg.httpClient = client
	}
}

// OpenAIClient implements Client on top of the OpenAI Chat Completions API.
type OpenAIClient struct {
	logger  *zap.Logger
	model   string
	options []option.RequestOption
}

// NewOpenAIClient builds a client. The credential is not part of the client:
// it is supplied on every Complete call and never retained.
func NewOpenAIClient(logger *zap.Logger, opts ...OpenAIOption) *OpenAIClient {
	cfg := &openAIConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(cfg)
	}

	// Retries are disabled: a failed step must surface the first error as is.
	requestOptions := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		requestOptions = append(requestOptions, option.WithRequestTimeout(cfg.timeout))
	}
	if cfg.httpClient != nil {
		requestOptions = append(requestOptions, option.WithHTTPClient(cfg.httpClient))
	}

	return &OpenAIClient{
		logger:  logger,
		model:   cfg.model,
		options: requestOptions,
	}
}

// Model returns the model identifier sent with every request.
func (c *OpenAIClient) Model() string {
	return c.model
}

func (c *OpenAIClient) Complete(ctx context.Context, credential string, messages []Message) (string, error) {
	params, err := c.buildParams(messages)
	if err != nil {
		return "", err
	}

	client := openai.NewClient(append(slices.Clip(c.options), option.WithAPIKey(credential))...)

	c.logger.Debug("Sending chat completion request",
		zap.String("model", c.model),
		zap.Int("messages", len(messages)))

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		classified := classify(err)
		c.logger.Debug("Chat completion request failed",
			zap.String("errorKind", errors.Code(classified)),
			zap.Error(err))
		return "", classified
	}

	if len(completion.Choices) == 0 {
		c.logger.Debug("Chat completion returned no choices")
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) buildParams(messages []Message) (openai.ChatCompletionNewParams, error) {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case RoleUser:
			converted = append(converted, openai.UserMessage(m.Content))
		case RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			return openai.ChatCompletionNewParams{}, errors.NewValidationError(fmt.Sprintf("unsupported message role %q", m.Role))
		}
	}

	return openai.ChatCompletionNewParams{
		Messages: converted,
		Model:    openai.ChatModel(c.model),
	}, nil
}

// classify maps SDK failures onto the error taxonomy. Anything that is not an
// API error response never reached a well-formed answer and counts as transport.
func classify(err error) error {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return errors.NewAuthenticationError(err)
		}
		return errors.NewServiceError(apiErr.StatusCode, err)
	}
	return errors.NewTransportError(err)
}
