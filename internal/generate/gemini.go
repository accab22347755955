package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrEmptyReply indicates the model returned no usable text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Config configures the Gemini generator.
type Config struct {
	APIKey string
	Model  string
	Logger *slog.Logger

	// RateLimiter caps outgoing requests. Nil installs the default
	// limiter; callers that want no limiting pass rate.NewLimiter(rate.Inf, 0).
	RateLimiter *rate.Limiter

	// Retry overrides DefaultRetryConfig when MaxRetries is non-zero.
	Retry RetryConfig
}

func (c Config) validate() error {
	if c.APIKey == "" {
		return errors.New("gemini: API key is required")
	}
	if c.Model == "" {
		return errors.New("gemini: model name is required")
	}
	return nil
}

// Gemini generates replies through the Gemini API with rate limiting and
// exponential backoff on transient failures.
type Gemini struct {
	client      *genai.Client
	model       string
	logger      *slog.Logger
	rateLimiter *rate.Limiter
	retryConfig RetryConfig
}

var _ Generator = (*Gemini)(nil)

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}
	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = DefaultRetryConfig()
	}

	return &Gemini{
		client:      client,
		model:       cfg.Model,
		logger:      logger,
		rateLimiter: rl,
		retryConfig: retryCfg,
	}, nil
}

// Generate sends prompt to the model and returns the reply text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return g.executeWithRetry(ctx, func(ctx context.Context) (string, error) {
		contents := []*genai.Content{
			genai.NewContentFromText(prompt, genai.RoleUser),
		}
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", ErrEmptyReply
		}
		return text, nil
	})
}
