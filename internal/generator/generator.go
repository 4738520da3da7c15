// Package generator talks to the text-generation service.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cexll/agentsdk-go/pkg/model"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stellarlinkco/greetbot/internal/prompt"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
	DefaultTimeout     = 60 * time.Second
)

// ErrEmptyOutput is reported when the service answers with no text.
var ErrEmptyOutput = errors.New("empty completion")

// BackendError wraps any failure of the generation call.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *BackendError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Backend produces raw text for one request.
type Backend interface {
	Generate(ctx context.Context, req prompt.Request) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req prompt.Request) (string, error)

func (f BackendFunc) Generate(ctx context.Context, req prompt.Request) (string, error) {
	return f(ctx, req)
}

// Options configures a ModelBackend.
type Options struct {
	Provider    string // "openai" (default) or "anthropic"
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// NewProvider picks the model provider named by opts.Provider.
func NewProvider(opts Options) model.Provider {
	opts = opts.withDefaults()
	switch opts.Provider {
	case "anthropic":
		return &model.AnthropicProvider{
			APIKey:    opts.APIKey,
			BaseURL:   opts.BaseURL,
			ModelName: opts.Model,
			MaxTokens: opts.MaxTokens,
		}
	default:
		return &model.OpenAIProvider{
			APIKey:    opts.APIKey,
			BaseURL:   opts.BaseURL,
			ModelName: opts.Model,
			MaxTokens: opts.MaxTokens,
		}
	}
}

// ModelBackend sends each request as a single-turn completion.
type ModelBackend struct {
	provider model.Provider
	opts     Options
	log      *zap.Logger
}

func NewModelBackend(provider model.Provider, opts Options, log *zap.Logger) *ModelBackend {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelBackend{provider: provider, opts: opts.withDefaults(), log: log}
}

func (b *ModelBackend) Generate(ctx context.Context, req prompt.Request) (string, error) {
	reqID := uuid.NewString()
	log := b.log.With(zap.String("request_id", reqID))

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	start := time.Now()
	m, err := b.provider.Model(ctx)
	if err != nil {
		log.Error("model init failed", zap.Error(err))
		return "", &BackendError{Op: "init", Err: err}
	}

	temperature := b.opts.Temperature
	resp, err := m.Complete(ctx, model.Request{
		Messages:    []model.Message{{Role: "user", Content: req.User}},
		System:      req.System,
		Model:       b.opts.Model,
		MaxTokens:   b.opts.MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		log.Warn("completion failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", &BackendError{Op: "complete", Err: err}
	}
	if resp == nil {
		return "", &BackendError{Op: "complete", Err: ErrEmptyOutput}
	}

	text := strings.TrimSpace(resp.Message.TextContent())
	if text == "" {
		log.Warn("completion returned no text", zap.String("stop_reason", resp.StopReason))
		return "", &BackendError{Op: "complete", Err: ErrEmptyOutput}
	}

	log.Info("completion done",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)
	return text, nil
}
