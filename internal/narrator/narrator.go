// Package narrator provides the free-text generation backends the engine asks
// for location descriptions and suggestions, plus decorators that bound,
// cache, and select them.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hinterland/internal/config"
)

// ErrEmptyResponse is returned when a provider answers with no usable text.
var ErrEmptyResponse = errors.New("narrator returned an empty response")

// Narrator turns a prompt into prose.
//
// Implementations MUST be safe for concurrent use.
type Narrator interface {
	// Request blocks until the provider answers, fails, or ctx is done.
	//
	// Postcondition: Returns non-empty text or a non-nil error.
	Request(ctx context.Context, prompt string) (string, error)
}

// Func adapts an ordinary function to the Narrator interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Request calls f.
func (f Func) Request(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

// nonEmpty trims text and maps blank output to ErrEmptyResponse.
func nonEmpty(provider, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", provider, ErrEmptyResponse)
	}
	return text, nil
}

type timeoutNarrator struct {
	next    Narrator
	timeout time.Duration
}

// WithTimeout bounds every request made through next by d. A d of zero or less
// returns next unchanged, so requests block until the provider answers.
func WithTimeout(next Narrator, d time.Duration) Narrator {
	if d <= 0 {
		return next
	}
	return &timeoutNarrator{next: next, timeout: d}
}

func (t *timeoutNarrator) Request(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Request(ctx, prompt)
}

// FromConfig builds the configured provider, wrapped in the Redis response cache
// when caching is enabled and in the request timeout. The returned close
// function releases the Redis client, if any.
//
// Precondition: cfg must have passed config.Validate.
// Postcondition: Returns a usable Narrator or a non-nil error.
func FromConfig(cfg config.NarratorConfig, cacheCfg config.CacheConfig, logger *zap.Logger) (Narrator, func() error, error) {
	var provider Narrator
	switch cfg.Provider {
	case "anthropic":
		provider = NewAnthropic(cfg.APIKey, cfg.Model, cfg.MaxTokens)
	case "kobold":
		provider = NewKobold(cfg.BaseURL, cfg.MaxTokens)
	case "static":
		provider = NewStatic()
	default:
		return nil, nil, fmt.Errorf("unknown narrator provider %q", cfg.Provider)
	}
	logger.Info("narrator configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
		zap.Bool("cache", cacheCfg.Enabled),
	)

	n := WithTimeout(provider, cfg.Timeout)
	closeFn := func() error { return nil }
	if cacheCfg.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cacheCfg.Addr, DB: cacheCfg.DB})
		n = NewCache(n, client, cacheCfg.TTL, cacheCfg.Prefix, logger)
		closeFn = client.Close
	}
	return n, closeFn, nil
}
