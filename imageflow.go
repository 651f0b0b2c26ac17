// Package imageflow provides a top-level convenience entry point for running
// the session-based image editing pipeline in process, without the HTTP layer.
//
// Usage:
//
//	import "github.com/BaSui01/imageflow"
//
//	m, err := imageflow.New(imageflow.WithGemini())
//	m, err := imageflow.New(imageflow.WithOpenAI(), imageflow.WithModel("gpt-image-1"))
//	m, err := imageflow.New(imageflow.WithProvider(myProvider))
//
//	sess, _ := m.Create(ctx)
//	sess, _ = m.SelectImage(ctx, sess.ID, imageBytes, "image/png")
//	sess, _ = m.SubmitEdit(ctx, sess.ID, "remove the background")
//	blob, name, _ := m.Download(ctx, sess.ID)
//
// The default session store is in-memory with background expiry sweeping;
// pass [WithStore] to control the store's lifecycle yourself.
package imageflow

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/editor"
	"github.com/BaSui01/imageflow/session"
)

// Option configures the pipeline created by [New].
type Option func(*options)

type options struct {
	provider editor.Provider
	store    session.Store
	logger   *zap.Logger
	model    string

	// Provider shortcut fields, used when provider is nil.
	providerName string
	apiKey       string

	maxPayloadBytes int
}

// WithProvider sets a pre-built editing provider.
func WithProvider(p editor.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithGemini selects the Gemini image editing provider.
// API key is read from the GEMINI_API_KEY environment variable.
func WithGemini() Option {
	return func(o *options) {
		o.providerName = "gemini"
		if o.apiKey == "" {
			o.apiKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

// WithOpenAI selects the OpenAI image editing provider.
// API key is read from the OPENAI_API_KEY environment variable.
func WithOpenAI() Option {
	return func(o *options) {
		o.providerName = "openai"
		if o.apiKey == "" {
			o.apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// WithAPIKey overrides the API key for provider shortcuts (WithGemini, WithOpenAI).
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithModel overrides the model used by provider shortcuts.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithStore sets the session store. Defaults to an in-memory store with the
// default TTL and sweep interval.
func WithStore(store session.Store) Option {
	return func(o *options) { o.store = store }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxPayloadBytes caps the source image size accepted by SelectImage.
func WithMaxPayloadBytes(n int) Option {
	return func(o *options) { o.maxPayloadBytes = n }
}

// New creates a [session.Manager] with minimal configuration.
// At minimum, a provider must be specified via [WithGemini], [WithOpenAI],
// or [WithProvider].
func New(opts ...Option) (*session.Manager, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// Resolve provider.
	p := o.provider
	if p == nil {
		if o.providerName == "" {
			return nil, fmt.Errorf("provider is required: use WithProvider, WithGemini, or WithOpenAI")
		}
		if o.apiKey == "" {
			return nil, fmt.Errorf("API key is required for %s: set the environment variable or use WithAPIKey", o.providerName)
		}

		cfg := editor.Config{
			Provider: o.providerName,
			Gemini:   editor.DefaultGeminiConfig(),
			OpenAI:   editor.DefaultOpenAIConfig(),
		}
		cfg.Gemini.APIKey = o.apiKey
		cfg.OpenAI.APIKey = o.apiKey
		if o.model != "" {
			cfg.Gemini.Model = o.model
			cfg.OpenAI.Model = o.model
		}

		var err error
		p, err = editor.New(cfg, o.logger)
		if err != nil {
			return nil, fmt.Errorf("create %s provider: %w", o.providerName, err)
		}
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.store == nil {
		o.store = session.NewMemoryStore(0, 0)
	}

	cfg := session.ManagerConfig{MaxPayloadBytes: o.maxPayloadBytes}
	return session.NewManager(cfg, o.store, p, o.logger), nil
}
