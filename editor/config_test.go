package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/types"
)

func TestNew_SelectsProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  types.ErrorCode
	}{
		{
			name:     "default is gemini",
			cfg:      Config{Gemini: GeminiConfig{APIKey: "k"}},
			wantName: "gemini",
		},
		{
			name:     "explicit gemini",
			cfg:      Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "k"}},
			wantName: "gemini",
		},
		{
			name:     "openai",
			cfg:      Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k"}},
			wantName: "openai",
		},
		{
			name:     "case insensitive",
			cfg:      Config{Provider: "OpenAI", OpenAI: OpenAIConfig{APIKey: "k"}},
			wantName: "openai",
		},
		{
			name:    "gemini without key",
			cfg:     Config{Provider: "gemini"},
			wantErr: types.ErrInvalidCredential,
		},
		{
			name:    "openai without key",
			cfg:     Config{Provider: "openai"},
			wantErr: types.ErrInvalidCredential,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "stability"},
			wantErr: types.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, zap.NewNop())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, types.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestDefaultConfigs(t *testing.T) {
	t.Parallel()

	g := DefaultGeminiConfig()
	assert.Equal(t, "gemini-3-pro-image-preview", g.Model)
	assert.NotZero(t, g.Timeout)

	o := DefaultOpenAIConfig()
	assert.Equal(t, "gpt-image-1", o.Model)
	assert.Equal(t, "https://api.openai.com", o.BaseURL)
}
