package editor

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/types"
)

// 双子座Config配置了谷歌双子座图像编辑提供者.
type GeminiConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // gemini-3-pro-image-preview
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// 默认GeminiConfig返回默认双子星编辑配置.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "gemini-3-pro-image-preview",
		Timeout: 120 * time.Second,
	}
}

// OpenAIConfig配置了OpenAI图像编辑供应商.
type OpenAIConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // gpt-image-1
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// 默认 OpenAIConfig 返回默认 OpenAI 编辑配置 。
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL: "https://api.openai.com",
		Model:   "gpt-image-1",
		Timeout: 120 * time.Second,
	}
}

// Config 选择并配置具体的编辑提供者。
type Config struct {
	Provider string       `json:"provider" yaml:"provider"` // gemini | openai
	Gemini   GeminiConfig `json:"gemini" yaml:"gemini"`
	OpenAI   OpenAIConfig `json:"openai" yaml:"openai"`
}

// New 根据配置构造编辑提供者。未知的提供者名称返回错误。
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, types.NewError(types.ErrInvalidCredential, "gemini api key is required")
		}
		return NewGeminiProvider(cfg.Gemini, logger), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, types.NewError(types.ErrInvalidCredential, "openai api key is required")
		}
		return NewOpenAIProvider(cfg.OpenAI, logger), nil
	default:
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown editor provider: %s", cfg.Provider))
	}
}
