package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/imaging"
	"github.com/BaSui01/imageflow/types"
)

// GeminiProvider implements image editing against the Gemini generateContent
// API using its native multimodal capabilities.
type GeminiProvider struct {
	cfg    GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiProvider creates a new Gemini edit provider. The credential comes
// from the config injected here; it is never read from the environment.
func NewGeminiProvider(cfg GeminiConfig, logger *zap.Logger) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-3-pro-image-preview"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GeminiProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "editor.gemini")),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inlineData,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiEditRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiGenConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiEditResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Edit performs exactly one generateContent round trip: the encoded image and
// the augmented instruction go out, the first inline image part comes back.
func (p *GeminiProvider) Edit(ctx context.Context, req *EditRequest) (*EditResult, error) {
	if req == nil || req.ImageData == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "image payload is required").
			WithHTTPStatus(http.StatusBadRequest)
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = imaging.DefaultMediaType
	}

	body := geminiEditRequest{
		Contents: []geminiContent{
			{
				Parts: []geminiPart{
					{InlineData: &geminiInline{MimeType: mediaType, Data: req.ImageData}},
					{Text: AugmentInstruction(req.Instruction)},
				},
				Role: "user",
			},
		},
		GenerationConfig: &geminiGenConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}

	payload, _ := json.Marshal(body)
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(p.cfg.BaseURL, "/"), model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.cfg.APIKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError(p.Name(), "gemini edit request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, upstreamError(p.Name(), resp.StatusCode, string(errBody))
	}

	var gResp geminiEditResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return nil, transportError(p.Name(), "failed to decode gemini response", err)
	}

	inline := firstInlinePart(&gResp)
	if inline == nil {
		return nil, noImageError(p.Name())
	}

	outType := inline.MimeType
	if outType == "" {
		outType = imaging.DefaultMediaType
	}

	p.logger.Debug("gemini edit complete",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_tokens", gResp.UsageMetadata.PromptTokenCount),
		zap.Int("candidate_tokens", gResp.UsageMetadata.CandidatesTokenCount),
	)

	return &EditResult{
		URI:       imaging.BuildDataURI(outType, inline.Data),
		MediaType: outType,
		Data:      inline.Data,
		Provider:  p.Name(),
		Model:     model,
		Usage: EditUsage{
			PromptTokens:    gResp.UsageMetadata.PromptTokenCount,
			CandidateTokens: gResp.UsageMetadata.CandidatesTokenCount,
		},
		CreatedAt: time.Now(),
	}, nil
}

// firstInlinePart scans response parts in order and returns the first one
// carrying inline image bytes. Later image parts are discarded.
func firstInlinePart(resp *geminiEditResponse) *geminiInline {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return part.InlineData
			}
		}
	}
	return nil
}
