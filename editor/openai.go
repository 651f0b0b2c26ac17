package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/imaging"
	"github.com/BaSui01/imageflow/types"
)

// OpenAIProvider使用OpenAI图像编辑接口执行图像编辑.
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// 新OpenAIProvider创建了新的OpenAI编辑提供商.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-image-1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "editor.openai")),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type openaiEditResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

// 编辑修改已存在的图像。恰好一次网络往返，不重试。
func (p *OpenAIProvider) Edit(ctx context.Context, req *EditRequest) (*EditResult, error) {
	if req == nil || req.ImageData == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "image payload is required").
			WithHTTPStatus(http.StatusBadRequest)
	}

	imageBytes, err := imaging.DecodePayload(req.ImageData)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// 按声明的媒体类型命名文件部分
	filename := "image." + imaging.ExtensionForMediaType(req.MediaType)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to build multipart body").WithCause(err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to build multipart body").WithCause(err)
	}

	_ = writer.WriteField("prompt", AugmentInstruction(req.Instruction))
	_ = writer.WriteField("model", model)
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/images/edits",
		&buf)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError(p.Name(), "openai edit request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, upstreamError(p.Name(), resp.StatusCode, string(errBody))
	}

	var oResp openaiEditResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return nil, transportError(p.Name(), "failed to decode openai response", err)
	}

	// 返回首个携带图像字节的条目，后续条目丢弃
	var data string
	for _, d := range oResp.Data {
		if d.B64JSON != "" {
			data = d.B64JSON
			break
		}
	}
	if data == "" {
		return nil, noImageError(p.Name())
	}

	p.logger.Debug("openai edit complete",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
	)

	// 编辑接口总是返回 PNG 字节
	return &EditResult{
		URI:       imaging.BuildDataURI(imaging.DefaultMediaType, data),
		MediaType: imaging.DefaultMediaType,
		Data:      data,
		Provider:  p.Name(),
		Model:     model,
		CreatedAt: time.Now(),
	}, nil
}
