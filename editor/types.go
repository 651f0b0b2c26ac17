// 包 editor 提供统一的图像编辑客户端抽象.
package editor

import (
	"context"
	"time"
)

// EditRequest 代表一次图像编辑请求 。
type EditRequest struct {
	ImageData   string `json:"image_data"`      // base64 载荷，不含媒体类型前缀
	MediaType   string `json:"media_type"`      // 声明的媒体类型，如 image/png
	Instruction string `json:"instruction"`     // 用户原始编辑指令，提交前包装为增强提示词
	Model       string `json:"model,omitempty"` // 为空时使用提供者默认模型
}

// EditResult 代表一次成功编辑的结果.
type EditResult struct {
	URI       string    `json:"uri"`  // data:<mediaType>;base64,<payload>
	MediaType string    `json:"media_type"`
	Data      string    `json:"data"` // 不含前缀的 base64 载荷
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Usage     EditUsage `json:"usage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EditUsage 代表用量统计.
type EditUsage struct {
	PromptTokens    int `json:"prompt_tokens,omitempty"`
	CandidateTokens int `json:"candidate_tokens,omitempty"`
}

// 提供方定义了图像编辑提供者接口.
type Provider interface {
	// Edit 根据指令修改已存在的图像。恰好一次网络往返，不重试。
	Edit(ctx context.Context, req *EditRequest) (*EditResult, error)

	// Name 返回提供者名称。
	Name() string
}
