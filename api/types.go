package api

import (
	"time"
)

// =============================================================================
// 统一响应信封
// =============================================================================

// Response 统一 API 响应结构
// @Description 所有 JSON 端点共用的响应信封
type Response struct {
	// 请求是否成功
	Success bool `json:"success" example:"true"`
	// 成功时的业务数据
	Data interface{} `json:"data,omitempty"`
	// 失败时的错误信息
	Error *ErrorInfo `json:"error,omitempty"`
	// 响应时间戳
	Timestamp time.Time `json:"timestamp"`
	// 请求追踪 ID
	RequestID string `json:"request_id,omitempty" example:"req-123"`
}

// ErrorInfo 错误信息结构
// @Description 错误详情
type ErrorInfo struct {
	// 错误代码
	Code string `json:"code" example:"INVALID_REQUEST"`
	// 人类可读的错误消息
	Message string `json:"message" example:"instruction must not be blank"`
	// 补充细节
	Details string `json:"details,omitempty"`
	// 请求是否可以重试
	Retryable bool `json:"retryable,omitempty" example:"false"`
	// HTTP 状态码，不序列化到 JSON
	HTTPStatus int `json:"-"`
}

// =============================================================================
// 会话类型
// =============================================================================

// SessionView 会话视图。
// 面向浏览器客户端的会话状态快照，不携带原始图像字节；
// 源图像通过带令牌的 preview_url 获取。
// @Description 会话状态视图
type SessionView struct {
	// 会话 ID
	ID string `json:"id" example:"0b9fa3b2-4a7e-4a6e-9a38-0f1d1c2e3f4a"`
	// 是否已选择源图像
	HasSource bool `json:"has_source" example:"true"`
	// 源图像媒体类型
	SourceMediaType string `json:"source_media_type,omitempty" example:"image/png"`
	// 源图像字节数
	SourceBytes int `json:"source_bytes,omitempty" example:"204800"`
	// 源图像预览地址（含短期媒体令牌）
	PreviewURL string `json:"preview_url,omitempty"`
	// 是否有编辑请求在途
	InFlight bool `json:"in_flight" example:"false"`
	// 最近一次失败的用户可见消息
	LastError string `json:"last_error,omitempty" example:"failed to process image"`
	// 最近一次成功的编辑结果
	Result *EditResultView `json:"result,omitempty"`
	// 创建时间戳
	CreatedAt time.Time `json:"created_at"`
	// 最后更新时间戳
	UpdatedAt time.Time `json:"updated_at"`
}

// EditResultView 编辑结果视图。
// @Description 编辑结果结构
type EditResultView struct {
	// data URI，可直接用作 <img src>
	URI string `json:"uri"`
	// 结果媒体类型
	MediaType string `json:"media_type" example:"image/png"`
	// 处理请求的提供者
	Provider string `json:"provider" example:"gemini"`
	// 实际使用的模型
	Model string `json:"model" example:"gemini-3-pro-image-preview"`
	// 建议的下载文件名
	Filename string `json:"filename" example:"edited-image.png"`
	// 原始字节下载地址（含短期媒体令牌）
	DownloadURL string `json:"download_url,omitempty"`
	// 结果生成时间戳
	CreatedAt time.Time `json:"created_at"`
}

// EditSubmitRequest 编辑提交请求。
// @Description 编辑指令请求体
type EditSubmitRequest struct {
	// 用户编辑指令
	Instruction string `json:"instruction" example:"remove the background" binding:"required"`
}

// =============================================================================
// 历史记录类型
// =============================================================================

// HistoryEntry 一条编辑历史记录。
// @Description 编辑历史记录结构
type HistoryEntry struct {
	// 记录 ID
	ID uint `json:"id" example:"1"`
	// 会话 ID
	SessionID string `json:"session_id" example:"0b9fa3b2-4a7e-4a6e-9a38-0f1d1c2e3f4a"`
	// 编辑提供者
	Provider string `json:"provider" example:"gemini"`
	// 实际使用的模型
	Model string `json:"model,omitempty" example:"gemini-3-pro-image-preview"`
	// 用户原始指令
	Instruction string `json:"instruction" example:"remove the background"`
	// 提交结果（succeeded / failed）
	Status string `json:"status" example:"succeeded"`
	// 失败时的错误码
	ErrorCode string `json:"error_code,omitempty" example:"UPSTREAM_ERROR"`
	// 源图像字节数（近似）
	SourceBytes int `json:"source_bytes,omitempty" example:"204800"`
	// 结果图像字节数（近似）
	ResultBytes int `json:"result_bytes,omitempty" example:"183500"`
	// 提供者调用耗时（毫秒）
	DurationMS int64 `json:"duration_ms" example:"5230"`
	// 记录时间戳
	CreatedAt time.Time `json:"created_at"`
}

// HistoryListResponse 历史记录列表。
// @Description 历史记录列表响应
type HistoryListResponse struct {
	// 记录列表，新记录在前
	Entries []HistoryEntry `json:"entries"`
	// 本次返回的记录数
	Count int `json:"count" example:"2"`
}
