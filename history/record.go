package history

import "time"

// EditRecord 一次编辑提交的落库记录
// 成功与失败都会落一条，供审计与用量统计使用
type EditRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   string    `gorm:"size:64;not null;index:idx_session" json:"session_id"` // 关联会话
	Provider    string    `gorm:"size:32;not null" json:"provider"`                     // 编辑提供者名称
	Model       string    `gorm:"size:100" json:"model"`                                // 实际使用的模型
	Instruction string    `gorm:"type:text;not null" json:"instruction"`                // 用户原始指令
	Status      string    `gorm:"size:16;not null;index:idx_status" json:"status"`      // succeeded / failed
	ErrorCode   string    `gorm:"size:64" json:"error_code,omitempty"`                  // 失败时的错误码
	SourceBytes int       `gorm:"default:0" json:"source_bytes,omitempty"`              // 源图像字节数（近似）
	ResultBytes int       `gorm:"default:0" json:"result_bytes,omitempty"`              // 结果图像字节数（近似）
	DurationMS  int64     `gorm:"default:0" json:"duration_ms"`                         // 提供者调用耗时（毫秒）
	CreatedAt   time.Time `gorm:"index:idx_created" json:"created_at"`
}

func (EditRecord) TableName() string {
	return "if_edit_records"
}
