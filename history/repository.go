package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/imageflow/session"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Repository 编辑历史仓储，同时充当会话编排器的 Recorder
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ session.Recorder = (*Repository)(nil)

// NewRepository 创建仓储并迁移表结构
func NewRepository(db *gorm.DB, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.AutoMigrate(&EditRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate edit records: %w", err)
	}

	return &Repository{
		db:     db,
		logger: logger.With(zap.String("component", "history")),
	}, nil
}

// Save 保存一条编辑记录
func (r *Repository) Save(ctx context.Context, record *EditRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("save edit record: %w", err)
	}
	return nil
}

// RecordEdit 实现 session.Recorder，把提交结果转为落库记录
func (r *Repository) RecordEdit(ctx context.Context, outcome session.Outcome) error {
	record := &EditRecord{
		SessionID:   outcome.SessionID,
		Provider:    outcome.Provider,
		Model:       outcome.Model,
		Instruction: outcome.Instruction,
		Status:      outcome.Status,
		ErrorCode:   outcome.ErrorCode,
		SourceBytes: outcome.SourceBytes,
		ResultBytes: outcome.ResultBytes,
		DurationMS:  outcome.Duration.Milliseconds(),
		CreatedAt:   outcome.CreatedAt,
	}
	return r.Save(ctx, record)
}

// BySession 按会话查询记录，新记录在前
func (r *Repository) BySession(ctx context.Context, sessionID string, limit int) ([]EditRecord, error) {
	var records []EditRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(clampLimit(limit)).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query edit records by session: %w", err)
	}
	return records, nil
}

// Recent 查询最近的记录，新记录在前
func (r *Repository) Recent(ctx context.Context, limit int) ([]EditRecord, error) {
	var records []EditRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(clampLimit(limit)).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query recent edit records: %w", err)
	}
	return records, nil
}

// Count 统计编辑记录总数
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&EditRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count edit records: %w", err)
	}
	return count, nil
}

// Purge 删除早于截止时间的记录，返回删除条数
func (r *Repository) Purge(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&EditRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge edit records: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		r.logger.Info("purged edit records",
			zap.Int64("deleted", result.RowsAffected),
			zap.Time("before", before),
		)
	}
	return result.RowsAffected, nil
}

// Ping 检查数据库连通性，供就绪探针使用
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats 返回底层连接池统计，供指标采集使用
func (r *Repository) Stats() (sql.DBStats, error) {
	sqlDB, err := r.db.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Stats(), nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
