package handlers

import (
	"net/http"
	"strconv"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/history"
	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🗂️ 历史记录 Handler
// =============================================================================

// HistoryHandler 编辑历史处理器。
// repo 为 nil 表示历史功能未启用，相关端点返回 503。
type HistoryHandler struct {
	repo   *history.Repository
	logger *zap.Logger
}

// NewHistoryHandler 创建历史处理器
func NewHistoryHandler(repo *history.Repository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandleList 查询编辑历史
// @Summary 查询编辑历史
// @Description 返回最近的编辑记录，可按会话过滤
// @Tags 历史
// @Produce json
// @Param limit query int false "返回条数上限（默认 20，最大 100）"
// @Param session_id query string false "按会话过滤"
// @Success 200 {object} Response{data=api.HistoryListResponse} "记录列表"
// @Failure 503 {object} Response "历史功能未启用"
// @Router /v1/history [get]
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	if h.repo == nil {
		WriteErrorMessage(w, r, http.StatusServiceUnavailable, types.ErrServiceUnavailable,
			"edit history is disabled", h.logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "invalid limit", h.logger)
			return
		}
		limit = parsed
	}

	var (
		records []history.EditRecord
		err     error
	)
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		records, err = h.repo.BySession(r.Context(), sessionID, limit)
	} else {
		records, err = h.repo.Recent(r.Context(), limit)
	}
	if err != nil {
		WriteErrorMessage(w, r, http.StatusInternalServerError, types.ErrInternalError,
			"failed to query edit history", h.logger)
		return
	}

	entries := make([]api.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, toHistoryEntry(rec))
	}

	WriteSuccess(w, r, api.HistoryListResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

func toHistoryEntry(rec history.EditRecord) api.HistoryEntry {
	return api.HistoryEntry{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Provider:    rec.Provider,
		Model:       rec.Model,
		Instruction: rec.Instruction,
		Status:      rec.Status,
		ErrorCode:   rec.ErrorCode,
		SourceBytes: rec.SourceBytes,
		ResultBytes: rec.ResultBytes,
		DurationMS:  rec.DurationMS,
		CreatedAt:   rec.CreatedAt,
	}
}
