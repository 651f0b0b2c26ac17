package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/history"
	"github.com/BaSui01/imageflow/types"
)

// =============================================================================
// 🧪 HistoryHandler 测试
// =============================================================================

func setupHistoryHandler(t *testing.T) (*HistoryHandler, *history.Repository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	repo, err := history.NewRepository(db, zap.NewNop())
	require.NoError(t, err)

	return NewHistoryHandler(repo, zap.NewNop()), repo
}

func seedHistory(t *testing.T, repo *history.Repository) {
	t.Helper()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*history.EditRecord{
		{SessionID: "sess-a", Provider: "gemini", Model: "gemini-3-pro-image-preview", Instruction: "add a hat", Status: "succeeded", DurationMS: 1200, CreatedAt: base},
		{SessionID: "sess-a", Provider: "gemini", Model: "gemini-3-pro-image-preview", Instruction: "remove the hat", Status: "failed", ErrorCode: "UPSTREAM_ERROR", DurationMS: 800, CreatedAt: base.Add(time.Minute)},
		{SessionID: "sess-b", Provider: "openai", Model: "gpt-image-1", Instruction: "make it night", Status: "succeeded", DurationMS: 3000, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range records {
		require.NoError(t, repo.Save(ctx, rec))
	}
}

func decodeHistoryList(t *testing.T, w *httptest.ResponseRecorder) api.HistoryListResponse {
	t.Helper()

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.True(t, resp.Success)

	dataBytes, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var list api.HistoryListResponse
	require.NoError(t, json.Unmarshal(dataBytes, &list))
	return list
}

func TestHistoryHandler_Disabled(t *testing.T) {
	handler := NewHistoryHandler(nil, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	handler.HandleList(w, r)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrServiceUnavailable), resp.Error.Code)
	assert.Equal(t, "edit history is disabled", resp.Error.Message)
}

func TestHistoryHandler_List(t *testing.T) {
	handler, repo := setupHistoryHandler(t)
	seedHistory(t, repo)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	handler.HandleList(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	list := decodeHistoryList(t, w)
	require.Equal(t, 3, list.Count)
	require.Len(t, list.Entries, 3)

	// 新记录在前
	assert.Equal(t, "make it night", list.Entries[0].Instruction)
	assert.Equal(t, "sess-b", list.Entries[0].SessionID)
	assert.Equal(t, "add a hat", list.Entries[2].Instruction)

	// 失败记录携带错误码
	assert.Equal(t, "UPSTREAM_ERROR", list.Entries[1].ErrorCode)
	assert.Equal(t, "failed", list.Entries[1].Status)
}

func TestHistoryHandler_List_SessionFilter(t *testing.T) {
	handler, repo := setupHistoryHandler(t)
	seedHistory(t, repo)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/history?session_id=sess-a", nil)
	handler.HandleList(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	list := decodeHistoryList(t, w)
	require.Equal(t, 2, list.Count)
	for _, entry := range list.Entries {
		assert.Equal(t, "sess-a", entry.SessionID)
	}
}

func TestHistoryHandler_List_Limit(t *testing.T) {
	handler, repo := setupHistoryHandler(t)
	seedHistory(t, repo)

	tests := []struct {
		name         string
		query        string
		expectedCode int
		expectedLen  int
	}{
		{"limit one", "?limit=1", http.StatusOK, 1},
		{"limit larger than rows", "?limit=50", http.StatusOK, 3},
		{"invalid limit", "?limit=abc", http.StatusBadRequest, 0},
		{"negative limit", "?limit=-1", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/history"+tt.query, nil)
			handler.HandleList(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Len(t, decodeHistoryList(t, w).Entries, tt.expectedLen)
			}
		})
	}
}

func TestHistoryHandler_List_MethodNotAllowed(t *testing.T) {
	handler, _ := setupHistoryHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/history", nil)
	handler.HandleList(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHistoryHandler_EmptyRepository(t *testing.T) {
	handler, _ := setupHistoryHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	handler.HandleList(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	list := decodeHistoryList(t, w)
	assert.Equal(t, 0, list.Count)
	assert.Empty(t, list.Entries)
}
