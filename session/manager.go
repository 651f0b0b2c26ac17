package session

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/editor"
	"github.com/BaSui01/imageflow/imaging"
	"github.com/BaSui01/imageflow/internal/telemetry"
	"github.com/BaSui01/imageflow/types"
)

// =============================================================================
// 🎯 会话编排器
// =============================================================================

const (
	// DownloadBaseName 下载文件名的固定主干，扩展名由结果媒体类型推导
	DownloadBaseName = "edited-image"

	// DefaultMaxPayloadBytes 源图像载荷上限
	DefaultMaxPayloadBytes = 8 << 20

	// fallbackUserMessage 无法归类的编辑失败展示的兜底文案
	fallbackUserMessage = "failed to process image"
)

// ManagerConfig 编排器配置
type ManagerConfig struct {
	// 源图像载荷上限（字节），0 表示使用默认值
	MaxPayloadBytes int `yaml:"max_payload_bytes" json:"max_payload_bytes"`
}

// DefaultManagerConfig 返回默认编排器配置
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{MaxPayloadBytes: DefaultMaxPayloadBytes}
}

// Manager drives the session state machine: image selection, the in-flight
// guard around a single pending edit, preview token rotation and result
// download. All mutations of one session are serialized through the manager.
type Manager struct {
	config   ManagerConfig
	store    Store
	provider editor.Provider
	recorder Recorder
	logger   *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewManager 创建会话编排器
func NewManager(config ManagerConfig, store Store, provider editor.Provider, logger *zap.Logger) *Manager {
	if config.MaxPayloadBytes <= 0 {
		config.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		config:   config,
		store:    store,
		provider: provider,
		logger:   logger.With(zap.String("component", "session")),
		inFlight: make(map[string]struct{}),
	}
}

// WithRecorder 挂接编辑结果记录器（可选）
func (m *Manager) WithRecorder(r Recorder) *Manager {
	m.recorder = r
	return m
}

// =============================================================================
// 📋 会话生命周期
// =============================================================================

// Create starts an empty session: no source, no result, no preview token.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	m.logger.Info("session created", zap.String("session_id", sess.ID))
	return sess, nil
}

// Get returns the current session state. The in-flight map is authoritative;
// the stored flag is only the persisted view.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.submitting(id) {
		sess.InFlight = true
	}
	return sess, nil
}

// Delete removes the session. Rejected while an edit is in flight.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.inFlight[id]; busy {
		return editInFlightError()
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}

	m.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Count reports the number of live sessions, for gauges and readiness.
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.store.Len(ctx)
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// =============================================================================
// 🖼️ 图像选择与预览
// =============================================================================

// SelectImage replaces the session's source image. The preview token is
// rotated so handles to the previous image stop resolving, and any earlier
// result or error is discarded. Rejected while an edit is in flight.
func (m *Manager) SelectImage(ctx context.Context, id string, data []byte, mediaType string) (*Session, error) {
	if len(data) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "no image selected").
			WithHTTPStatus(http.StatusBadRequest)
	}
	if len(data) > m.config.MaxPayloadBytes {
		return nil, types.NewError(types.ErrPayloadTooLarge, "image exceeds the maximum allowed size").
			WithHTTPStatus(http.StatusRequestEntityTooLarge)
	}
	if mediaType == "" {
		mediaType = imaging.DefaultMediaType
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.inFlight[id]; busy {
		return nil, editInFlightError()
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.Source = &imaging.Blob{MediaType: mediaType, Data: data}
	sess.PreviewToken = uuid.NewString()
	sess.Result = nil
	sess.LastError = ""
	sess.InFlight = false
	sess.UpdatedAt = time.Now().UTC()

	if err := m.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	m.logger.Info("image selected",
		zap.String("session_id", id),
		zap.String("media_type", mediaType),
		zap.Int("bytes", len(data)),
	)
	return sess, nil
}

// Preview returns the current source image if the token still matches.
// A token from before the last SelectImage resolves to 410 Gone.
func (m *Manager) Preview(ctx context.Context, id, token string) (*imaging.Blob, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.HasSource() {
		return nil, types.NewError(types.ErrInvalidRequest, "no image selected").
			WithHTTPStatus(http.StatusBadRequest)
	}
	if token == "" || token != sess.PreviewToken {
		return nil, types.NewError(types.ErrForbidden, "preview token is no longer valid").
			WithHTTPStatus(http.StatusGone)
	}
	return sess.Source, nil
}

// =============================================================================
// ✨ 编辑提交
// =============================================================================

// SubmitEdit runs one edit through the configured provider. Validation
// happens before any state change; the in-flight guard admits at most one
// submission per session and is always cleared, success or failure. The
// provider call runs outside the manager lock.
//
// On failure the session stores a user-facing message and the error is also
// returned to the caller.
func (m *Manager) SubmitEdit(ctx context.Context, id, instruction string) (*Session, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "instruction must not be blank").
			WithHTTPStatus(http.StatusBadRequest)
	}

	req, err := m.beginSubmit(ctx, id, instruction)
	if err != nil {
		return nil, err
	}

	editCtx, span := telemetry.StartSpan(ctx, "editor.edit",
		attribute.String("session_id", id),
		attribute.String("provider", m.provider.Name()),
	)
	start := time.Now()
	result, editErr := m.provider.Edit(editCtx, req)
	duration := time.Since(start)
	telemetry.EndSpan(span, editErr)

	sess, applyErr := m.finishSubmit(ctx, id, result, editErr)

	outcome := Outcome{
		SessionID:   id,
		Provider:    m.provider.Name(),
		Instruction: instruction,
		Status:      StatusSucceeded,
		SourceBytes: base64.StdEncoding.DecodedLen(len(req.ImageData)),
		Duration:    duration,
		CreatedAt:   time.Now().UTC(),
	}
	if result != nil {
		outcome.Model = result.Model
		outcome.ResultBytes = base64.StdEncoding.DecodedLen(len(result.Data))
	}
	if editErr != nil {
		outcome.Status = StatusFailed
		outcome.ErrorCode = string(types.GetErrorCode(editErr))
	}
	m.record(ctx, outcome)

	if editErr != nil {
		m.logger.Warn("edit failed",
			zap.String("session_id", id),
			zap.String("provider", outcome.Provider),
			zap.Duration("duration", duration),
			traceField(ctx),
			zap.Error(editErr),
		)
		return nil, editErr
	}
	if applyErr != nil {
		return nil, applyErr
	}

	m.logger.Info("edit completed",
		zap.String("session_id", id),
		zap.String("provider", outcome.Provider),
		zap.String("model", outcome.Model),
		zap.Duration("duration", duration),
		traceField(ctx),
	)
	return sess, nil
}

// traceField 返回请求上下文中的 trace ID 日志字段，缺失时为 no-op
func traceField(ctx context.Context) zap.Field {
	if tid, ok := types.TraceID(ctx); ok {
		return zap.String("trace_id", tid)
	}
	return zap.Skip()
}

// Download returns the decoded result blob and the filename to serve it
// under: the fixed base name plus an extension derived from the result's
// media type.
func (m *Manager) Download(ctx context.Context, id string) (*imaging.Blob, string, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if sess.Result == nil || sess.Result.Data == "" {
		return nil, "", types.NewError(types.ErrNoResult, "no edited image available").
			WithHTTPStatus(http.StatusNotFound)
	}

	data, err := imaging.DecodePayload(sess.Result.Data)
	if err != nil {
		return nil, "", err
	}

	mediaType := sess.Result.MediaType
	if mediaType == "" {
		mediaType = imaging.MediaTypeFromURI(sess.Result.URI)
	}
	name := DownloadBaseName + "." + imaging.ExtensionForMediaType(mediaType)

	return &imaging.Blob{MediaType: mediaType, Data: data}, name, nil
}

// =============================================================================
// 🔧 内部实现
// =============================================================================

// beginSubmit admits the submission under the manager lock: it checks the
// guard, snapshots the source into an edit request and marks the session
// in flight.
func (m *Manager) beginSubmit(ctx context.Context, id, instruction string) (*editor.EditRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.inFlight[id]; busy {
		return nil, editInFlightError()
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.HasSource() {
		return nil, types.NewError(types.ErrInvalidRequest, "no image selected").
			WithHTTPStatus(http.StatusBadRequest)
	}

	payload, err := imaging.EncodeBytes(sess.Source.Data)
	if err != nil {
		return nil, err
	}

	sess.InFlight = true
	sess.UpdatedAt = time.Now().UTC()
	if err := m.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	m.inFlight[id] = struct{}{}

	return &editor.EditRequest{
		ImageData:   payload,
		MediaType:   sess.Source.MediaType,
		Instruction: instruction,
	}, nil
}

// finishSubmit settles the session after the provider call and clears the
// in-flight guard, whatever happened.
func (m *Manager) finishSubmit(ctx context.Context, id string, result *editor.EditResult, editErr error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer delete(m.inFlight, id)

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		// 会话在编辑期间过期，结果只能丢弃
		m.logger.Warn("session vanished during edit", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}

	if editErr != nil {
		sess.LastError = userMessage(editErr)
	} else {
		sess.Result = result
		sess.LastError = ""
	}
	sess.InFlight = false
	sess.UpdatedAt = time.Now().UTC()

	if err := m.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) submitting(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.inFlight[id]
	return busy
}

func (m *Manager) record(ctx context.Context, outcome Outcome) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordEdit(ctx, outcome); err != nil {
		m.logger.Warn("failed to record edit outcome",
			zap.String("session_id", outcome.SessionID),
			zap.Error(err),
		)
	}
}

func editInFlightError() *types.Error {
	return types.NewError(types.ErrEditInFlight, "an edit is already in progress for this session").
		WithHTTPStatus(http.StatusConflict)
}

// userMessage maps an edit failure to the stable message shown to users.
// Classified errors keep their fixed message; anything else collapses to the
// fallback so raw upstream detail never reaches the session.
func userMessage(err error) string {
	var appErr *types.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallbackUserMessage
}
