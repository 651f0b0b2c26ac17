package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/imaging"
	"github.com/BaSui01/imageflow/session"
	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🖼️ 会话接口 Handler
// =============================================================================

// multipartSlackBytes 预留给 multipart 边界与表单头的额外空间
const multipartSlackBytes = 64 << 10

// uploadFieldName 上传表单中图像文件的字段名
const uploadFieldName = "image"

// SessionHandler 会话接口处理器。
// 覆盖会话生命周期、源图像选择、编辑提交与媒体端点。
type SessionHandler struct {
	manager   *session.Manager
	tokens    *api.TokenIssuer
	maxUpload int64
	logger    *zap.Logger
}

// NewSessionHandler 创建会话处理器。
// maxUploadBytes 为源图像上传上限，非正值回退到编排器默认值。
func NewSessionHandler(manager *session.Manager, tokens *api.TokenIssuer, maxUploadBytes int64, logger *zap.Logger) *SessionHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = session.DefaultMaxPayloadBytes
	}
	return &SessionHandler{
		manager:   manager,
		tokens:    tokens,
		maxUpload: maxUploadBytes,
		logger:    logger,
	}
}

// extractSessionID 从请求中提取会话 ID（Go 1.22+ PathValue 优先，回退到路径解析）
func extractSessionID(r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		// 回退：从路径手动解析 /v1/sessions/{id}[/...]
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 3 {
			return "", false
		}
		id = parts[2]
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// HandleCreate 创建会话
// @Summary 创建会话
// @Description 创建一个空的编辑会话
// @Tags 会话
// @Produce json
// @Success 201 {object} Response{data=api.SessionView} "会话已创建"
// @Failure 500 {object} Response "内部错误"
// @Router /v1/sessions [post]
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	sess, err := h.manager.Create(r.Context())
	if err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	WriteSuccessStatus(w, r, http.StatusCreated, h.sessionView(sess))
}

// HandleGet 查询会话
// @Summary 查询会话
// @Description 返回会话状态视图，含带令牌的媒体地址
// @Tags 会话
// @Produce json
// @Success 200 {object} Response{data=api.SessionView} "会话视图"
// @Failure 404 {object} Response "会话不存在"
// @Router /v1/sessions/{id} [get]
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractSessionID(r)
	if !ok {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "invalid session ID", h.logger)
		return
	}

	sess, err := h.manager.Get(r.Context(), id)
	if err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, h.sessionView(sess))
}

// HandleSelectImage 选择源图像
// @Summary 上传源图像
// @Description multipart 上传，字段名 image；替换源图像并轮换预览令牌
// @Tags 会话
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "源图像文件"
// @Success 200 {object} Response{data=api.SessionView} "会话视图"
// @Failure 400 {object} Response "无效请求"
// @Failure 409 {object} Response "编辑在途"
// @Failure 413 {object} Response "图像过大"
// @Router /v1/sessions/{id}/image [put]
func (h *SessionHandler) HandleSelectImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractSessionID(r)
	if !ok {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "invalid session ID", h.logger)
		return
	}

	// 请求级别的读上限；业务级别的载荷上限由编排器二次校验
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartSlackBytes)

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}

	mediaType, err := uploadMediaType(header.Header.Get("Content-Type"))
	if err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	sess, err := h.manager.SelectImage(r.Context(), id, data, mediaType)
	if err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, h.sessionView(sess))
}

// HandleSubmitEdit 提交编辑
// @Summary 提交编辑指令
// @Description 对当前源图像执行一次编辑，同步等待结果
// @Tags 会话
// @Accept json
// @Produce json
// @Param request body api.EditSubmitRequest true "编辑指令"
// @Success 200 {object} Response{data=api.SessionView} "编辑完成"
// @Failure 400 {object} Response "无效请求"
// @Failure 409 {object} Response "编辑在途"
// @Failure 502 {object} Response "上游失败"
// @Router /v1/sessions/{id}/edits [post]
func (h *SessionHandler) HandleSubmitEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractSessionID(r)
	if !ok {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "invalid session ID", h.logger)
		return
	}

	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.EditSubmitRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	sess, err := h.manager.SubmitEdit(r.Context(), id, req.Instruction)
	if err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, h.sessionView(sess))
}

// HandlePreview 源图像预览
// @Summary 源图像预览
// @Description 返回源图像原始字节；令牌随换图轮换，旧令牌 410
// @Tags 会话
// @Produce image/*
// @Param token query string true "媒体访问令牌"
// @Success 200 {file} binary "图像字节"
// @Failure 410 {object} Response "令牌已失效"
// @Router /v1/sessions/{id}/preview [get]
func (h *SessionHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractSessionID(r)
	if !ok {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "invalid session ID", h.logger)
		return
	}

	claims, err := h.verifyMediaToken(r, id, api.MediaKindPreview)
	if err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	// 编排器核对预览版本：换图后旧令牌解析到的版本不再匹配
	blob, err := h.manager.Preview(r.Context(), id, claims.Version)
	if err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	h.writeBlob(w, blob, "")
}

// HandleResult 结果下载
// @Summary 编辑结果下载
// @Description 返回编辑结果原始字节，附下载文件名
// @Tags 会话
// @Produce image/*
// @Param token query string true "媒体访问令牌"
// @Success 200 {file} binary "图像字节"
// @Failure 404 {object} Response "暂无结果"
// @Router /v1/sessions/{id}/result [get]
func (h *SessionHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractSessionID(r)
	if !ok {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "invalid session ID", h.logger)
		return
	}

	if _, err := h.verifyMediaToken(r, id, api.MediaKindResult); err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	blob, filename, err := h.manager.Download(r.Context(), id)
	if err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	h.writeBlob(w, blob, filename)
}

// HandleDelete 删除会话
// @Summary 删除会话
// @Description 释放会话及其图像资源；编辑在途时拒绝
// @Tags 会话
// @Produce json
// @Success 200 {object} Response "已删除"
// @Failure 409 {object} Response "编辑在途"
// @Router /v1/sessions/{id} [delete]
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractSessionID(r)
	if !ok {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "invalid session ID", h.logger)
		return
	}

	if err := h.manager.Delete(r.Context(), id); err != nil {
		WriteTypedError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, map[string]string{"message": "session deleted"})
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// sessionView 把会话状态映射为浏览器视图，并签发媒体访问令牌。
// 签发失败只降级为缺少媒体地址，不让整个请求失败。
func (h *SessionHandler) sessionView(sess *session.Session) api.SessionView {
	view := api.SessionView{
		ID:        sess.ID,
		HasSource: sess.HasSource(),
		InFlight:  sess.InFlight,
		LastError: sess.LastError,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}

	if sess.HasSource() {
		view.SourceMediaType = sess.Source.MediaType
		view.SourceBytes = sess.Source.Size()
		if token, err := h.tokens.Issue(sess.ID, api.MediaKindPreview, sess.PreviewToken); err == nil {
			view.PreviewURL = mediaURL(sess.ID, "preview", token)
		} else {
			h.logger.Warn("failed to issue preview token", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}

	if sess.Result != nil && sess.Result.Data != "" {
		mediaType := sess.Result.MediaType
		if mediaType == "" {
			mediaType = imaging.MediaTypeFromURI(sess.Result.URI)
		}
		uri := sess.Result.URI
		if uri == "" {
			uri = imaging.BuildDataURI(mediaType, sess.Result.Data)
		}

		result := &api.EditResultView{
			URI:       uri,
			MediaType: mediaType,
			Provider:  sess.Result.Provider,
			Model:     sess.Result.Model,
			Filename:  session.DownloadBaseName + "." + imaging.ExtensionForMediaType(mediaType),
			CreatedAt: sess.Result.CreatedAt,
		}
		if token, err := h.tokens.Issue(sess.ID, api.MediaKindResult, ""); err == nil {
			result.DownloadURL = mediaURL(sess.ID, "result", token)
		} else {
			h.logger.Warn("failed to issue result token", zap.String("session_id", sess.ID), zap.Error(err))
		}
		view.Result = result
	}

	return view
}

// mediaURL 构造相对媒体地址，浏览器同源访问
func mediaURL(sessionID, endpoint, token string) string {
	return "/v1/sessions/" + url.PathEscape(sessionID) + "/" + endpoint + "?token=" + url.QueryEscape(token)
}

// verifyMediaToken 校验 ?token= 携带的媒体访问令牌。
// 任何校验失败都折叠为固定的 410 文案，不区分过期、篡改与错配。
func (h *SessionHandler) verifyMediaToken(r *http.Request, sessionID, kind string) (*api.MediaClaims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil, staleTokenError()
	}
	claims, err := h.tokens.Verify(token, sessionID, kind)
	if err != nil {
		h.logger.Debug("media token rejected",
			zap.String("session_id", sessionID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil, staleTokenError()
	}
	return claims, nil
}

func staleTokenError() *types.Error {
	return types.NewError(types.ErrForbidden, "preview token is no longer valid").
		WithHTTPStatus(http.StatusGone)
}

// writeBlob 输出原始图像字节。filename 非空时作为附件下载。
func (h *SessionHandler) writeBlob(w http.ResponseWriter, blob *imaging.Blob, filename string) {
	mediaType := blob.MediaType
	if mediaType == "" {
		mediaType = imaging.DefaultMediaType
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(blob.Size()))
	w.Header().Set("Cache-Control", "private, no-store")
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		h.logger.Debug("failed to write image bytes", zap.Error(err))
	}
}

// uploadMediaType 规范化上传分片声明的媒体类型。
// 只接受 image/*；为空时使用默认类型，与文件选择器的行为对齐。
func uploadMediaType(header string) (string, error) {
	if header == "" {
		return imaging.DefaultMediaType, nil
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "", types.NewError(types.ErrInvalidRequest, "invalid image content type").
			WithCause(err).
			WithHTTPStatus(http.StatusBadRequest)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", types.NewError(types.ErrInvalidRequest, "only image uploads are supported").
			WithHTTPStatus(http.StatusBadRequest)
	}
	return mediaType, nil
}

// writeUploadError 归类 multipart 读取失败：超限 413，其余 400。
func (h *SessionHandler) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		tooLarge := types.NewError(types.ErrPayloadTooLarge, "image exceeds the maximum allowed size").
			WithCause(err).
			WithHTTPStatus(http.StatusRequestEntityTooLarge)
		WriteError(w, r, tooLarge, h.logger)
		return
	}
	invalid := types.NewError(types.ErrInvalidRequest, "missing image upload").
		WithCause(err).
		WithHTTPStatus(http.StatusBadRequest)
	WriteError(w, r, invalid, h.logger)
}
