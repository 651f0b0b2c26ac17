package editor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/types"
)

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k"}, nil)
	require.NotNil(t, p)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "https://api.openai.com", p.cfg.BaseURL)
	assert.Equal(t, "gpt-image-1", p.cfg.Model)
}

func TestOpenAIProvider_Edit_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/images/edits", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer test-key")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, AugmentInstruction("add a hat"), r.FormValue("prompt"))
		assert.Equal(t, "gpt-image-1", r.FormValue("model"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "image.jpeg", header.Filename)

		raw, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("ABC"), raw)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created": 1700000000, "data": [{"b64_json": "AAAA"}]}`))
	}))
	t.Cleanup(server.Close)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL}, zap.NewNop())

	result, err := p.Edit(context.Background(), &EditRequest{
		ImageData:   "QUJD",
		MediaType:   "image/jpeg",
		Instruction: "add a hat",
	})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", result.URI)
	assert.Equal(t, "image/png", result.MediaType)
	assert.Equal(t, "openai", result.Provider)
}

func TestOpenAIProvider_Edit_NoImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"created": 1700000000, "data": []}`))
	}))
	t.Cleanup(server.Close)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())

	_, err := p.Edit(context.Background(), &EditRequest{ImageData: "QQ==", Instruction: "x"})
	require.Error(t, err)
	assert.Equal(t, types.ErrNoImage, types.GetErrorCode(err))
}

func TestOpenAIProvider_Edit_CredentialError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Incorrect API key provided"}}`))
	}))
	t.Cleanup(server.Close)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "bad", BaseURL: server.URL}, zap.NewNop())

	_, err := p.Edit(context.Background(), &EditRequest{ImageData: "QQ==", Instruction: "x"})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidCredential, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), MsgInvalidCredential)
}

func TestOpenAIProvider_Edit_InvalidPayload(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k"}, zap.NewNop())

	_, err := p.Edit(context.Background(), &EditRequest{ImageData: "!!!", Instruction: "x"})
	require.Error(t, err)
	assert.Equal(t, types.ErrEncodeFailed, types.GetErrorCode(err))
}
