package imaging

import (
	"encoding/base64"
	"io"

	"github.com/BaSui01/imageflow/types"
)

// Encode reads the entire stream and returns its base64 payload with no
// media-type prefix. Exactly one read attempt is made; nothing is retried.
func Encode(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", types.NewError(types.ErrEncodeFailed, "failed to read image").WithCause(err)
	}
	return EncodeBytes(data)
}

// EncodeBytes returns the base64 payload for in-memory image bytes.
func EncodeBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", types.NewError(types.ErrEmptyPayload, "empty image payload")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePayload decodes a bare base64 payload back into raw bytes.
func DecodePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, types.NewError(types.ErrEmptyPayload, "empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, types.NewError(types.ErrEncodeFailed, "failed to decode image payload").WithCause(err)
	}
	return data, nil
}
