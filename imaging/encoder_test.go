package imaging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/imageflow/types"
)

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestEncode_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		length := rapid.IntRange(1, 4096).Draw(rt, "length")
		original := make([]byte, length)
		for i := range original {
			original[i] = byte(rapid.IntRange(0, 255).Draw(rt, "byte"))
		}

		payload, err := Encode(bytes.NewReader(original))
		if err != nil {
			rt.Fatalf("Encode failed: %v", err)
		}
		if strings.Contains(payload, ",") || strings.HasPrefix(payload, "data:") {
			rt.Fatalf("payload must not carry a media-type prefix: %q", payload)
		}

		blob, err := ParseDataURI(BuildDataURI("image/png", payload))
		if err != nil {
			rt.Fatalf("ParseDataURI failed: %v", err)
		}
		if !bytes.Equal(blob.Data, original) {
			rt.Fatalf("round trip mismatch: %d bytes in, %d bytes out", len(original), len(blob.Data))
		}
	})
}

func TestEncode_EmptyInput(t *testing.T) {
	t.Parallel()

	_, err := Encode(bytes.NewReader(nil))
	require.Error(t, err)
	assert.Equal(t, types.ErrEmptyPayload, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "empty image payload")
}

func TestEncode_ReadFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("device not ready")
	_, err := Encode(failingReader{err: cause})
	require.Error(t, err)
	assert.Equal(t, types.ErrEncodeFailed, types.GetErrorCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "device not ready")
}

func TestEncodeBytes(t *testing.T) {
	t.Parallel()

	payload, err := EncodeBytes([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	assert.Equal(t, "iVBORw==", payload)

	_, err = EncodeBytes(nil)
	assert.Equal(t, types.ErrEmptyPayload, types.GetErrorCode(err))
}

func TestDecodePayload(t *testing.T) {
	t.Parallel()

	data, err := DecodePayload("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = DecodePayload("")
	assert.Equal(t, types.ErrEmptyPayload, types.GetErrorCode(err))

	_, err = DecodePayload("!!!not-base64!!!")
	assert.Equal(t, types.ErrEncodeFailed, types.GetErrorCode(err))
}

func BenchmarkEncode(b *testing.B) {
	// 256 KiB，接近常见截图尺寸
	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(bytes.NewReader(payload)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDataURIRoundTrip(b *testing.B) {
	raw := make([]byte, 256*1024)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	payload, err := EncodeBytes(raw)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		uri := BuildDataURI("image/png", payload)
		if _, err := ParseDataURI(uri); err != nil {
			b.Fatal(err)
		}
	}
}
