package imaging

import (
	"strings"

	"github.com/BaSui01/imageflow/types"
)

// DefaultMediaType is assumed when a blob or URI does not declare one.
const DefaultMediaType = "image/png"

// Blob is a decoded image: raw bytes plus the declared media type.
// No structural validation is performed; the declared type is trusted.
type Blob struct {
	MediaType string `json:"media_type"`
	Data      []byte `json:"data"`
}

// Size returns the raw byte length.
func (b Blob) Size() int { return len(b.Data) }

// DataURI encodes the blob into a self-describing data URI.
func (b Blob) DataURI() (string, error) {
	payload, err := EncodeBytes(b.Data)
	if err != nil {
		return "", err
	}
	return BuildDataURI(b.MediaType, payload), nil
}

// BuildDataURI assembles a self-describing image URI from a media type and a
// bare base64 payload: data:<mediaType>;base64,<payload>.
func BuildDataURI(mediaType, payload string) string {
	if mediaType == "" {
		mediaType = DefaultMediaType
	}
	return "data:" + mediaType + ";base64," + payload
}

// ParseDataURI splits a data URI at the first comma, decodes the payload that
// follows, and recovers the declared media type from the header segment.
func ParseDataURI(uri string) (Blob, error) {
	parts := strings.SplitN(uri, ",", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Blob{}, types.NewError(types.ErrEmptyPayload, "empty image payload")
	}

	data, err := DecodePayload(parts[1])
	if err != nil {
		return Blob{}, err
	}

	return Blob{MediaType: MediaTypeFromURI(uri), Data: data}, nil
}

// MediaTypeFromURI extracts the declared media type from a data URI header,
// e.g. "data:image/png;base64,..." yields "image/png". Returns "" when the
// header does not carry one.
func MediaTypeFromURI(uri string) string {
	if !strings.HasPrefix(uri, "data:") {
		return ""
	}
	header := uri
	if i := strings.IndexByte(header, ','); i >= 0 {
		header = header[:i]
	}
	header = strings.TrimPrefix(header, "data:")
	if i := strings.IndexByte(header, ';'); i >= 0 {
		header = header[:i]
	}
	return strings.TrimSpace(header)
}

// ExtensionForMediaType derives a download file extension from a declared
// media type: "image/jpeg" yields "jpeg". Missing or malformed types fall
// back to "png".
func ExtensionForMediaType(mediaType string) string {
	mt := strings.TrimSpace(mediaType)
	slash := strings.IndexByte(mt, '/')
	if slash < 0 || slash == len(mt)-1 {
		return "png"
	}
	ext := mt[slash+1:]
	if i := strings.IndexByte(ext, ';'); i >= 0 {
		ext = ext[:i]
	}
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return "png"
	}
	return ext
}
