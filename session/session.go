package session

import (
	"time"

	"github.com/BaSui01/imageflow/editor"
	"github.com/BaSui01/imageflow/imaging"
)

// Session is the server-side state of one editing session: the selected
// source image, its preview token, the current result, the in-flight flag
// and the last user-visible error.
//
// Invariant: InFlight is true for exactly the duration of one outstanding
// submission, and at most one submission per session is in flight.
type Session struct {
	ID           string             `json:"id"`
	Source       *imaging.Blob      `json:"source,omitempty"`
	PreviewToken string             `json:"preview_token,omitempty"`
	Result       *editor.EditResult `json:"result,omitempty"`
	InFlight     bool               `json:"in_flight"`
	LastError    string             `json:"last_error,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// HasSource reports whether a source image has been selected.
func (s *Session) HasSource() bool {
	return s != nil && s.Source != nil && len(s.Source.Data) > 0
}

// clone returns a copy safe to hand outside the store. The byte slices are
// shared; callers replace blobs wholesale and never mutate them in place.
func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Source != nil {
		src := *s.Source
		out.Source = &src
	}
	if s.Result != nil {
		res := *s.Result
		out.Result = &res
	}
	return &out
}
