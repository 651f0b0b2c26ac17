package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/BaSui01/imageflow/types"
)

// Store persists session records. Implementations expire records after a TTL;
// an expired record behaves exactly like a missing one.
type Store interface {
	// Get returns the session or a SESSION_NOT_FOUND error.
	Get(ctx context.Context, id string) (*Session, error)

	// Put stores the session and refreshes its TTL.
	Put(ctx context.Context, sess *Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Len reports the number of live sessions.
	Len(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}

func notFoundError(id string) *types.Error {
	return types.NewError(types.ErrSessionNotFound, fmt.Sprintf("session %s not found", id)).
		WithHTTPStatus(http.StatusNotFound)
}

func storeError(op string, cause error) *types.Error {
	return types.NewError(types.ErrInternalError, fmt.Sprintf("session store %s failed", op)).
		WithCause(cause).
		WithHTTPStatus(http.StatusInternalServerError)
}
