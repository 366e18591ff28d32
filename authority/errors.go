package authority

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-tab-session/internal/errors"
)

// RejectedError is a non-2xx answer from the authority.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("authority rejected request (%d): %s", e.StatusCode, e.Message)
}

// Is matches ErrRejected for every rejection and ErrUnauthorized for 401s.
func (e *RejectedError) Is(target error) bool {
	switch target {
	case errors.ErrRejected:
		return true
	case errors.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Message extracts a user-facing message from err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return err.Error()
}
