package tempmail

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrFetch marks a failed mail poll. It is transient: the next scheduled
	// cycle simply tries again.
	ErrFetch = errors.New("mail fetch failed")

	// ErrDomainFetch marks a failed allowed-domain lookup. Generation stays
	// disabled until a later lookup succeeds.
	ErrDomainFetch = errors.New("allowed domain fetch failed")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
}
