package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/allaspectsdev/traduko/internal/provider"
)

// Job-level outcomes. Attempt-level errors stay inside the dispatcher;
// callers see only these.
var (
	// ErrNoEligibleInstance means the pool is empty or every instance is
	// cooled down or permanently failed.
	ErrNoEligibleInstance = errors.New("dispatch: no eligible instance")

	// ErrInputTooLong means the text exceeds the pool-wide limit. Terminal:
	// no instance would accept it.
	ErrInputTooLong = errors.New("dispatch: input exceeds maximum length")

	// ErrCancelled means the caller's context ended the job.
	ErrCancelled = errors.New("dispatch: cancelled by caller")
)

// ExhaustedError is returned when every permitted attempt failed. It
// carries the failure kinds observed, in order, for diagnosis.
type ExhaustedError struct {
	Attempts int
	Kinds    []provider.ErrKind
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	kinds := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		kinds[i] = k.String()
	}
	return fmt.Sprintf("dispatch: all %d attempts failed (%s): %v",
		e.Attempts, strings.Join(kinds, ", "), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }
