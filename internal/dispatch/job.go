package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/allaspectsdev/traduko/internal/provider"
)

// job is the per-call state of one Translate invocation. It lives for the
// duration of the call and is owned exclusively by it.
type job struct {
	id           string
	req          *provider.Request
	attempted    map[string]struct{}
	attemptCount int
	deadline     time.Time
	maxAttempts  int
	sweeps       int
	excludeKinds map[provider.Kind]struct{}
	preferKinds  map[provider.Kind]struct{}
	failureKinds []provider.ErrKind
	lastErr      error
}

func newJob(req *provider.Request, deadline time.Time, maxAttempts int, opts Options) *job {
	j := &job{
		id:          "j_" + uuid.NewString()[:8],
		req:         req,
		attempted:   make(map[string]struct{}),
		deadline:    deadline,
		maxAttempts: maxAttempts,
	}
	if len(opts.ExcludeKinds) > 0 {
		j.excludeKinds = make(map[provider.Kind]struct{}, len(opts.ExcludeKinds))
		for _, k := range opts.ExcludeKinds {
			j.excludeKinds[k] = struct{}{}
		}
	}
	if len(opts.PreferKinds) > 0 {
		j.preferKinds = make(map[provider.Kind]struct{}, len(opts.PreferKinds))
		for _, k := range opts.PreferKinds {
			j.preferKinds[k] = struct{}{}
		}
	}
	return j
}

// recordFailure notes an attempt failure for the final diagnostic.
func (j *job) recordFailure(kind provider.ErrKind, err error) {
	j.failureKinds = append(j.failureKinds, kind)
	j.lastErr = err
}
