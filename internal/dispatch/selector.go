package dispatch

import (
	"time"

	"github.com/allaspectsdev/traduko/internal/provider"
)

// next returns the next instance to try for the job, or false when a full
// revolution finds no candidate. Round-robin with skips: start at the
// cursor, skip already-attempted and cooled-down instances, return the
// first survivor and park the cursor just past it.
//
// When the job prefers certain provider kinds, a first revolution considers
// only those; non-preferred instances are picked up by the fallback
// revolution, which keeps them demoted rather than excluded.
func (p *Pool) next(j *job, now time.Time) (*Instance, bool) {
	if len(j.preferKinds) > 0 {
		if inst, ok := p.scan(j, now, j.preferKinds); ok {
			return inst, true
		}
	}
	return p.scan(j, now, nil)
}

// scan is one revolution over the pool. onlyKinds narrows candidates to the
// given provider families; nil means any.
func (p *Pool) scan(j *job, now time.Time, onlyKinds map[provider.Kind]struct{}) (*Instance, bool) {
	n := uint64(len(p.instances))
	if n == 0 {
		return nil, false
	}

	start := p.cursor.Load()
	for i := uint64(0); i < n; i++ {
		idx := (start + i) % n
		inst := p.instances[idx]

		if _, tried := j.attempted[inst.ID()]; tried {
			continue
		}
		if _, excluded := j.excludeKinds[inst.cfg.Kind]; excluded {
			continue
		}
		if onlyKinds != nil {
			if _, ok := onlyKinds[inst.cfg.Kind]; !ok {
				continue
			}
		}
		if !inst.IsEligible(now) {
			continue
		}

		p.cursor.Store(idx + 1)
		return inst, true
	}
	return nil, false
}

// anyEligible reports whether some not-yet-permanently-down instance is
// eligible at now, ignoring the job's attempted set. Drives the
// second-sweep decision.
func (p *Pool) anyEligible(now time.Time) bool {
	for _, inst := range p.instances {
		if inst.IsEligible(now) {
			return true
		}
	}
	return false
}
