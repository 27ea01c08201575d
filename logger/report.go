package logger

import (
	"sync"
	"sync/atomic"
)

// Per-component warn and error tallies, exposed for health reporting.
var componentIssues sync.Map // map[string]*issueCounts

type issueCounts struct {
	warns  int64
	errors int64
}

func issuesFor(component string) *issueCounts {
	if v, ok := componentIssues.Load(component); ok {
		return v.(*issueCounts)
	}
	v, _ := componentIssues.LoadOrStore(component, &issueCounts{})
	return v.(*issueCounts)
}

func recordWarn(component string) {
	atomic.AddInt64(&issuesFor(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&issuesFor(component).errors, 1)
}

// IssueCounts reports the warn and error totals logged by one component
// since process start.
func IssueCounts(component string) (warns, errors int64) {
	c := issuesFor(component)
	return atomic.LoadInt64(&c.warns), atomic.LoadInt64(&c.errors)
}
