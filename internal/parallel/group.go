package parallel

import "golang.org/x/sync/errgroup"

// Group runs a bounded-concurrency set of fallible tasks and reports the
// first error any of them returned — for fork-join phases that must know
// whether anything went wrong, unlike WorkerPool's ExecuteAll/ExecuteIndexed
// which assume every task succeeds (spec.md §5 "fork-join phases").
type Group struct {
	g *errgroup.Group
}

// NewGroup returns a Group that runs at most limit goroutines concurrently.
// limit <= 0 means unlimited, matching errgroup.Group's own default.
func NewGroup(limit int) *Group {
	g := &errgroup.Group{}
	if limit > 0 {
		g.SetLimit(limit)
	}
	return &Group{g: g}
}

// Go schedules fn to run in its own goroutine, subject to the group's
// concurrency limit.
func (grp *Group) Go(fn func() error) {
	grp.g.Go(fn)
}

// Wait blocks until every scheduled fn has returned, and returns the first
// non-nil error any of them produced, or nil if all of them succeeded.
func (grp *Group) Wait() error {
	return grp.g.Wait()
}
