// Package singleflight coalesces concurrent renders of the same (url,
// query) into one in-flight call, so a burst of identical requests costs
// one fetch instead of N. Grounded on the teacher's StringFilter —
// sync.Map.LoadOrStore used as a dedup gate — generalized from a
// fire-and-forget "have I seen this?" check into a full call-sharing
// group that also reports how long the call took.
package singleflight

import (
	"sync"
	"time"
)

type call struct {
	wg    sync.WaitGroup
	start time.Time
	val   interface{}
	err   error
}

// Group coalesces calls keyed by an arbitrary string.
type Group struct {
	calls sync.Map // string -> *call
}

// Do runs fn for key if no call for key is already in flight, otherwise it
// waits for the in-flight call and returns its result. shared reports
// whether the caller got a result computed by someone else. elapsedMs is
// the wall-clock duration of the call this caller ultimately observed.
func (g *Group) Do(key string, fn func() (interface{}, error)) (val interface{}, err error, shared bool, elapsedMs int64) {
	c := &call{start: time.Now()}
	c.wg.Add(1)

	actual, loaded := g.calls.LoadOrStore(key, c)
	if loaded {
		existing := actual.(*call)
		existing.wg.Wait()
		return existing.val, existing.err, true, time.Since(existing.start).Milliseconds()
	}

	c.val, c.err = fn()
	g.calls.Delete(key)
	c.wg.Done()

	return c.val, c.err, false, time.Since(c.start).Milliseconds()
}
