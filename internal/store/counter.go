package store

import "sync"

// StatementCounter counts statements executed through a Session. Used
// by tests to verify the engine's query-efficiency contract.
//
// Usage:
//
//	ctr := &StatementCounter{}
//	sess.SetStatementHook(ctr.Hook())
//	// ... run engine calls ...
//	ctr.Count()
type StatementCounter struct {
	mu sync.Mutex
	n  int
}

// Hook returns the StatementHook to install on a session.
func (c *StatementCounter) Hook() StatementHook {
	return func(string) {
		c.mu.Lock()
		c.n++
		c.mu.Unlock()
	}
}

// Count returns the number of statements observed so far.
func (c *StatementCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset clears the counter.
func (c *StatementCounter) Reset() {
	c.mu.Lock()
	c.n = 0
	c.mu.Unlock()
}
