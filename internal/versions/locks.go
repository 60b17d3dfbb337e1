package versions

import "sync"

// chapterLocks hands out one mutex per chapter id. Entries are never reaped;
// the set of chapters a process touches is small.
type chapterLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (c *chapterLocks) acquire(chapterID string) func() {
	c.mu.Lock()
	if c.locks == nil {
		c.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := c.locks[chapterID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[chapterID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
