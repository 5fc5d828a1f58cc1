package scheduler

import (
	"slices"
	"sync"
	"time"
)

// DefaultWindow is the quiescence window used when none is configured.
const DefaultWindow = 1500 * time.Millisecond

// FlushFunc writes an account's pending changes. It runs on the timer's goroutine.
type FlushFunc func(accountID string)

type task struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer implements the Scheduler interface with one quiescence timer per account.
// Every Schedule call restarts the account's timer, so a burst of mutations
// produces a single flush once the account has been quiet for the window.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	flush   FlushFunc
	tasks   map[string]*task
	gen     uint64
	stopped bool
}

// NewDebouncer creates a new Debouncer.
func NewDebouncer(window time.Duration, flush FlushFunc) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		window: window,
		flush:  flush,
		tasks:  make(map[string]*task),
	}
}

// Make sure we conform to the interface
var _ Scheduler = (*Debouncer)(nil)

// Window returns the configured quiescence window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Schedule (re)arms the account's timer. It is a no-op after Stop.
func (d *Debouncer) Schedule(accountID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if t, ok := d.tasks[accountID]; ok {
		t.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.tasks[accountID] = &task{
		gen:   gen,
		timer: time.AfterFunc(d.window, func() { d.fire(accountID, gen) }),
	}
}

func (d *Debouncer) fire(accountID string, gen uint64) {
	d.mu.Lock()
	t, ok := d.tasks[accountID]
	if !ok || t.gen != gen {
		// Re-armed or cancelled after this timer had already fired.
		d.mu.Unlock()
		return
	}
	delete(d.tasks, accountID)
	d.mu.Unlock()

	d.flush(accountID)
}

// Cancel disarms the account's timer.
func (d *Debouncer) Cancel(accountID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tasks[accountID]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(d.tasks, accountID)
	return true
}

// Armed returns the number of accounts with a timer running.
func (d *Debouncer) Armed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// Stop disarms every timer and refuses further scheduling.
func (d *Debouncer) Stop() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	ids := make([]string, 0, len(d.tasks))
	for id, t := range d.tasks {
		t.timer.Stop()
		ids = append(ids, id)
	}
	clear(d.tasks)
	slices.Sort(ids)
	return ids
}
