// Package pending tracks per-account mutations that have not yet been confirmed by the store.
package pending

import (
	"maps"
	"slices"
	"sync"

	"github.com/chris/live-economy/pkg/ledger"
	"github.com/chris/live-economy/pkg/models"
)

// Snapshot is a copy of what an entry carried at a point in time.
// It is the payload of one remote write, and handing it back to Ack
// removes exactly what that write confirmed.
type Snapshot struct {
	AccountID  string
	Values     models.Patch
	Increments map[models.Field]int64
	AddItems   []string

	seqs map[models.Field]uint64
}

// Update builds the remote write for the snapshot. Counter values are only
// carried as increments; their absolute values are local overlay state.
func (s Snapshot) Update() models.Update {
	u := models.Update{
		AccountID:  s.AccountID,
		Set:        models.Patch{},
		Increments: map[models.Field]int64{},
		AddItems:   slices.Clone(s.AddItems),
	}
	for f, v := range s.Values {
		if f.IsCounter() || f == models.FieldOwnedItems {
			continue
		}
		u.Set[f] = v
	}
	for f, n := range s.Increments {
		if n != 0 {
			u.Increments[f] = n
		}
	}
	return u
}

type entry struct {
	values     models.Patch
	increments map[models.Field]int64
	items      []string
	seqs       map[models.Field]uint64
	inFlight   bool

	// held counts the uncommitted transfers covering a field. Held fields
	// survive Ack; settled records the seq a confirmed write covered while
	// the hold was on, so the value can go once the last hold is lifted.
	held    map[models.Field]int
	settled map[models.Field]uint64
}

func (e *entry) empty() bool {
	return len(e.values) == 0 && len(e.increments) == 0 && len(e.items) == 0
}

// Buffer is the set of pending entries, keyed by account id.
// Later writes to a field replace earlier ones; no history is kept.
type Buffer struct {
	mu      sync.Mutex
	seq     uint64
	entries map[string]*entry
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{entries: make(map[string]*entry)}
}

// Merge records a delta against an account and returns a snapshot of
// just the fields it touched.
func (b *Buffer) Merge(accountID string, d ledger.Delta) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.merge(accountID, d)
}

// Hold records absolute values written by a transfer that is committed
// outside the buffer. Held fields stay pending through any number of
// flushes until Discard (commit confirmed) or Unhold (commit failed) is
// called with the returned snapshot.
func (b *Buffer) Hold(accountID string, values models.Patch) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := b.merge(accountID, ledger.Delta{Set: values})
	e := b.entries[accountID]
	for f := range values {
		e.held[f]++
	}
	return snap
}

func (b *Buffer) merge(accountID string, d ledger.Delta) Snapshot {
	e, ok := b.entries[accountID]
	if !ok {
		e = &entry{
			values:     models.Patch{},
			increments: map[models.Field]int64{},
			seqs:       map[models.Field]uint64{},
			held:       map[models.Field]int{},
			settled:    map[models.Field]uint64{},
		}
		b.entries[accountID] = e
	}

	b.seq++
	snap := Snapshot{
		AccountID:  accountID,
		Values:     maps.Clone(d.Set),
		Increments: maps.Clone(d.Increments),
		AddItems:   slices.Clone(d.AddItems),
		seqs:       map[models.Field]uint64{},
	}
	for f, v := range d.Set {
		e.values[f] = v
		e.seqs[f] = b.seq
		snap.seqs[f] = b.seq
	}
	for f, n := range d.Increments {
		e.increments[f] += n
	}
	for _, item := range d.AddItems {
		if !slices.Contains(e.items, item) {
			e.items = append(e.items, item)
		}
	}
	return snap
}

// Take returns the entry's full contents and marks it in flight.
// It returns false if the account has nothing pending or a write for it
// is already in flight; the entry itself is left untouched either way.
func (b *Buffer) Take(accountID string) (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[accountID]
	if !ok || e.inFlight || e.empty() {
		return Snapshot{}, false
	}
	e.inFlight = true
	return Snapshot{
		AccountID:  accountID,
		Values:     maps.Clone(e.values),
		Increments: maps.Clone(e.increments),
		AddItems:   slices.Clone(e.items),
		seqs:       maps.Clone(e.seqs),
	}, true
}

// InFlight reports whether a write taken from the account's entry is outstanding.
func (b *Buffer) InFlight(accountID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[accountID]
	return ok && e.inFlight
}

// Ack removes what a confirmed write carried. Fields written again since the
// snapshot was taken stay pending, with the confirmed increments subtracted.
// Held fields stay until their transfer resolves.
func (b *Buffer) Ack(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[s.AccountID]
	if !ok {
		return
	}
	e.inFlight = false

	for f, n := range s.Increments {
		e.increments[f] -= n
		if e.increments[f] == 0 {
			delete(e.increments, f)
		}
	}
	for f, seq := range s.seqs {
		if e.seqs[f] != seq {
			continue
		}
		if _, unsent := e.increments[f]; unsent {
			continue
		}
		if e.held[f] > 0 {
			e.settled[f] = seq
			continue
		}
		e.drop(f)
	}
	e.items = slices.DeleteFunc(e.items, func(item string) bool {
		return slices.Contains(s.AddItems, item)
	})

	if e.empty() {
		delete(b.entries, s.AccountID)
	}
}

// Release returns a failed write's snapshot to the buffer unchanged, so the
// next flush for the account carries it again.
func (b *Buffer) Release(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[s.AccountID]; ok {
		e.inFlight = false
	}
}

// Discard releases values whose transfer was confirmed. A field is removed
// once no other transfer holds it and its value is either still the one s
// carried or one a buffered write has already confirmed.
func (b *Buffer) Discard(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[s.AccountID]
	if !ok {
		return
	}
	for f, seq := range s.seqs {
		e.unhold(f)
		if e.held[f] > 0 {
			continue
		}
		if _, unsent := e.increments[f]; unsent {
			continue
		}
		if cur, ok := e.seqs[f]; ok && (cur == seq || e.settled[f] == cur) {
			e.drop(f)
		}
	}
	if e.empty() && !e.inFlight {
		delete(b.entries, s.AccountID)
	}
}

// Unhold lifts the holds of a transfer that failed. The values stay as
// overlay until the account's next confirmed flush.
func (b *Buffer) Unhold(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[s.AccountID]
	if !ok {
		return
	}
	for f := range s.seqs {
		e.unhold(f)
		if e.held[f] == 0 {
			delete(e.settled, f)
		}
	}
}

func (e *entry) unhold(f models.Field) {
	if e.held[f] <= 1 {
		delete(e.held, f)
		return
	}
	e.held[f]--
}

func (e *entry) drop(f models.Field) {
	delete(e.values, f)
	delete(e.seqs, f)
	delete(e.settled, f)
}

// Values returns a copy of the account's pending field values.
// The bool is false when nothing is pending.
func (b *Buffer) Values(accountID string) (models.Patch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[accountID]
	if !ok || len(e.values) == 0 {
		return nil, false
	}
	return maps.Clone(e.values), true
}

// Accounts returns the ids of every account with a pending entry.
func (b *Buffer) Accounts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.entries))
	for id := range b.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of accounts with a pending entry.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
