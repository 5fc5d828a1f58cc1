package economy

import (
	"slices"
	"sync"

	"github.com/chris/live-economy/pkg/models"
)

// ApplyFunc receives the post-operation values of every field an operation touched.
type ApplyFunc func(models.Patch)

// TransferApplyFunc receives the agent's and the target's post-transfer values.
type TransferApplyFunc func(agent, target models.Patch)

// Projector is the in-memory view of every account the process has seen.
// Optimistic results are applied here synchronously; remote snapshots replace
// entries after the reconciler has overlaid pending values.
type Projector struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
}

// NewProjector creates an empty Projector.
func NewProjector() *Projector {
	return &Projector{accounts: make(map[string]models.Account)}
}

// Get returns a copy of the account's current view.
func (p *Projector) Get(accountID string) (models.Account, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	a, ok := p.accounts[accountID]
	if !ok {
		return models.Account{}, false
	}
	a.OwnedItems = slices.Clone(a.OwnedItems)
	return a, true
}

// Put replaces the account's view.
func (p *Projector) Put(account models.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account.OwnedItems = slices.Clone(account.OwnedItems)
	p.accounts[account.UserId] = account
}

// Seed stores the account only if no view exists yet, and returns the view in effect.
func (p *Projector) Seed(account models.Account) models.Account {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.accounts[account.UserId]; ok {
		return existing
	}
	account.OwnedItems = slices.Clone(account.OwnedItems)
	p.accounts[account.UserId] = account
	return account
}

// Apply writes the patch onto the account's view.
func (p *Projector) Apply(accountID string, patch models.Patch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.accounts[accountID]
	a.UserId = accountID
	a.Apply(patch)
	p.accounts[accountID] = a
}

// ApplyFunc returns a callback that applies patches to the account's view.
func (p *Projector) ApplyFunc(accountID string) ApplyFunc {
	return func(patch models.Patch) { p.Apply(accountID, patch) }
}

// TransferApplyFunc returns a callback that applies both sides of a transfer.
func (p *Projector) TransferApplyFunc(agentID, targetID string) TransferApplyFunc {
	return func(agent, target models.Patch) {
		p.Apply(agentID, agent)
		p.Apply(targetID, target)
	}
}

// Forget drops the account's view.
func (p *Projector) Forget(accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.accounts, accountID)
}
