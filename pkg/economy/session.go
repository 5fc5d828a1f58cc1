package economy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chris/live-economy/pkg/models"
	"github.com/chris/live-economy/pkg/storage"
)

// ErrNotAgency is returned when a non-distributor account attempts an agency transfer.
var ErrNotAgency = errors.New("account is not an agency")

// Session binds an Engine to a Projector, reading each operation's inputs
// from the projected view and applying its result back to it. Accounts are
// loaded from the store the first time they are touched.
type Session struct {
	mu        sync.Mutex
	engine    *Engine
	projector *Projector
	store     storage.AccountReader
}

// NewSession creates a new Session.
func NewSession(engine *Engine, projector *Projector, store storage.AccountReader) *Session {
	return &Session{engine: engine, projector: projector, store: store}
}

// View returns the account as the user currently sees it.
func (s *Session) View(ctx context.Context, accountID string) (models.Account, error) {
	if a, ok := s.projector.Get(accountID); ok {
		return a, nil
	}
	remote, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return s.projector.Seed(*remote), nil
}

// SpendCoins spends coins from the account, optionally buying an item.
func (s *Session) SpendCoins(ctx context.Context, accountID string, amount int64, itemID string) (models.Account, bool, error) {
	return s.run(ctx, accountID, func(a models.Account) bool {
		return s.engine.SpendCoins(accountID, a.Coins, a.Wealth, amount, a.OwnedItems, itemID, s.projector.ApplyFunc(accountID))
	})
}

// BuyVIP buys a VIP package for the account.
func (s *Session) BuyVIP(ctx context.Context, accountID string, pkg models.VIPPackage) (models.Account, bool, error) {
	return s.run(ctx, accountID, func(a models.Account) bool {
		return s.engine.BuyVIP(accountID, a.Coins, a.Wealth, pkg, s.projector.ApplyFunc(accountID))
	})
}

// ExchangeDiamonds converts the account's diamonds into coins.
func (s *Session) ExchangeDiamonds(ctx context.Context, accountID string, amount int64) (models.Account, bool, error) {
	return s.run(ctx, accountID, func(a models.Account) bool {
		return s.engine.ExchangeDiamonds(accountID, a.Coins, a.Diamonds, amount, s.projector.ApplyFunc(accountID))
	})
}

// UpdateProfile edits the account's profile fields.
func (s *Session) UpdateProfile(ctx context.Context, accountID string, patch models.Patch) (models.Account, bool, error) {
	return s.run(ctx, accountID, func(models.Account) bool {
		return s.engine.UpdateProfile(accountID, patch, s.projector.ApplyFunc(accountID))
	})
}

// AgencyTransfer credits targetID from the agent's agency balance and returns the agent's view.
func (s *Session) AgencyTransfer(ctx context.Context, agentID, targetID string, amount int64) (models.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, err := s.View(ctx, agentID)
	if err != nil {
		return models.Account{}, false, err
	}
	if !agent.IsAgency {
		return agent, false, fmt.Errorf("account %s: %w", agentID, ErrNotAgency)
	}
	target, err := s.View(ctx, targetID)
	if err != nil {
		return models.Account{}, false, err
	}

	ok := s.engine.AgencyTransfer(agentID, agent.AgencyBalance, targetID, target.Coins, target.RechargePoints, amount,
		s.projector.TransferApplyFunc(agentID, targetID))

	agent, _ = s.projector.Get(agentID)
	return agent, ok, nil
}

func (s *Session) run(ctx context.Context, accountID string, op func(models.Account) bool) (models.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.View(ctx, accountID)
	if err != nil {
		return models.Account{}, false, err
	}
	ok := op(a)

	a, _ = s.projector.Get(accountID)
	return a, ok, nil
}
