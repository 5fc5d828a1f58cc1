// Package economy keeps accounts consistent between optimistic local
// mutations and the remote store.
//
// Every entry point computes its effect with the ledger package, applies it
// through the caller's callback before any network call, and returns at once.
// The effect is then recorded in the pending buffer and persisted in the
// background: debounced for spends, exchanges and profile edits, immediately
// for VIP purchases and agency transfers.
package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chris/live-economy/pkg/ledger"
	"github.com/chris/live-economy/pkg/metrics"
	"github.com/chris/live-economy/pkg/models"
	"github.com/chris/live-economy/pkg/pending"
	"github.com/chris/live-economy/pkg/scheduler"
	"github.com/google/uuid"
)

// Operation names, used as log and metric labels.
const (
	OpSpendCoins       = "spend_coins"
	OpBuyVIP           = "buy_vip"
	OpExchangeDiamonds = "exchange_diamonds"
	OpAgencyTransfer   = "agency_transfer"
	OpUpdateProfile    = "update_profile"
)

// ErrClosed is logged when an entry point is called after Close.
var ErrClosed = errors.New("sync engine closed")

// Engine owns the pending buffer and the debounce timers of one session.
type Engine struct {
	mu        sync.Mutex
	buffer    *pending.Buffer
	scheduler scheduler.Scheduler
	executor  *Executor
	logger    *slog.Logger
	wg        sync.WaitGroup
	closed    bool
}

// NewEngine creates an Engine that debounces writes over window.
func NewEngine(executor *Executor, window time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		buffer:   pending.NewBuffer(),
		executor: executor,
		logger:   logger,
	}
	e.scheduler = scheduler.NewDebouncer(window, e.flush)
	return e
}

// SpendCoins debits amount coins, accrues wealth and optionally grants an item.
func (e *Engine) SpendCoins(accountID string, coins, wealth, amount int64, ownedItems []string, itemID string, apply ApplyFunc) bool {
	d, err := ledger.SpendCoins(coins, wealth, amount, ownedItems, itemID)
	if err != nil {
		e.reject(OpSpendCoins, accountID, err)
		return false
	}
	return e.commit(OpSpendCoins, accountID, d, apply, false)
}

// BuyVIP charges a VIP package and flushes without waiting for the debounce window.
func (e *Engine) BuyVIP(accountID string, coins, wealth int64, pkg models.VIPPackage, apply ApplyFunc) bool {
	d, err := ledger.BuyVIP(coins, wealth, pkg)
	if err != nil {
		e.reject(OpBuyVIP, accountID, err)
		return false
	}
	return e.commit(OpBuyVIP, accountID, d, apply, true)
}

// ExchangeDiamonds converts diamonds into coins.
func (e *Engine) ExchangeDiamonds(accountID string, coins, diamonds, amount int64, apply ApplyFunc) bool {
	d, err := ledger.ExchangeDiamonds(coins, diamonds, amount)
	if err != nil {
		e.reject(OpExchangeDiamonds, accountID, err)
		return false
	}
	return e.commit(OpExchangeDiamonds, accountID, d, apply, false)
}

// UpdateProfile records a profile edit on the debounced path.
func (e *Engine) UpdateProfile(accountID string, patch models.Patch, apply ApplyFunc) bool {
	d, err := ledger.EditProfile(patch)
	if err != nil {
		e.reject(OpUpdateProfile, accountID, err)
		return false
	}
	return e.commit(OpUpdateProfile, accountID, d, apply, false)
}

// AgencyTransfer moves amount from the agent's agency balance to the target
// and commits both sides as one atomic batch in the background.
//
// Both accounts hold the post-transfer values as pending overlay until the
// batch is confirmed, so neither a snapshot taken before the commit nor an
// unrelated flush of either account can revert them. If the batch fails the
// overlay stays until each account's own next flush.
func (e *Engine) AgencyTransfer(agentID string, agentBalance int64, targetID string, targetCoins, targetRechargePoints, amount int64, apply TransferApplyFunc) bool {
	if agentID == targetID {
		e.reject(OpAgencyTransfer, agentID, fmt.Errorf("transfer to self: %w", ledger.ErrInvalidAmount))
		return false
	}
	d, err := ledger.AgencyTransfer(agentBalance, amount, targetCoins, targetRechargePoints)
	if err != nil {
		e.reject(OpAgencyTransfer, agentID, err)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.reject(OpAgencyTransfer, agentID, ErrClosed)
		return false
	}

	apply(d.Agent.Set, d.Target.Set)
	agentSnap := e.buffer.Hold(agentID, d.Agent.Set)
	targetSnap := e.buffer.Hold(targetID, d.Target.Set)
	e.observePending()

	transfer := models.Transfer{
		Id:       uuid.NewString(),
		AgentId:  agentID,
		TargetId: targetID,
		Amount:   amount,
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.observePending()
		if err := e.executor.Transfer(context.Background(), transfer); err != nil {
			e.buffer.Unhold(agentSnap)
			e.buffer.Unhold(targetSnap)
			return
		}
		e.buffer.Discard(agentSnap)
		e.buffer.Discard(targetSnap)
	}()

	metrics.Operations.WithLabelValues(OpAgencyTransfer, metrics.ResultApplied).Inc()
	return true
}

// Pending returns a copy of the account's unconfirmed field values.
func (e *Engine) Pending(accountID string) (models.Patch, bool) {
	return e.buffer.Values(accountID)
}

// WithPending calls fn with the account's unconfirmed values while holding the
// engine lock, so no entry point can run between reading them and fn's effects.
func (e *Engine) WithPending(accountID string, fn func(pending models.Patch)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	values, _ := e.buffer.Values(accountID)
	fn(values)
}

// Flush writes the account's pending changes now instead of at the end of
// the debounce window.
func (e *Engine) Flush(accountID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scheduler.Cancel(accountID)
	e.dispatch(accountID)
}

// Close stops the debounce timers, waits for background writes and then
// writes whatever is still pending, including changes whose last write failed.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	armed := e.scheduler.Stop()
	e.wg.Wait()

	var errs []error
	for _, id := range e.buffer.Accounts() {
		snap, ok := e.buffer.Take(id)
		if !ok {
			continue
		}
		if err := e.write(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", id, err))
		}
	}

	e.logger.Info("sync engine stopped", "armed", len(armed), "failed", len(errs))
	return errors.Join(errs...)
}

func (e *Engine) commit(op, accountID string, d ledger.Delta, apply ApplyFunc, immediate bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.reject(op, accountID, ErrClosed)
		return false
	}

	apply(d.Set)
	e.buffer.Merge(accountID, d)
	e.observePending()

	if immediate {
		e.scheduler.Cancel(accountID)
		e.dispatch(accountID)
	} else {
		e.scheduler.Schedule(accountID)
	}

	metrics.Operations.WithLabelValues(op, metrics.ResultApplied).Inc()
	return true
}

func (e *Engine) reject(op, accountID string, err error) {
	metrics.Operations.WithLabelValues(op, metrics.ResultRejected).Inc()
	e.logger.Info("operation rejected", "op", op, "account_id", accountID, "reason", err)
}

// flush is the debouncer's callback.
func (e *Engine) flush(accountID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatch(accountID)
}

// dispatch starts a background write of the account's entry. If a write is
// already in flight the flush is re-armed so newer changes follow it.
// Callers must hold e.mu.
func (e *Engine) dispatch(accountID string) {
	if e.closed {
		return
	}
	snap, ok := e.buffer.Take(accountID)
	if !ok {
		if e.buffer.InFlight(accountID) {
			e.scheduler.Schedule(accountID)
		}
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		_ = e.write(context.Background(), snap)
	}()
}

func (e *Engine) write(ctx context.Context, snap pending.Snapshot) error {
	defer e.observePending()

	if err := e.executor.Flush(ctx, snap); err != nil {
		e.buffer.Release(snap)
		return err
	}
	e.buffer.Ack(snap)
	return nil
}

func (e *Engine) observePending() {
	metrics.PendingAccounts.Set(float64(e.buffer.Len()))
}
