// Package ledger computes the effect of the four currency operations.
//
// Every function is pure: it takes the balances the operation needs, checks the
// precondition, and returns a Delta describing the new values. Nothing is
// mutated here, so a rejected operation can never leave a partial change behind.
package ledger

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/chris/live-economy/pkg/models"
)

// ErrInsufficientBalance is returned when a balance cannot cover the operation.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrInvalidAmount is returned when an amount is zero or negative.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrNotEditable is returned when a profile edit names a field that only the
// currency operations may change, or carries a value of the wrong type.
var ErrNotEditable = errors.New("field is not editable")

// DiamondsPerCoin is the fixed exchange rate; remainders are dropped.
const DiamondsPerCoin = 2

// Delta is the effect of one operation on one account.
type Delta struct {
	// Set holds the post-operation value of every touched field.
	Set models.Patch
	// Increments holds the signed change of every touched counter.
	Increments map[models.Field]int64
	// AddItems holds items newly added to owned_items.
	AddItems []string
}

// TransferDelta is the two-sided effect of an agency transfer.
type TransferDelta struct {
	Agent  Delta
	Target Delta
}

// SpendCoins debits amount coins and accrues the same amount of wealth.
// If itemID is non-empty and not yet owned it is added to the owned items.
// An already owned item is not an error; the coins are still charged.
func SpendCoins(coins, wealth, amount int64, ownedItems []string, itemID string) (Delta, error) {
	if amount <= 0 {
		return Delta{}, ErrInvalidAmount
	}
	if coins < amount {
		return Delta{}, ErrInsufficientBalance
	}

	d := Delta{
		Set: models.Patch{
			models.FieldCoins:  coins - amount,
			models.FieldWealth: wealth + amount,
		},
		Increments: map[models.Field]int64{
			models.FieldCoins:  -amount,
			models.FieldWealth: amount,
		},
	}
	if itemID != "" && !slices.Contains(ownedItems, itemID) {
		d.Set[models.FieldOwnedItems] = append(slices.Clone(ownedItems), itemID)
		d.AddItems = []string{itemID}
	}
	return d, nil
}

// BuyVIP charges the package cost and grants its level and frame.
func BuyVIP(coins, wealth int64, pkg models.VIPPackage) (Delta, error) {
	if pkg.Cost < 0 {
		return Delta{}, ErrInvalidAmount
	}
	if coins < pkg.Cost {
		return Delta{}, ErrInsufficientBalance
	}

	return Delta{
		Set: models.Patch{
			models.FieldIsVip:    true,
			models.FieldVipLevel: pkg.Level,
			models.FieldCoins:    coins - pkg.Cost,
			models.FieldWealth:   wealth + pkg.Cost,
			models.FieldFrame:    pkg.FrameURL,
		},
		Increments: map[models.Field]int64{
			models.FieldCoins:  -pkg.Cost,
			models.FieldWealth: pkg.Cost,
		},
	}, nil
}

// ExchangeDiamonds converts amount diamonds into coins at DiamondsPerCoin.
func ExchangeDiamonds(coins, diamonds, amount int64) (Delta, error) {
	if amount <= 0 {
		return Delta{}, ErrInvalidAmount
	}
	if diamonds < amount {
		return Delta{}, ErrInsufficientBalance
	}

	gained := amount / DiamondsPerCoin
	return Delta{
		Set: models.Patch{
			models.FieldCoins:    coins + gained,
			models.FieldDiamonds: diamonds - amount,
		},
		Increments: map[models.Field]int64{
			models.FieldCoins:    gained,
			models.FieldDiamonds: -amount,
		},
	}, nil
}

// AgencyTransfer moves amount from an agent's agency balance to a target.
// The target receives the full amount both as coins and as recharge points.
func AgencyTransfer(agentBalance, amount, targetCoins, targetRechargePoints int64) (TransferDelta, error) {
	if amount <= 0 {
		return TransferDelta{}, ErrInvalidAmount
	}
	if agentBalance < amount {
		return TransferDelta{}, ErrInsufficientBalance
	}

	return TransferDelta{
		Agent: Delta{
			Set:        models.Patch{models.FieldAgencyBalance: agentBalance - amount},
			Increments: map[models.Field]int64{models.FieldAgencyBalance: -amount},
		},
		Target: Delta{
			Set: models.Patch{
				models.FieldCoins:          targetCoins + amount,
				models.FieldRechargePoints: targetRechargePoints + amount,
			},
			Increments: map[models.Field]int64{
				models.FieldCoins:          amount,
				models.FieldRechargePoints: amount,
			},
		},
	}, nil
}

// Level maps accumulated wealth or recharge points to a badge level in [1, 100].
func Level(points int64) int {
	if points <= 0 {
		return 1
	}
	l := int(math.Floor(math.Sqrt(float64(points)) / 200))
	return max(1, min(100, l))
}

// EditProfile validates a profile edit and returns it as a delta.
func EditProfile(patch models.Patch) (Delta, error) {
	if len(patch) == 0 {
		return Delta{}, fmt.Errorf("empty profile edit: %w", ErrNotEditable)
	}
	for f, v := range patch {
		if !f.IsProfile() {
			return Delta{}, fmt.Errorf("%s: %w", f, ErrNotEditable)
		}
		switch f {
		case models.FieldFrame:
			if _, ok := v.(*string); !ok {
				return Delta{}, fmt.Errorf("%s must be a string or null: %w", f, ErrNotEditable)
			}
		default:
			if _, ok := v.(string); !ok {
				return Delta{}, fmt.Errorf("%s must be a string: %w", f, ErrNotEditable)
			}
		}
	}
	return Delta{Set: maps.Clone(patch)}, nil
}
