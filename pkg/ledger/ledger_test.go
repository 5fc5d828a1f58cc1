package ledger

import (
	"testing"

	"github.com/chris/live-economy/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpendCoins(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		d, err := SpendCoins(100, 10, 40, nil, "")

		require.NoError(t, err)
		assert.Equal(t, int64(60), d.Set[models.FieldCoins])
		assert.Equal(t, int64(50), d.Set[models.FieldWealth])
		assert.Equal(t, int64(-40), d.Increments[models.FieldCoins])
		assert.Equal(t, int64(40), d.Increments[models.FieldWealth])
		assert.NotContains(t, d.Set, models.FieldOwnedItems)
		assert.Empty(t, d.AddItems)
	})

	t.Run("Insufficient Balance", func(t *testing.T) {
		d, err := SpendCoins(100, 0, 150, nil, "")

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Empty(t, d.Set)
		assert.Empty(t, d.Increments)
	})

	t.Run("Exact Balance", func(t *testing.T) {
		d, err := SpendCoins(100, 0, 100, nil, "")

		require.NoError(t, err)
		assert.Equal(t, int64(0), d.Set[models.FieldCoins])
	})

	t.Run("Invalid Amount", func(t *testing.T) {
		_, err := SpendCoins(100, 0, 0, nil, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = SpendCoins(100, 0, -5, nil, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("New Item", func(t *testing.T) {
		owned := []string{"frame-1"}
		d, err := SpendCoins(100, 0, 10, owned, "bubble-2")

		require.NoError(t, err)
		assert.Equal(t, []string{"frame-1", "bubble-2"}, d.Set[models.FieldOwnedItems])
		assert.Equal(t, []string{"bubble-2"}, d.AddItems)
		assert.Equal(t, []string{"frame-1"}, owned, "input slice must not be modified")
	})

	t.Run("Owned Item Is Idempotent", func(t *testing.T) {
		owned := []string{"frame-1"}
		first, err := SpendCoins(100, 0, 10, owned, "frame-1")
		require.NoError(t, err)

		second, err := SpendCoins(first.Set[models.FieldCoins].(int64), first.Set[models.FieldWealth].(int64), 10, owned, "frame-1")
		require.NoError(t, err)

		assert.NotContains(t, first.Set, models.FieldOwnedItems)
		assert.NotContains(t, second.Set, models.FieldOwnedItems)
		assert.Empty(t, second.AddItems)
		assert.Equal(t, int64(80), second.Set[models.FieldCoins], "coins are charged on every attempt")
	})
}

func TestBuyVIP(t *testing.T) {
	frame := "https://cdn.example.com/frames/gold.png"
	pkg := models.VIPPackage{Level: 3, Cost: 500, FrameURL: &frame}

	t.Run("Success", func(t *testing.T) {
		d, err := BuyVIP(800, 100, pkg)

		require.NoError(t, err)
		assert.Equal(t, true, d.Set[models.FieldIsVip])
		assert.Equal(t, 3, d.Set[models.FieldVipLevel])
		assert.Equal(t, int64(300), d.Set[models.FieldCoins])
		assert.Equal(t, int64(600), d.Set[models.FieldWealth])
		assert.Equal(t, &frame, d.Set[models.FieldFrame])
		assert.Equal(t, map[models.Field]int64{models.FieldCoins: -500, models.FieldWealth: 500}, d.Increments)
	})

	t.Run("Insufficient Balance", func(t *testing.T) {
		d, err := BuyVIP(499, 0, pkg)

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Empty(t, d.Set)
	})
}

func TestExchangeDiamonds(t *testing.T) {
	t.Run("Even Amount", func(t *testing.T) {
		d, err := ExchangeDiamonds(0, 100, 100)

		require.NoError(t, err)
		assert.Equal(t, int64(50), d.Set[models.FieldCoins])
		assert.Equal(t, int64(0), d.Set[models.FieldDiamonds])
		assert.Equal(t, int64(50), d.Increments[models.FieldCoins])
		assert.Equal(t, int64(-100), d.Increments[models.FieldDiamonds])
	})

	t.Run("Odd Amount Rounds Down", func(t *testing.T) {
		d, err := ExchangeDiamonds(10, 3, 3)

		require.NoError(t, err)
		assert.Equal(t, int64(11), d.Set[models.FieldCoins])
		assert.Equal(t, int64(0), d.Set[models.FieldDiamonds])
	})

	t.Run("Single Diamond Yields Nothing", func(t *testing.T) {
		d, err := ExchangeDiamonds(10, 5, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(10), d.Set[models.FieldCoins])
		assert.Equal(t, int64(4), d.Set[models.FieldDiamonds])
	})

	t.Run("Insufficient Balance", func(t *testing.T) {
		_, err := ExchangeDiamonds(0, 99, 100)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("Invalid Amount", func(t *testing.T) {
		_, err := ExchangeDiamonds(0, 100, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestAgencyTransfer(t *testing.T) {
	t.Run("Exact Balance", func(t *testing.T) {
		d, err := AgencyTransfer(500, 500, 20, 7)

		require.NoError(t, err)
		assert.Equal(t, int64(0), d.Agent.Set[models.FieldAgencyBalance])
		assert.Equal(t, int64(520), d.Target.Set[models.FieldCoins])
		assert.Equal(t, int64(507), d.Target.Set[models.FieldRechargePoints])
		assert.Equal(t, int64(-500), d.Agent.Increments[models.FieldAgencyBalance])
		assert.Equal(t, int64(500), d.Target.Increments[models.FieldCoins])
		assert.Equal(t, int64(500), d.Target.Increments[models.FieldRechargePoints])
	})

	t.Run("Insufficient Balance", func(t *testing.T) {
		d, err := AgencyTransfer(499, 500, 20, 7)

		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Empty(t, d.Agent.Set)
		assert.Empty(t, d.Target.Set)
	})

	t.Run("Invalid Amount", func(t *testing.T) {
		_, err := AgencyTransfer(500, -1, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestBalancesNeverNegative(t *testing.T) {
	acct := models.Account{Coins: 30, Diamonds: 7, AgencyBalance: 12}
	target := models.Account{}

	for _, amount := range []int64{5, 50, 10, 30, 1, 100} {
		if d, err := SpendCoins(acct.Coins, acct.Wealth, amount, acct.OwnedItems, ""); err == nil {
			acct.Apply(d.Set)
		}
		if d, err := ExchangeDiamonds(acct.Coins, acct.Diamonds, amount); err == nil {
			acct.Apply(d.Set)
		}
		if d, err := AgencyTransfer(acct.AgencyBalance, amount, target.Coins, target.RechargePoints); err == nil {
			acct.Apply(d.Agent.Set)
			target.Apply(d.Target.Set)
		}

		assert.GreaterOrEqual(t, acct.Coins, int64(0))
		assert.GreaterOrEqual(t, acct.Diamonds, int64(0))
		assert.GreaterOrEqual(t, acct.AgencyBalance, int64(0))
	}
	assert.Equal(t, target.Coins, target.RechargePoints)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, 1, Level(0))
	assert.Equal(t, 1, Level(-10))
	assert.Equal(t, 1, Level(40_000))
	assert.Equal(t, 2, Level(160_000))
	assert.Equal(t, 100, Level(1<<50))
}

func TestEditProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		frame := "https://cdn.example.com/frames/rose.png"
		d, err := EditProfile(models.Patch{models.FieldName: "Mina", models.FieldFrame: &frame})

		assert.NoError(t, err)
		assert.Equal(t, models.Patch{models.FieldName: "Mina", models.FieldFrame: &frame}, d.Set)
		assert.Empty(t, d.Increments)
	})

	t.Run("Clear Frame", func(t *testing.T) {
		_, err := EditProfile(models.Patch{models.FieldFrame: (*string)(nil)})
		assert.NoError(t, err)
	})

	t.Run("Ledger Field", func(t *testing.T) {
		_, err := EditProfile(models.Patch{models.FieldName: "Mina", models.FieldCoins: int64(1_000_000)})
		assert.ErrorIs(t, err, ErrNotEditable)
	})

	t.Run("Wrong Type", func(t *testing.T) {
		_, err := EditProfile(models.Patch{models.FieldActiveBubble: 3})
		assert.ErrorIs(t, err, ErrNotEditable)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := EditProfile(models.Patch{})
		assert.ErrorIs(t, err, ErrNotEditable)
	})
}
