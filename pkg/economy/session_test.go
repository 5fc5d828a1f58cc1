package economy

import (
	"context"
	"testing"
	"time"

	"github.com/chris/live-economy/pkg/models"
	"github.com/chris/live-economy/pkg/storage"
	"github.com/chris/live-economy/pkg/storage/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProjector(t *testing.T) {
	p := NewProjector()

	_, ok := p.Get("user1")
	assert.False(t, ok)

	seeded := p.Seed(models.Account{UserId: "user1", Coins: 100, OwnedItems: []string{"a"}})
	assert.Equal(t, int64(100), seeded.Coins)
	assert.Equal(t, int64(100), p.Seed(models.Account{UserId: "user1", Coins: 5}).Coins, "seed keeps an existing view")

	p.ApplyFunc("user1")(models.Patch{models.FieldCoins: int64(60), models.FieldWealth: int64(40)})
	got, _ := p.Get("user1")
	assert.Equal(t, int64(60), got.Coins)
	assert.Equal(t, int64(40), got.Wealth)

	got.OwnedItems[0] = "mutated"
	again, _ := p.Get("user1")
	assert.Equal(t, []string{"a"}, again.OwnedItems)

	p.TransferApplyFunc("agent", "user1")(
		models.Patch{models.FieldAgencyBalance: int64(0)},
		models.Patch{models.FieldCoins: int64(70)},
	)
	agent, ok := p.Get("agent")
	require.True(t, ok)
	assert.Equal(t, "agent", agent.UserId)
	got, _ = p.Get("user1")
	assert.Equal(t, int64(70), got.Coins)

	p.Forget("agent")
	_, ok = p.Get("agent")
	assert.False(t, ok)
}

func TestSession(t *testing.T) {
	newSession := func(store *mocks.AccountStore) (*Session, *Engine, *Projector) {
		e := newTestEngine(store, time.Hour)
		p := NewProjector()
		return NewSession(e, p, store), e, p
	}

	t.Run("Spend Loads Then Applies", func(t *testing.T) {
		store := new(mocks.AccountStore)
		store.On("GetAccount", mock.Anything, "user1").Return(&models.Account{UserId: "user1", Coins: 100}, nil).Once()

		s, e, _ := newSession(store)
		view, ok, err := s.SpendCoins(context.Background(), "user1", 30, "bubble-1")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(70), view.Coins)
		assert.Equal(t, int64(30), view.Wealth)
		assert.Equal(t, []string{"bubble-1"}, view.OwnedItems)

		// The second call reads the projected view, not the store.
		view, ok, err = s.SpendCoins(context.Background(), "user1", 80, "")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(70), view.Coins)

		store.On("ApplyUpdate", mock.Anything, mock.Anything).Return(nil).Once()
		require.NoError(t, e.Close(context.Background()))
		store.AssertExpectations(t)
	})

	t.Run("Exchange And Profile", func(t *testing.T) {
		store := new(mocks.AccountStore)
		store.On("GetAccount", mock.Anything, "user1").Return(&models.Account{UserId: "user1", Diamonds: 101}, nil).Once()

		s, _, _ := newSession(store)
		view, ok, err := s.ExchangeDiamonds(context.Background(), "user1", 101)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(50), view.Coins)
		assert.Equal(t, int64(0), view.Diamonds)

		view, ok, err = s.UpdateProfile(context.Background(), "user1", models.Patch{models.FieldName: "Mina"})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Mina", view.Name)
	})

	t.Run("Buy VIP", func(t *testing.T) {
		store := new(mocks.AccountStore)
		store.On("GetAccount", mock.Anything, "user1").Return(&models.Account{UserId: "user1", Coins: 1000}, nil).Once()
		store.On("ApplyUpdate", mock.Anything, mock.Anything).Return(nil).Once()

		s, e, _ := newSession(store)
		view, ok, err := s.BuyVIP(context.Background(), "user1", models.VIPPackage{Level: 2, Cost: 400})

		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, view.IsVip)
		assert.Equal(t, 2, view.VipLevel)
		assert.Equal(t, int64(600), view.Coins)

		require.NoError(t, e.Close(context.Background()))
		store.AssertExpectations(t)
	})

	t.Run("Agency Transfer", func(t *testing.T) {
		store := new(mocks.AccountStore)
		store.On("GetAccount", mock.Anything, "agent").Return(&models.Account{UserId: "agent", IsAgency: true, AgencyBalance: 500}, nil).Once()
		store.On("GetAccount", mock.Anything, "target").Return(&models.Account{UserId: "target", Coins: 3}, nil).Once()
		store.On("CommitTransfer", mock.Anything, mock.Anything).Return(nil).Once()

		s, e, p := newSession(store)
		agent, ok, err := s.AgencyTransfer(context.Background(), "agent", "target", 500)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(0), agent.AgencyBalance)
		target, _ := p.Get("target")
		assert.Equal(t, int64(503), target.Coins)
		assert.Equal(t, int64(500), target.RechargePoints)

		require.NoError(t, e.Close(context.Background()))
		store.AssertExpectations(t)
	})

	t.Run("Not An Agency", func(t *testing.T) {
		store := new(mocks.AccountStore)
		store.On("GetAccount", mock.Anything, "user1").Return(&models.Account{UserId: "user1", AgencyBalance: 500}, nil).Once()

		s, _, _ := newSession(store)
		_, ok, err := s.AgencyTransfer(context.Background(), "user1", "target", 100)

		assert.ErrorIs(t, err, ErrNotAgency)
		assert.False(t, ok)
	})

	t.Run("Unknown Account", func(t *testing.T) {
		store := new(mocks.AccountStore)
		store.On("GetAccount", mock.Anything, "ghost").Return(nil, storage.ErrAccountNotFound).Once()

		s, _, _ := newSession(store)
		_, _, err := s.SpendCoins(context.Background(), "ghost", 1, "")

		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	})
}
