package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/chris/live-economy/pkg/feed"
	"github.com/chris/live-economy/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestOverlay(t *testing.T) {
	t.Run("Pending Wins", func(t *testing.T) {
		remote := models.Account{UserId: "user1", Coins: 100, Diamonds: 9}

		merged := Overlay(remote, models.Patch{models.FieldCoins: int64(80)})

		assert.Equal(t, int64(80), merged.Coins)
		assert.Equal(t, int64(9), merged.Diamonds)
		assert.Equal(t, int64(100), remote.Coins, "remote is not modified")
	})

	t.Run("Nothing Pending", func(t *testing.T) {
		frame := "https://cdn.example.com/f.png"
		remote := models.Account{UserId: "user1", Coins: 100, Frame: &frame, OwnedItems: []string{"a"}}

		assert.Equal(t, remote, Overlay(remote, nil))
		assert.Equal(t, remote, Overlay(remote, models.Patch{}))
	})

	t.Run("Owned Items Are Not Aliased", func(t *testing.T) {
		remote := models.Account{UserId: "user1", OwnedItems: []string{"a"}}
		pendingItems := []string{"a", "b"}

		merged := Overlay(remote, models.Patch{models.FieldOwnedItems: pendingItems})
		pendingItems[0] = "z"

		assert.Equal(t, []string{"a", "b"}, merged.OwnedItems)
		assert.Equal(t, []string{"a"}, remote.OwnedItems)
	})
}

type fakePending struct {
	values map[string]models.Patch
	locked bool
}

func (f *fakePending) WithPending(accountID string, fn func(models.Patch)) {
	f.locked = true
	defer func() { f.locked = false }()
	fn(f.values[accountID])
}

type fakeView struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

func (v *fakeView) Put(a models.Account) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.accounts[a.UserId] = a
}

func (v *fakeView) Forget(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.accounts, id)
}

type fakeFeed struct {
	snapshots []feed.Snapshot
	err       error
}

func (f *fakeFeed) Subscribe(ctx context.Context) (<-chan feed.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan feed.Snapshot, len(f.snapshots))
	for _, s := range f.snapshots {
		ch <- s
	}
	close(ch)
	return ch, nil
}

func TestReconciler(t *testing.T) {
	t.Run("Applies Feed", func(t *testing.T) {
		source := &fakeFeed{snapshots: []feed.Snapshot{
			{Account: models.Account{UserId: "user1", Coins: 100}},
			{Account: models.Account{UserId: "user2", Coins: 50}},
			{Account: models.Account{UserId: "user3"}},
			{Account: models.Account{UserId: "user3"}, Deleted: true},
		}}
		pending := &fakePending{values: map[string]models.Patch{
			"user1": {models.FieldCoins: int64(80), models.FieldIsVip: true},
		}}
		view := &fakeView{accounts: map[string]models.Account{}}

		r := NewReconciler(source, pending, view, discard)
		err := r.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, models.Account{UserId: "user1", Coins: 80, IsVip: true}, view.accounts["user1"])
		assert.Equal(t, models.Account{UserId: "user2", Coins: 50}, view.accounts["user2"])
		assert.NotContains(t, view.accounts, "user3")
	})

	t.Run("Notifies Outside The Pending Lock", func(t *testing.T) {
		source := &fakeFeed{snapshots: []feed.Snapshot{
			{Account: models.Account{UserId: "user1", Coins: 100}},
			{Account: models.Account{UserId: "user2"}, Deleted: true},
		}}
		pending := &fakePending{values: map[string]models.Patch{
			"user1": {models.FieldCoins: int64(80)},
		}}
		view := &fakeView{accounts: map[string]models.Account{}}

		var notified []feed.Snapshot
		r := NewReconciler(source, pending, view, discard)
		r.OnApplied(func(snap feed.Snapshot) {
			assert.False(t, pending.locked, "callback ran under the pending lock")
			notified = append(notified, snap)
		})
		require.NoError(t, r.Run(context.Background()))

		require.Len(t, notified, 2)
		assert.Equal(t, int64(80), notified[0].Account.Coins)
		assert.False(t, notified[0].Deleted)
		assert.Equal(t, "user2", notified[1].Account.UserId)
		assert.True(t, notified[1].Deleted)
	})

	t.Run("Subscribe Error", func(t *testing.T) {
		r := NewReconciler(&fakeFeed{err: errors.New("no stream")}, &fakePending{}, &fakeView{}, discard)
		assert.EqualError(t, r.Run(context.Background()), "no stream")
	})
}
