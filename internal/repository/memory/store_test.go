package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/repository"
)

func seedScreen(t *testing.T, s *Store) model.Screen {
	t.Helper()
	ctx := context.Background()
	theater := &model.Theater{Name: "PVR Cinemas", Location: "Mumbai"}
	require.NoError(t, s.Theaters().Create(ctx, theater))
	screen := &model.Screen{
		TheaterID:  theater.ID,
		Category:   model.CategoryGold,
		TotalSeats: 2,
		MovieName:  "Avengers: Endgame",
		ShowTime:   time.Now().Add(2 * time.Hour),
	}
	require.NoError(t, s.Screens().Create(ctx, screen))
	return *screen
}

func TestStore_TransactionCommits(t *testing.T) {
	s := NewStore()
	screen := seedScreen(t, s)
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx repository.Store) error {
		b := &model.Booking{ScreenID: screen.ID, UserName: "alice", SeatNumber: 1, HasFood: true}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		return tx.FoodOrders().Create(ctx, &model.FoodOrder{
			BookingID: b.ID, ItemName: "popcorn", Quantity: 2, Price: decimal.NewFromInt(270),
		})
	})
	require.NoError(t, err)

	n, err := s.Bookings().CountActiveByScreen(ctx, screen.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := NewStore()
	screen := seedScreen(t, s)
	ctx := context.Background()

	existing := &model.Booking{ScreenID: screen.ID, UserName: "alice", SeatNumber: 1}
	require.NoError(t, s.Bookings().Create(ctx, existing))

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Bookings().MarkCancelled(ctx, existing.ID); err != nil {
			return err
		}
		if err := tx.Bookings().Create(ctx, &model.Booking{ScreenID: screen.ID, UserName: "bob", SeatNumber: 2}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Bookings().GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.False(t, got.Cancelled)

	all, err := s.Bookings().ListByScreen(ctx, screen.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_WaitingListOrdering(t *testing.T) {
	s := NewStore()
	screen := seedScreen(t, s)
	other := seedScreen(t, s)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	entries := []model.WaitingListEntry{
		{ScreenID: screen.ID, UserName: "carol", RequestedAt: base.Add(2 * time.Minute)},
		{ScreenID: other.ID, UserName: "dave", RequestedAt: base.Add(time.Minute)},
		{ScreenID: screen.ID, UserName: "erin", RequestedAt: base},
	}
	for i := range entries {
		require.NoError(t, s.WaitingList().Create(ctx, &entries[i]))
	}

	all, err := s.WaitingList().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"erin", "dave", "carol"}, []string{all[0].UserName, all[1].UserName, all[2].UserName})

	first, err := s.WaitingList().FirstByScreen(ctx, screen.ID)
	require.NoError(t, err)
	assert.Equal(t, "erin", first.UserName)

	require.NoError(t, s.WaitingList().Delete(ctx, first.ID))
	assert.ErrorIs(t, s.WaitingList().Delete(ctx, first.ID), repository.ErrRecordNotFound)

	filtered, err := s.WaitingList().List(ctx, &screen.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "carol", filtered[0].UserName)
}

func TestStore_NotFound(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Screens().GetByID(ctx, 42)
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)

	_, err = s.Screens().FindByTheaterAndCategory(ctx, 1, model.CategoryMax)
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)

	_, err = s.WaitingList().FirstByScreen(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)

	assert.ErrorIs(t, s.Bookings().MarkCancelled(ctx, 7), repository.ErrRecordNotFound)
}
