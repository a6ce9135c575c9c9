package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/repository/memory"
	"github.com/qs-lzh/cinema-booking/internal/service"
)

func TestCatalogService(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalogService(memory.NewStore())

	theater := &model.Theater{Name: "Cinepolis", Location: "Bengaluru"}
	require.NoError(t, catalog.CreateTheater(ctx, theater))
	require.NotZero(t, theater.ID)

	screen := &model.Screen{
		TheaterID:  theater.ID,
		Category:   model.CategoryMax,
		TotalSeats: 120,
		MovieName:  "Interstellar",
		ShowTime:   time.Now().Add(time.Hour),
	}
	require.NoError(t, catalog.CreateScreen(ctx, screen))

	got, err := catalog.GetScreen(ctx, screen.ID)
	require.NoError(t, err)
	assert.Equal(t, "Interstellar", got.MovieName)

	screens, err := catalog.ListScreensByTheater(ctx, theater.ID)
	require.NoError(t, err)
	assert.Len(t, screens, 1)

	all, err := catalog.ListAllScreens(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	theaters, err := catalog.ListTheaters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Theater{*theater}, theaters)
}

func TestCatalogService_Rejects(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalogService(memory.NewStore())

	assert.ErrorIs(t, catalog.CreateTheater(ctx, &model.Theater{}), service.ErrInvalidInput)

	theater := &model.Theater{Name: "Cinepolis"}
	require.NoError(t, catalog.CreateTheater(ctx, theater))

	err := catalog.CreateScreen(ctx, &model.Screen{TheaterID: theater.ID, Category: "IMAX", TotalSeats: 10})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	err = catalog.CreateScreen(ctx, &model.Screen{TheaterID: theater.ID, Category: model.CategoryGold})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	err = catalog.CreateScreen(ctx, &model.Screen{TheaterID: 9999, Category: model.CategoryGold, TotalSeats: 10})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = catalog.GetTheater(ctx, 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = catalog.GetScreen(ctx, 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = catalog.ListScreensByTheater(ctx, 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
