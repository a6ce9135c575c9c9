package app

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qs-lzh/cinema-booking/config"
	"github.com/qs-lzh/cinema-booking/internal/repository/memory"
)

func newTestApp(t *testing.T, schedule string) *App {
	t.Helper()
	cfg := &config.Config{
		Env:                   "test",
		StoreDriver:           config.StoreDriverMemory,
		CancelCutoff:          30 * time.Minute,
		LockTTL:               time.Second,
		WaitlistSweepSchedule: schedule,
		FoodMenu:              map[string]int{"popcorn": 150},
	}
	a, err := New(cfg, zap.NewNop(), clockwork.NewFakeClock(), memory.NewStore(), nil, nil)
	require.NoError(t, err)
	return a
}

func TestApp_InitAndClose(t *testing.T) {
	a := newTestApp(t, "@every 1m")

	require.NoError(t, a.Init())
	assert.NoError(t, a.Close())
}

func TestApp_CloseAfterFailedInit(t *testing.T) {
	a := newTestApp(t, "not a schedule")

	assert.Error(t, a.Init())
	assert.NoError(t, a.Close())
}
