package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qs-lzh/cinema-booking/internal/cache"
	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/mq"
	"github.com/qs-lzh/cinema-booking/internal/repository/memory"
	"github.com/qs-lzh/cinema-booking/internal/service"
	"github.com/qs-lzh/cinema-booking/internal/service/domain"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, event mq.BookingEventMessage) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func ofType(t mq.EventType) any {
	return mock.MatchedBy(func(e mq.BookingEventMessage) bool { return e.Type == t })
}

type fixture struct {
	ctx     context.Context
	clock   *clockwork.FakeClock
	store   *memory.Store
	screen  *model.Screen
	catalog domain.CatalogService
	booking domain.BookingService
	waiting domain.WaitingListService
}

func newFixture(t *testing.T, seats int) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		clock: clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)),
		store: memory.NewStore(),
	}
	f.catalog = domain.NewCatalogService(f.store)
	f.waiting = domain.NewWaitingListService(f.store)
	f.booking = domain.NewBookingService(f.store, cache.NewLocalLocker(),
		domain.NewPricingService(map[string]int{"popcorn": 150}), f.clock, 30*time.Minute, zap.NewNop())

	theater := &model.Theater{Name: "PVR", Location: "Delhi"}
	require.NoError(t, f.catalog.CreateTheater(f.ctx, theater))
	f.screen = &model.Screen{
		TheaterID:  theater.ID,
		Category:   model.CategoryGold,
		TotalSeats: seats,
		MovieName:  "Oppenheimer",
		ShowTime:   f.clock.Now().Add(time.Hour),
	}
	require.NoError(t, f.catalog.CreateScreen(f.ctx, f.screen))
	return f
}

func TestBookingWorkflow_PublishesBookingEvents(t *testing.T) {
	f := newFixture(t, 1)
	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, ofType(mq.EventBookingConfirmed)).Return(nil).Once()
	pub.On("PublishEvent", mock.Anything, ofType(mq.EventWaitlistJoined)).Return(nil).Once()
	pub.On("PublishEvent", mock.Anything, ofType(mq.EventBookingCancelled)).Return(nil).Once()
	pub.On("PublishEvent", mock.Anything, ofType(mq.EventWaitlistPromoted)).Return(nil).Once()

	wf := NewBookingWorkflow(f.booking, pub, f.clock, zap.NewNop())

	booked, err := wf.Book(f.ctx, domain.BookRequest{ScreenID: f.screen.ID, UserName: "alice", Food: map[string]int{"popcorn": 1}})
	require.NoError(t, err)
	_, err = wf.Book(f.ctx, domain.BookRequest{ScreenID: f.screen.ID, UserName: "bob"})
	require.NoError(t, err)

	cancelled, err := wf.Cancel(f.ctx, booked.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", cancelled.Promoted.UserName)

	pub.AssertExpectations(t)

	confirmed := pub.Calls[0].Arguments.Get(1).(mq.BookingEventMessage)
	assert.Equal(t, "alice", confirmed.UserName)
	assert.Equal(t, 1, confirmed.SeatNumber)
	assert.Equal(t, "535.00", confirmed.Total)
	assert.Equal(t, "Booking successful. Seat number: 1", confirmed.Message)

	promoted := pub.Calls[3].Arguments.Get(1).(mq.BookingEventMessage)
	assert.Equal(t, "bob", promoted.UserName)
	assert.Equal(t, 1, promoted.SeatNumber)
}

func TestBookingWorkflow_PublishFailureKeepsBooking(t *testing.T) {
	f := newFixture(t, 1)
	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	wf := NewBookingWorkflow(f.booking, pub, f.clock, zap.NewNop())

	res, err := wf.Book(f.ctx, domain.BookRequest{ScreenID: f.screen.ID, UserName: "alice"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookStatusBooked, res.Status)

	a, err := f.booking.GetScreenAvailability(f.ctx, f.screen.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Free)
}

func TestBookingWorkflow_NoEventOnFailure(t *testing.T) {
	f := newFixture(t, 1)
	pub := new(mockPublisher)

	wf := NewBookingWorkflow(f.booking, pub, f.clock, zap.NewNop())

	_, err := wf.Book(f.ctx, domain.BookRequest{ScreenID: 9999, UserName: "alice"})
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = wf.Cancel(f.ctx, 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	pub.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
}

func TestWaitlistWorkflow_SweepSendsOnce(t *testing.T) {
	f := newFixture(t, 1)
	for _, user := range []string{"alice", "bob", "carol"} {
		_, err := f.booking.Book(f.ctx, domain.BookRequest{ScreenID: f.screen.ID, UserName: user})
		require.NoError(t, err)
	}

	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, ofType(mq.EventWaitlistClosed)).Return(nil)

	wf := NewWaitlistWorkflow(f.catalog, f.waiting, cache.NewLocalMarker(), pub, f.clock, 30*time.Minute, zap.NewNop())

	sent, err := wf.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "cutoff has not passed yet")

	f.clock.Advance(45 * time.Minute)

	sent, err = wf.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, err = wf.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	pub.AssertNumberOfCalls(t, "PublishEvent", 2)
	first := pub.Calls[0].Arguments.Get(1).(mq.BookingEventMessage)
	assert.Equal(t, "bob", first.UserName)

	entries, err := f.waiting.List(f.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "entries are kept")
}

func TestWaitlistWorkflow_SweepSkipsOldShows(t *testing.T) {
	f := newFixture(t, 1)
	for _, user := range []string{"alice", "bob"} {
		_, err := f.booking.Book(f.ctx, domain.BookRequest{ScreenID: f.screen.ID, UserName: user})
		require.NoError(t, err)
	}

	pub := new(mockPublisher)
	wf := NewWaitlistWorkflow(f.catalog, f.waiting, cache.NewLocalMarker(), pub, f.clock, 30*time.Minute, zap.NewNop())

	f.clock.Advance(26 * time.Hour)

	sent, err := wf.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	pub.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
}

func TestWaitlistWorkflow_StartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t, 1)
	wf := NewWaitlistWorkflow(f.catalog, f.waiting, cache.NewLocalMarker(), new(mockPublisher), f.clock, 30*time.Minute, zap.NewNop())

	assert.Error(t, wf.Start("every now and then"))

	require.NoError(t, wf.Start("@every 1h"))
	wf.Stop()
}

type fakeAcknowledger struct {
	acked, nacked bool
	err           error
}

func (a *fakeAcknowledger) Ack(uint64, bool) error        { a.acked = true; return a.err }
func (a *fakeAcknowledger) Nack(uint64, bool, bool) error { a.nacked = true; return a.err }
func (a *fakeAcknowledger) Reject(uint64, bool) error     { a.nacked = true; return a.err }

func TestNotificationWorkflow_HandleBookingEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	wf := NewNotificationWorkflow(zap.New(core))

	ack := &fakeAcknowledger{}
	err := wf.handleBookingEvent(amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"type":"waitlist.promoted","screen_id":3,"booking_id":9,"user_name":"carol","seat_number":2,"message":"A seat opened up. Seat number: 2"}`),
	})
	require.NoError(t, err)
	assert.True(t, ack.acked)

	entries := logs.FilterMessage("notify user").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "waitlist.promoted", fields["type"])
	assert.Equal(t, "carol", fields["user"])

	bad := &fakeAcknowledger{}
	err = wf.handleBookingEvent(amqp.Delivery{Acknowledger: bad, Body: []byte("not json")})
	assert.Error(t, err)
	assert.True(t, bad.nacked)
	assert.False(t, bad.acked)
}

func TestNotificationWorkflow_AckFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	wf := NewNotificationWorkflow(zap.New(core))
	closed := errors.New("channel closed")

	err := wf.handleBookingEvent(amqp.Delivery{
		Acknowledger: &fakeAcknowledger{err: closed},
		Body:         []byte(`{"type":"booking.confirmed","screen_id":1,"booking_id":2,"user_name":"alice","seat_number":1}`),
	})
	require.NoError(t, err)

	acks := logs.FilterMessage("failed to ack booking event").All()
	require.Len(t, acks, 1)
	assert.Equal(t, zap.WarnLevel, acks[0].Level)
	assert.Equal(t, "channel closed", acks[0].ContextMap()["error"])

	err = wf.handleBookingEvent(amqp.Delivery{
		Acknowledger: &fakeAcknowledger{err: closed},
		Body:         []byte("not json"),
	})
	assert.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("failed to nack booking event").Len())
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	pub := NewLogPublisher(zap.New(core))

	require.NoError(t, pub.PublishEvent(context.Background(), mq.BookingEventMessage{
		Type: mq.EventBookingConfirmed, ScreenID: 1, BookingID: 2, UserName: "alice", SeatNumber: 1,
	}))
	assert.Equal(t, 1, logs.FilterMessage("booking event").Len())
}
