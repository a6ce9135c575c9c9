package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/qs-lzh/cinema-booking/internal/cache"
	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/repository"
	"github.com/qs-lzh/cinema-booking/internal/service"
)

// ScreenLocker hands out an exclusive lock per key.
type ScreenLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type BookRequest struct {
	// ScreenID wins over TheaterID and Category when set.
	ScreenID  uint
	TheaterID uint
	Category  model.ScreenCategory
	UserName  string
	Food      map[string]int
}

type BookStatus string

const (
	BookStatusBooked BookStatus = "booked"
	BookStatusQueued BookStatus = "queued"
)

type BookResult struct {
	Status       BookStatus
	Screen       *model.Screen
	Booking      *model.Booking
	FoodOrders   []model.FoodOrder
	WaitingEntry *model.WaitingListEntry
	Quote        *Quote
}

func (r *BookResult) Message() string {
	if r.Status == BookStatusQueued {
		return "Screen full. Added to waiting list."
	}
	return fmt.Sprintf("Booking successful. Seat number: %d", r.Booking.SeatNumber)
}

type CancelStatus string

const (
	CancelStatusCancelled CancelStatus = "cancelled"
	CancelStatusPromoted  CancelStatus = "promoted"
)

type CancelResult struct {
	Status   CancelStatus
	Screen   *model.Screen
	Booking  *model.Booking
	Promoted *model.Booking
	// PromotedEntry is the waiting list entry that was consumed, already deleted.
	PromotedEntry *model.WaitingListEntry
}

func (r *CancelResult) Message() string {
	if r.Status == CancelStatusPromoted {
		return fmt.Sprintf("Ticket cancelled and allocated to %s from waiting list", r.Promoted.UserName)
	}
	return "Ticket cancelled successfully"
}

type Availability struct {
	Free    int `json:"seats_free"`
	Total   int `json:"seats_total"`
	Waiting int `json:"waiting"`
}

// BookingDetail is a booking with the catalog rows it refers to.
type BookingDetail struct {
	Booking    model.Booking     `json:"booking"`
	Theater    model.Theater     `json:"theater"`
	Screen     model.Screen      `json:"screen"`
	FoodOrders []model.FoodOrder `json:"food_orders"`
}

type BookingService interface {
	Book(ctx context.Context, req BookRequest) (*BookResult, error)
	Cancel(ctx context.Context, bookingID uint) (*CancelResult, error)
	GetAvailability(ctx context.Context, theaterID uint, category model.ScreenCategory) (Availability, error)
	GetScreenAvailability(ctx context.Context, screenID uint) (Availability, error)
	// ListActiveBookings returns every non-cancelled booking, by screen then seat.
	ListActiveBookings(ctx context.Context) ([]BookingDetail, error)
	GetBooking(ctx context.Context, id uint) (*BookingDetail, error)
}

type bookingService struct {
	store   repository.Store
	locker  ScreenLocker
	pricing PricingService
	clock   clockwork.Clock
	cutoff  time.Duration
	logger  *zap.Logger
}

var _ BookingService = (*bookingService)(nil)

func NewBookingService(store repository.Store, locker ScreenLocker, pricing PricingService,
	clock clockwork.Clock, cutoff time.Duration, logger *zap.Logger) *bookingService {
	return &bookingService{
		store:   store,
		locker:  locker,
		pricing: pricing,
		clock:   clock,
		cutoff:  cutoff,
		logger:  logger,
	}
}

func (s *bookingService) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		return nil, fmt.Errorf("%w: user name is required", service.ErrInvalidInput)
	}
	if err := s.pricing.ValidateFood(req.Food); err != nil {
		return nil, err
	}

	screen, err := s.resolveScreen(ctx, req)
	if err != nil {
		return nil, err
	}
	quote, err := s.pricing.Quote(screen.Category, req.Food)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, cache.MakeScreenLockKey(screen.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrStoreFailure, err)
	}
	defer unlock()

	result := &BookResult{Screen: screen, Quote: quote}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		// row lock keeps the count below valid even if the screen lock expired
		if _, err := tx.Screens().LockByID(ctx, screen.ID); err != nil {
			return err
		}
		occupied, err := tx.Bookings().CountActiveByScreen(ctx, screen.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if occupied >= screen.TotalSeats {
			if s.windowClosed(now, screen) {
				return fmt.Errorf("%w: cannot join waiting list within %s of show",
					service.ErrWindowClosed, formatCutoff(s.cutoff))
			}
			entry := &model.WaitingListEntry{
				ScreenID:    screen.ID,
				UserName:    userName,
				RequestedAt: now,
			}
			if err := tx.WaitingList().Create(ctx, entry); err != nil {
				return err
			}
			result.Status = BookStatusQueued
			result.WaitingEntry = entry
			return nil
		}

		// seat follows the active count, numbers freed by cancellation can repeat
		booking := &model.Booking{
			ScreenID:   screen.ID,
			UserName:   userName,
			SeatNumber: occupied + 1,
			HasFood:    len(req.Food) > 0,
			CreatedAt:  now,
		}
		if err := tx.Bookings().Create(ctx, booking); err != nil {
			return err
		}
		for _, line := range quote.Lines {
			order := model.FoodOrder{
				BookingID: booking.ID,
				ItemName:  line.Item,
				Quantity:  line.Quantity,
				Price:     line.Price,
			}
			if err := tx.FoodOrders().Create(ctx, &order); err != nil {
				return err
			}
			result.FoodOrders = append(result.FoodOrders, order)
		}
		result.Status = BookStatusBooked
		result.Booking = booking
		return nil
	})
	if err != nil {
		return nil, s.writeFailure("book", err, zap.Uint("screen_id", screen.ID), zap.String("user", userName))
	}

	if result.Status == BookStatusQueued {
		s.logger.Info("added to waiting list",
			zap.Uint("screen_id", screen.ID),
			zap.Uint("entry_id", result.WaitingEntry.ID),
			zap.String("user", userName))
	} else {
		s.logger.Info("booking confirmed",
			zap.Uint("screen_id", screen.ID),
			zap.Uint("booking_id", result.Booking.ID),
			zap.Int("seat", result.Booking.SeatNumber),
			zap.String("total", quote.Total.StringFixed(2)))
	}
	return result, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID uint) (*CancelResult, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", service.ErrStoreFailure, err)
	}

	unlock, err := s.locker.Lock(ctx, cache.MakeScreenLockKey(booking.ScreenID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrStoreFailure, err)
	}
	defer unlock()

	result := &CancelResult{Status: CancelStatusCancelled}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		screen, err := tx.Screens().LockByID(ctx, booking.ScreenID)
		if err != nil {
			return err
		}
		// re-read under the lock, another cancel may have won
		booking, err := tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Cancelled {
			return service.ErrAlreadyCancelled
		}
		now := s.clock.Now()
		if s.windowClosed(now, screen) {
			return fmt.Errorf("%w: cannot cancel ticket within %s of show",
				service.ErrWindowClosed, formatCutoff(s.cutoff))
		}

		if err := tx.Bookings().MarkCancelled(ctx, booking.ID); err != nil {
			return err
		}
		booking.Cancelled = true
		result.Booking = booking
		result.Screen = screen

		entry, err := tx.WaitingList().FirstByScreen(ctx, screen.ID)
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		promoted := &model.Booking{
			ScreenID:   screen.ID,
			UserName:   entry.UserName,
			SeatNumber: booking.SeatNumber,
			CreatedAt:  now,
		}
		if err := tx.Bookings().Create(ctx, promoted); err != nil {
			return err
		}
		if err := tx.WaitingList().Delete(ctx, entry.ID); err != nil {
			return err
		}
		result.Status = CancelStatusPromoted
		result.Promoted = promoted
		result.PromotedEntry = entry
		return nil
	})
	if err != nil {
		return nil, s.writeFailure("cancel", err, zap.Uint("booking_id", bookingID))
	}

	if result.Status == CancelStatusPromoted {
		s.logger.Info("booking cancelled, waiting list promoted",
			zap.Uint("booking_id", bookingID),
			zap.Uint("promoted_booking_id", result.Promoted.ID),
			zap.String("promoted_user", result.Promoted.UserName),
			zap.Int("seat", result.Promoted.SeatNumber))
	} else {
		s.logger.Info("booking cancelled", zap.Uint("booking_id", bookingID))
	}
	return result, nil
}

func (s *bookingService) GetAvailability(ctx context.Context, theaterID uint, category model.ScreenCategory) (Availability, error) {
	screen, err := s.store.Screens().FindByTheaterAndCategory(ctx, theaterID, category)
	if errors.Is(err, repository.ErrRecordNotFound) {
		return Availability{}, nil
	}
	if err != nil {
		return Availability{}, err
	}
	return s.availability(ctx, screen)
}

func (s *bookingService) GetScreenAvailability(ctx context.Context, screenID uint) (Availability, error) {
	screen, err := s.store.Screens().GetByID(ctx, screenID)
	if err != nil {
		return Availability{}, notFound(err)
	}
	return s.availability(ctx, screen)
}

func (s *bookingService) availability(ctx context.Context, screen *model.Screen) (Availability, error) {
	occupied, err := s.store.Bookings().CountActiveByScreen(ctx, screen.ID)
	if err != nil {
		return Availability{}, err
	}
	waiting, err := s.store.WaitingList().List(ctx, &screen.ID)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		Free:    screen.TotalSeats - occupied,
		Total:   screen.TotalSeats,
		Waiting: len(waiting),
	}, nil
}

func (s *bookingService) ListActiveBookings(ctx context.Context) ([]BookingDetail, error) {
	screens, err := s.store.Screens().ListAll(ctx)
	if err != nil {
		return nil, err
	}

	theaters := make(map[uint]model.Theater)
	details := []BookingDetail{}
	for _, screen := range screens {
		bookings, err := s.store.Bookings().ListByScreen(ctx, screen.ID)
		if err != nil {
			return nil, err
		}
		for _, booking := range bookings {
			if booking.Cancelled {
				continue
			}
			theater, ok := theaters[screen.TheaterID]
			if !ok {
				t, err := s.store.Theaters().GetByID(ctx, screen.TheaterID)
				if err != nil {
					return nil, err
				}
				theater = *t
				theaters[screen.TheaterID] = theater
			}
			details = append(details, BookingDetail{Booking: booking, Theater: theater, Screen: screen})
		}
	}

	slices.SortStableFunc(details, func(a, b BookingDetail) int {
		if a.Screen.ID != b.Screen.ID {
			return cmp.Compare(a.Screen.ID, b.Screen.ID)
		}
		return cmp.Compare(a.Booking.SeatNumber, b.Booking.SeatNumber)
	})
	return details, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*BookingDetail, error) {
	booking, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	screen, err := s.store.Screens().GetByID(ctx, booking.ScreenID)
	if err != nil {
		return nil, err
	}
	theater, err := s.store.Theaters().GetByID(ctx, screen.TheaterID)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.FoodOrders().ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.FoodOrder{}
	}
	return &BookingDetail{
		Booking:    *booking,
		Theater:    *theater,
		Screen:     *screen,
		FoodOrders: orders,
	}, nil
}

func (s *bookingService) resolveScreen(ctx context.Context, req BookRequest) (*model.Screen, error) {
	var (
		screen *model.Screen
		err    error
	)
	if req.ScreenID != 0 {
		screen, err = s.store.Screens().GetByID(ctx, req.ScreenID)
	} else {
		if !req.Category.Valid() {
			return nil, fmt.Errorf("%w: unknown screen category %q", service.ErrInvalidInput, req.Category)
		}
		screen, err = s.store.Screens().FindByTheaterAndCategory(ctx, req.TheaterID, req.Category)
	}
	if errors.Is(err, repository.ErrRecordNotFound) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrStoreFailure, err)
	}
	return screen, nil
}

func (s *bookingService) windowClosed(now time.Time, screen *model.Screen) bool {
	return now.Add(s.cutoff).After(screen.ShowTime)
}

// writeFailure keeps domain errors as they are and folds everything else
// into ErrStoreFailure.
func (s *bookingService) writeFailure(op string, err error, fields ...zap.Field) error {
	switch {
	case errors.Is(err, service.ErrWindowClosed), errors.Is(err, service.ErrAlreadyCancelled):
		return err
	case errors.Is(err, repository.ErrRecordNotFound):
		return service.ErrNotFound
	}
	s.logger.Error(op+" failed, rolled back", append(fields, zap.Error(err))...)
	return fmt.Errorf("%w: %v", service.ErrStoreFailure, err)
}

func formatCutoff(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return d.String()
}
