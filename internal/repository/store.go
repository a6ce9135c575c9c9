package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/qs-lzh/cinema-booking/internal/model"
)

var ErrRecordNotFound = errors.New("record not found")

// Store is the unit of work the booking engine runs against.
// Repositories returned inside Transaction share the transaction.
type Store interface {
	Theaters() TheaterRepo
	Screens() ScreenRepo
	Bookings() BookingRepo
	FoodOrders() FoodOrderRepo
	WaitingList() WaitingListRepo
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db          *gorm.DB
	theaters    TheaterRepo
	screens     ScreenRepo
	bookings    BookingRepo
	foodOrders  FoodOrderRepo
	waitingList WaitingListRepo
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:          db,
		theaters:    NewTheaterRepoGorm(db),
		screens:     NewScreenRepoGorm(db),
		bookings:    NewBookingRepoGorm(db),
		foodOrders:  NewFoodOrderRepoGorm(db),
		waitingList: NewWaitingListRepoGorm(db),
	}
}

func (s *GormStore) Theaters() TheaterRepo        { return s.theaters }
func (s *GormStore) Screens() ScreenRepo          { return s.screens }
func (s *GormStore) Bookings() BookingRepo        { return s.bookings }
func (s *GormStore) FoodOrders() FoodOrderRepo    { return s.foodOrders }
func (s *GormStore) WaitingList() WaitingListRepo { return s.waitingList }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.withTx(tx))
	})
}

func (s *GormStore) withTx(tx *gorm.DB) *GormStore {
	return &GormStore{
		db:          tx,
		theaters:    s.theaters.WithTx(tx),
		screens:     s.screens.WithTx(tx),
		bookings:    s.bookings.WithTx(tx),
		foodOrders:  s.foodOrders.WithTx(tx),
		waitingList: s.waitingList.WithTx(tx),
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
