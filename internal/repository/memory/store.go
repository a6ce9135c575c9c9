// Package memory is an in-process implementation of repository.Store.
// Transactions are serialized and roll back by restoring a snapshot.
package memory

import (
	"context"
	"slices"
	"sync"

	"gorm.io/gorm"

	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/repository"
)

type state struct {
	theaters    []model.Theater
	screens     []model.Screen
	bookings    []model.Booking
	foodOrders  []model.FoodOrder
	waitingList []model.WaitingListEntry
	lastID      uint
}

func (s *state) clone() *state {
	return &state{
		theaters:    slices.Clone(s.theaters),
		screens:     slices.Clone(s.screens),
		bookings:    slices.Clone(s.bookings),
		foodOrders:  slices.Clone(s.foodOrders),
		waitingList: slices.Clone(s.waitingList),
		lastID:      s.lastID,
	}
}

func (s *state) nextID() uint {
	s.lastID++
	return s.lastID
}

type Store struct {
	mu   *sync.Mutex
	data **state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	data := &state{}
	return &Store{
		mu:   &sync.Mutex{},
		data: &data,
	}
}

func (s *Store) Theaters() repository.TheaterRepo        { return &theaterRepo{s} }
func (s *Store) Screens() repository.ScreenRepo          { return &screenRepo{s} }
func (s *Store) Bookings() repository.BookingRepo        { return &bookingRepo{s} }
func (s *Store) FoodOrders() repository.FoodOrderRepo    { return &foodOrderRepo{s} }
func (s *Store) WaitingList() repository.WaitingListRepo { return &waitingListRepo{s} }

// Transaction runs fn while holding the store lock. Nested calls reuse the
// outer transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.data).clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

// view runs fn against the current state, locking unless inside a transaction.
func (s *Store) view(fn func(st *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(*s.data)
}

type theaterRepo struct{ s *Store }

func (r *theaterRepo) WithTx(*gorm.DB) repository.TheaterRepo { return r }

func (r *theaterRepo) Create(_ context.Context, theater *model.Theater) error {
	return r.s.view(func(st *state) error {
		theater.ID = st.nextID()
		st.theaters = append(st.theaters, *theater)
		return nil
	})
}

func (r *theaterRepo) GetByID(_ context.Context, id uint) (*model.Theater, error) {
	var out *model.Theater
	err := r.s.view(func(st *state) error {
		i := slices.IndexFunc(st.theaters, func(t model.Theater) bool { return t.ID == id })
		if i < 0 {
			return repository.ErrRecordNotFound
		}
		t := st.theaters[i]
		out = &t
		return nil
	})
	return out, err
}

func (r *theaterRepo) ListAll(_ context.Context) ([]model.Theater, error) {
	var out []model.Theater
	err := r.s.view(func(st *state) error {
		out = slices.Clone(st.theaters)
		return nil
	})
	return out, err
}

type screenRepo struct{ s *Store }

func (r *screenRepo) WithTx(*gorm.DB) repository.ScreenRepo { return r }

func (r *screenRepo) Create(_ context.Context, screen *model.Screen) error {
	return r.s.view(func(st *state) error {
		screen.ID = st.nextID()
		st.screens = append(st.screens, *screen)
		return nil
	})
}

func (r *screenRepo) GetByID(_ context.Context, id uint) (*model.Screen, error) {
	return r.find(func(sc model.Screen) bool { return sc.ID == id })
}

// LockByID is GetByID, transactions already hold the store lock.
func (r *screenRepo) LockByID(ctx context.Context, id uint) (*model.Screen, error) {
	return r.GetByID(ctx, id)
}

func (r *screenRepo) FindByTheaterAndCategory(_ context.Context, theaterID uint, category model.ScreenCategory) (*model.Screen, error) {
	return r.find(func(sc model.Screen) bool {
		return sc.TheaterID == theaterID && sc.Category == category
	})
}

func (r *screenRepo) find(match func(model.Screen) bool) (*model.Screen, error) {
	var out *model.Screen
	err := r.s.view(func(st *state) error {
		i := slices.IndexFunc(st.screens, match)
		if i < 0 {
			return repository.ErrRecordNotFound
		}
		sc := st.screens[i]
		out = &sc
		return nil
	})
	return out, err
}

func (r *screenRepo) ListByTheater(_ context.Context, theaterID uint) ([]model.Screen, error) {
	var out []model.Screen
	err := r.s.view(func(st *state) error {
		for _, sc := range st.screens {
			if sc.TheaterID == theaterID {
				out = append(out, sc)
			}
		}
		return nil
	})
	return out, err
}

func (r *screenRepo) ListAll(_ context.Context) ([]model.Screen, error) {
	var out []model.Screen
	err := r.s.view(func(st *state) error {
		out = slices.Clone(st.screens)
		return nil
	})
	return out, err
}

type bookingRepo struct{ s *Store }

func (r *bookingRepo) WithTx(*gorm.DB) repository.BookingRepo { return r }

func (r *bookingRepo) Create(_ context.Context, booking *model.Booking) error {
	return r.s.view(func(st *state) error {
		booking.ID = st.nextID()
		st.bookings = append(st.bookings, *booking)
		return nil
	})
}

func (r *bookingRepo) GetByID(_ context.Context, id uint) (*model.Booking, error) {
	var out *model.Booking
	err := r.s.view(func(st *state) error {
		i := slices.IndexFunc(st.bookings, func(b model.Booking) bool { return b.ID == id })
		if i < 0 {
			return repository.ErrRecordNotFound
		}
		b := st.bookings[i]
		out = &b
		return nil
	})
	return out, err
}

func (r *bookingRepo) CountActiveByScreen(_ context.Context, screenID uint) (int, error) {
	var n int
	err := r.s.view(func(st *state) error {
		for _, b := range st.bookings {
			if b.ScreenID == screenID && !b.Cancelled {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *bookingRepo) MarkCancelled(_ context.Context, id uint) error {
	return r.s.view(func(st *state) error {
		i := slices.IndexFunc(st.bookings, func(b model.Booking) bool { return b.ID == id })
		if i < 0 {
			return repository.ErrRecordNotFound
		}
		st.bookings[i].Cancelled = true
		return nil
	})
}

func (r *bookingRepo) ListByScreen(_ context.Context, screenID uint) ([]model.Booking, error) {
	var out []model.Booking
	err := r.s.view(func(st *state) error {
		for _, b := range st.bookings {
			if b.ScreenID == screenID {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, err
}

type foodOrderRepo struct{ s *Store }

func (r *foodOrderRepo) WithTx(*gorm.DB) repository.FoodOrderRepo { return r }

func (r *foodOrderRepo) Create(_ context.Context, order *model.FoodOrder) error {
	return r.s.view(func(st *state) error {
		order.ID = st.nextID()
		st.foodOrders = append(st.foodOrders, *order)
		return nil
	})
}

func (r *foodOrderRepo) ListByBooking(_ context.Context, bookingID uint) ([]model.FoodOrder, error) {
	var out []model.FoodOrder
	err := r.s.view(func(st *state) error {
		for _, o := range st.foodOrders {
			if o.BookingID == bookingID {
				out = append(out, o)
			}
		}
		return nil
	})
	return out, err
}

type waitingListRepo struct{ s *Store }

func (r *waitingListRepo) WithTx(*gorm.DB) repository.WaitingListRepo { return r }

func (r *waitingListRepo) Create(_ context.Context, entry *model.WaitingListEntry) error {
	return r.s.view(func(st *state) error {
		entry.ID = st.nextID()
		st.waitingList = append(st.waitingList, *entry)
		return nil
	})
}

func (r *waitingListRepo) GetByID(_ context.Context, id uint) (*model.WaitingListEntry, error) {
	var out *model.WaitingListEntry
	err := r.s.view(func(st *state) error {
		i := slices.IndexFunc(st.waitingList, func(e model.WaitingListEntry) bool { return e.ID == id })
		if i < 0 {
			return repository.ErrRecordNotFound
		}
		e := st.waitingList[i]
		out = &e
		return nil
	})
	return out, err
}

func (r *waitingListRepo) FirstByScreen(ctx context.Context, screenID uint) (*model.WaitingListEntry, error) {
	entries, err := r.List(ctx, &screenID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, repository.ErrRecordNotFound
	}
	return &entries[0], nil
}

func (r *waitingListRepo) Delete(_ context.Context, id uint) error {
	return r.s.view(func(st *state) error {
		i := slices.IndexFunc(st.waitingList, func(e model.WaitingListEntry) bool { return e.ID == id })
		if i < 0 {
			return repository.ErrRecordNotFound
		}
		st.waitingList = slices.Delete(st.waitingList, i, i+1)
		return nil
	})
}

func (r *waitingListRepo) List(_ context.Context, screenID *uint) ([]model.WaitingListEntry, error) {
	var out []model.WaitingListEntry
	err := r.s.view(func(st *state) error {
		for _, e := range st.waitingList {
			if screenID == nil || e.ScreenID == *screenID {
				out = append(out, e)
			}
		}
		return nil
	})
	slices.SortStableFunc(out, func(a, b model.WaitingListEntry) int {
		if c := a.RequestedAt.Compare(b.RequestedAt); c != 0 {
			return c
		}
		return int(a.ID) - int(b.ID)
	})
	return out, err
}
