package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/repository"
	"github.com/qs-lzh/cinema-booking/internal/service"
)

// CatalogService manages theaters and screens. The booking engine only
// reads what is created here.
type CatalogService interface {
	CreateTheater(ctx context.Context, theater *model.Theater) error
	CreateScreen(ctx context.Context, screen *model.Screen) error
	GetTheater(ctx context.Context, id uint) (*model.Theater, error)
	ListTheaters(ctx context.Context) ([]model.Theater, error)
	GetScreen(ctx context.Context, id uint) (*model.Screen, error)
	ListScreensByTheater(ctx context.Context, theaterID uint) ([]model.Screen, error)
	ListAllScreens(ctx context.Context) ([]model.Screen, error)
}

type catalogService struct {
	store repository.Store
}

var _ CatalogService = (*catalogService)(nil)

func NewCatalogService(store repository.Store) *catalogService {
	return &catalogService{
		store: store,
	}
}

func (s *catalogService) CreateTheater(ctx context.Context, theater *model.Theater) error {
	if strings.TrimSpace(theater.Name) == "" {
		return fmt.Errorf("%w: theater name is required", service.ErrInvalidInput)
	}
	return s.store.Theaters().Create(ctx, theater)
}

func (s *catalogService) CreateScreen(ctx context.Context, screen *model.Screen) error {
	if !screen.Category.Valid() {
		return fmt.Errorf("%w: unknown screen category %q", service.ErrInvalidInput, screen.Category)
	}
	if screen.TotalSeats <= 0 {
		return fmt.Errorf("%w: total seats must be positive", service.ErrInvalidInput)
	}

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Theaters().GetByID(ctx, screen.TheaterID); err != nil {
			return notFound(err)
		}
		return tx.Screens().Create(ctx, screen)
	})
}

func (s *catalogService) GetTheater(ctx context.Context, id uint) (*model.Theater, error) {
	theater, err := s.store.Theaters().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return theater, nil
}

func (s *catalogService) ListTheaters(ctx context.Context) ([]model.Theater, error) {
	return s.store.Theaters().ListAll(ctx)
}

func (s *catalogService) GetScreen(ctx context.Context, id uint) (*model.Screen, error) {
	screen, err := s.store.Screens().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return screen, nil
}

func (s *catalogService) ListScreensByTheater(ctx context.Context, theaterID uint) ([]model.Screen, error) {
	if _, err := s.GetTheater(ctx, theaterID); err != nil {
		return nil, err
	}
	return s.store.Screens().ListByTheater(ctx, theaterID)
}

func (s *catalogService) ListAllScreens(ctx context.Context) ([]model.Screen, error) {
	return s.store.Screens().ListAll(ctx)
}

// notFound maps a missing row to service.ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, repository.ErrRecordNotFound) {
		return service.ErrNotFound
	}
	return err
}
