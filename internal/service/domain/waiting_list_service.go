package domain

import (
	"context"

	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/repository"
)

type WaitingListService interface {
	// List returns entries oldest first, for one screen when screenID is set.
	List(ctx context.Context, screenID *uint) ([]model.WaitingListEntry, error)
	Get(ctx context.Context, id uint) (*model.WaitingListEntry, error)
}

type waitingListService struct {
	store repository.Store
}

var _ WaitingListService = (*waitingListService)(nil)

func NewWaitingListService(store repository.Store) *waitingListService {
	return &waitingListService{
		store: store,
	}
}

func (s *waitingListService) List(ctx context.Context, screenID *uint) ([]model.WaitingListEntry, error) {
	return s.store.WaitingList().List(ctx, screenID)
}

func (s *waitingListService) Get(ctx context.Context, id uint) (*model.WaitingListEntry, error) {
	entry, err := s.store.WaitingList().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return entry, nil
}
