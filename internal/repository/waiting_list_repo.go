package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs-lzh/cinema-booking/internal/model"
)

type WaitingListRepo interface {
	WithTx(tx *gorm.DB) WaitingListRepo
	Create(ctx context.Context, entry *model.WaitingListEntry) error
	GetByID(ctx context.Context, id uint) (*model.WaitingListEntry, error)
	// FirstByScreen returns the earliest request for the screen.
	FirstByScreen(ctx context.Context, screenID uint) (*model.WaitingListEntry, error)
	Delete(ctx context.Context, id uint) error
	// List returns entries oldest first, across all screens when screenID is nil.
	List(ctx context.Context, screenID *uint) ([]model.WaitingListEntry, error)
}

type waitingListRepoGorm struct {
	db *gorm.DB
}

var _ WaitingListRepo = (*waitingListRepoGorm)(nil)

func NewWaitingListRepoGorm(db *gorm.DB) *waitingListRepoGorm {
	return &waitingListRepoGorm{
		db: db,
	}
}

func (r *waitingListRepoGorm) WithTx(tx *gorm.DB) WaitingListRepo {
	return &waitingListRepoGorm{
		db: tx,
	}
}

func (r *waitingListRepoGorm) Create(ctx context.Context, entry *model.WaitingListEntry) error {
	return gorm.G[model.WaitingListEntry](r.db).Create(ctx, entry)
}

func (r *waitingListRepoGorm) GetByID(ctx context.Context, id uint) (*model.WaitingListEntry, error) {
	entry, err := gorm.G[model.WaitingListEntry](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *waitingListRepoGorm) FirstByScreen(ctx context.Context, screenID uint) (*model.WaitingListEntry, error) {
	entry, err := gorm.G[model.WaitingListEntry](r.db).
		Where("screen_id = ?", screenID).
		Order("requested_at ASC").
		Order("id ASC").
		First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *waitingListRepoGorm) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.WaitingListEntry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *waitingListRepoGorm) List(ctx context.Context, screenID *uint) ([]model.WaitingListEntry, error) {
	q := gorm.G[model.WaitingListEntry](r.db).Order("requested_at ASC").Order("id ASC")
	if screenID != nil {
		q = q.Where("screen_id = ?", *screenID)
	}
	return q.Find(ctx)
}
