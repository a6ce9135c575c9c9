package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs-lzh/cinema-booking/internal/model"
)

type TheaterRepo interface {
	WithTx(tx *gorm.DB) TheaterRepo
	Create(ctx context.Context, theater *model.Theater) error
	GetByID(ctx context.Context, id uint) (*model.Theater, error)
	ListAll(ctx context.Context) ([]model.Theater, error)
}

type theaterRepoGorm struct {
	db *gorm.DB
}

var _ TheaterRepo = (*theaterRepoGorm)(nil)

func NewTheaterRepoGorm(db *gorm.DB) *theaterRepoGorm {
	return &theaterRepoGorm{
		db: db,
	}
}

func (r *theaterRepoGorm) WithTx(tx *gorm.DB) TheaterRepo {
	return &theaterRepoGorm{
		db: tx,
	}
}

func (r *theaterRepoGorm) Create(ctx context.Context, theater *model.Theater) error {
	return gorm.G[model.Theater](r.db).Create(ctx, theater)
}

func (r *theaterRepoGorm) GetByID(ctx context.Context, id uint) (*model.Theater, error) {
	theater, err := gorm.G[model.Theater](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &theater, nil
}

func (r *theaterRepoGorm) ListAll(ctx context.Context) ([]model.Theater, error) {
	return gorm.G[model.Theater](r.db).Order("id").Find(ctx)
}
