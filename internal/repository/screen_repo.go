package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs-lzh/cinema-booking/internal/model"
)

type ScreenRepo interface {
	WithTx(tx *gorm.DB) ScreenRepo
	Create(ctx context.Context, screen *model.Screen) error
	GetByID(ctx context.Context, id uint) (*model.Screen, error)
	// LockByID reads the screen with SELECT ... FOR UPDATE, holding the row
	// until the surrounding transaction ends.
	LockByID(ctx context.Context, id uint) (*model.Screen, error)
	FindByTheaterAndCategory(ctx context.Context, theaterID uint, category model.ScreenCategory) (*model.Screen, error)
	ListByTheater(ctx context.Context, theaterID uint) ([]model.Screen, error)
	ListAll(ctx context.Context) ([]model.Screen, error)
}

type screenRepoGorm struct {
	db *gorm.DB
}

var _ ScreenRepo = (*screenRepoGorm)(nil)

func NewScreenRepoGorm(db *gorm.DB) *screenRepoGorm {
	return &screenRepoGorm{
		db: db,
	}
}

func (r *screenRepoGorm) WithTx(tx *gorm.DB) ScreenRepo {
	return &screenRepoGorm{
		db: tx,
	}
}

func (r *screenRepoGorm) Create(ctx context.Context, screen *model.Screen) error {
	return gorm.G[model.Screen](r.db).Create(ctx, screen)
}

func (r *screenRepoGorm) GetByID(ctx context.Context, id uint) (*model.Screen, error) {
	screen, err := gorm.G[model.Screen](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &screen, nil
}

func (r *screenRepoGorm) LockByID(ctx context.Context, id uint) (*model.Screen, error) {
	var screen model.Screen
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&screen).Error
	if err != nil {
		return nil, translate(err)
	}
	return &screen, nil
}

// FindByTheaterAndCategory returns the lowest-id screen when several match.
func (r *screenRepoGorm) FindByTheaterAndCategory(ctx context.Context, theaterID uint, category model.ScreenCategory) (*model.Screen, error) {
	screen, err := gorm.G[model.Screen](r.db).
		Where("theater_id = ? AND category = ?", theaterID, category).
		First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &screen, nil
}

func (r *screenRepoGorm) ListByTheater(ctx context.Context, theaterID uint) ([]model.Screen, error) {
	return gorm.G[model.Screen](r.db).Where("theater_id = ?", theaterID).Order("id").Find(ctx)
}

func (r *screenRepoGorm) ListAll(ctx context.Context) ([]model.Screen, error) {
	return gorm.G[model.Screen](r.db).Order("id").Find(ctx)
}
