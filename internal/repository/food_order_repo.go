package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs-lzh/cinema-booking/internal/model"
)

type FoodOrderRepo interface {
	WithTx(tx *gorm.DB) FoodOrderRepo
	Create(ctx context.Context, order *model.FoodOrder) error
	ListByBooking(ctx context.Context, bookingID uint) ([]model.FoodOrder, error)
}

type foodOrderRepoGorm struct {
	db *gorm.DB
}

var _ FoodOrderRepo = (*foodOrderRepoGorm)(nil)

func NewFoodOrderRepoGorm(db *gorm.DB) *foodOrderRepoGorm {
	return &foodOrderRepoGorm{
		db: db,
	}
}

func (r *foodOrderRepoGorm) WithTx(tx *gorm.DB) FoodOrderRepo {
	return &foodOrderRepoGorm{
		db: tx,
	}
}

func (r *foodOrderRepoGorm) Create(ctx context.Context, order *model.FoodOrder) error {
	return gorm.G[model.FoodOrder](r.db).Create(ctx, order)
}

func (r *foodOrderRepoGorm) ListByBooking(ctx context.Context, bookingID uint) ([]model.FoodOrder, error) {
	return gorm.G[model.FoodOrder](r.db).Where("booking_id = ?", bookingID).Order("id").Find(ctx)
}
