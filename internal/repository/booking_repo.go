package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs-lzh/cinema-booking/internal/model"
)

type BookingRepo interface {
	WithTx(tx *gorm.DB) BookingRepo
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id uint) (*model.Booking, error)
	CountActiveByScreen(ctx context.Context, screenID uint) (int, error)
	MarkCancelled(ctx context.Context, id uint) error
	ListByScreen(ctx context.Context, screenID uint) ([]model.Booking, error)
}

type bookingRepoGorm struct {
	db *gorm.DB
}

var _ BookingRepo = (*bookingRepoGorm)(nil)

func NewBookingRepoGorm(db *gorm.DB) *bookingRepoGorm {
	return &bookingRepoGorm{
		db: db,
	}
}

func (r *bookingRepoGorm) WithTx(tx *gorm.DB) BookingRepo {
	return &bookingRepoGorm{
		db: tx,
	}
}

func (r *bookingRepoGorm) Create(ctx context.Context, booking *model.Booking) error {
	return gorm.G[model.Booking](r.db).Create(ctx, booking)
}

func (r *bookingRepoGorm) GetByID(ctx context.Context, id uint) (*model.Booking, error) {
	booking, err := gorm.G[model.Booking](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r *bookingRepoGorm) CountActiveByScreen(ctx context.Context, screenID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("screen_id = ? AND cancelled = ?", screenID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *bookingRepoGorm) MarkCancelled(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Update("cancelled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *bookingRepoGorm) ListByScreen(ctx context.Context, screenID uint) ([]model.Booking, error) {
	return gorm.G[model.Booking](r.db).Where("screen_id = ?", screenID).Order("id").Find(ctx)
}
