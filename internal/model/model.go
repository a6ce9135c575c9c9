package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScreenCategory string

const (
	CategoryGold    ScreenCategory = "GOLD"
	CategoryMax     ScreenCategory = "MAX"
	CategoryGeneral ScreenCategory = "GENERAL"
)

var ScreenCategories = []ScreenCategory{CategoryGold, CategoryMax, CategoryGeneral}

func (c ScreenCategory) Valid() bool {
	switch c {
	case CategoryGold, CategoryMax, CategoryGeneral:
		return true
	}
	return false
}

type Theater struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Location string `gorm:"size:100" json:"location"`
}

// Screen is a single fixed showing; capacity never changes after creation.
type Screen struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TheaterID  uint           `gorm:"not null;index:idx_screen_theater_category" json:"theater_id"`
	Category   ScreenCategory `gorm:"type:varchar(16);not null;index:idx_screen_theater_category" json:"category"`
	TotalSeats int            `gorm:"not null" json:"total_seats"`
	MovieName  string         `gorm:"size:200;not null" json:"movie_name"`
	ShowTime   time.Time      `gorm:"not null" json:"show_time"`
}

// Booking rows are never deleted, cancellation only flips Cancelled.
type Booking struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ScreenID   uint      `gorm:"not null;index" json:"screen_id"`
	UserName   string    `gorm:"size:100;not null" json:"user_name"`
	SeatNumber int       `gorm:"not null" json:"seat_number"`
	Cancelled  bool      `gorm:"not null;default:false" json:"cancelled"`
	HasFood    bool      `gorm:"not null;default:false" json:"has_food"`
	CreatedAt  time.Time `json:"created_at"`
}

// FoodOrder.Price is the line total after the screen category discount.
type FoodOrder struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	BookingID uint            `gorm:"not null;index" json:"booking_id"`
	ItemName  string          `gorm:"size:64;not null" json:"item_name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

type WaitingListEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ScreenID    uint      `gorm:"not null;index" json:"screen_id"`
	UserName    string    `gorm:"size:100;not null" json:"user_name"`
	RequestedAt time.Time `gorm:"not null;index" json:"requested_at"`
}

// All lists every table, in dependency order, for migrations.
func All() []any {
	return []any{&Theater{}, &Screen{}, &Booking{}, &FoodOrder{}, &WaitingListEntry{}}
}
