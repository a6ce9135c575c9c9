package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/service"
)

var ticketPrices = map[model.ScreenCategory]decimal.Decimal{
	model.CategoryGold:    decimal.NewFromInt(400),
	model.CategoryMax:     decimal.NewFromInt(300),
	model.CategoryGeneral: decimal.NewFromInt(200),
}

// food discount by screen category, never applied to the ticket itself
var foodDiscounts = map[model.ScreenCategory]decimal.Decimal{
	model.CategoryGold:    decimal.RequireFromString("0.10"),
	model.CategoryMax:     decimal.RequireFromString("0.05"),
	model.CategoryGeneral: decimal.Zero,
}

type QuoteLine struct {
	Item     string          `json:"item"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Quote struct {
	Category     model.ScreenCategory `json:"category"`
	TicketPrice  decimal.Decimal      `json:"ticket_price"`
	FoodSubtotal decimal.Decimal      `json:"food_subtotal"`
	Total        decimal.Decimal      `json:"total"`
	Discount     decimal.Decimal      `json:"discount"`
	Lines        []QuoteLine          `json:"lines"`
}

type PricingService interface {
	Quote(category model.ScreenCategory, food map[string]int) (*Quote, error)
	ValidateFood(food map[string]int) error
	Menu() map[string]decimal.Decimal
}

type pricingService struct {
	menu map[string]decimal.Decimal
}

var _ PricingService = (*pricingService)(nil)

// NewPricingService builds the calculator from a unit price table.
// Item names are matched case-insensitively.
func NewPricingService(menu map[string]int) *pricingService {
	prices := make(map[string]decimal.Decimal, len(menu))
	for item, unit := range menu {
		prices[strings.ToLower(item)] = decimal.NewFromInt(int64(unit))
	}
	return &pricingService{
		menu: prices,
	}
}

func (s *pricingService) Menu() map[string]decimal.Decimal {
	return maps.Clone(s.menu)
}

func (s *pricingService) ValidateFood(food map[string]int) error {
	for item, qty := range food {
		if _, ok := s.menu[strings.ToLower(item)]; !ok {
			return fmt.Errorf("%w: unknown food item %q", service.ErrInvalidInput, item)
		}
		if qty < 0 {
			return fmt.Errorf("%w: negative quantity for %q", service.ErrInvalidInput, item)
		}
	}
	return nil
}

func (s *pricingService) Quote(category model.ScreenCategory, food map[string]int) (*Quote, error) {
	ticket, ok := ticketPrices[category]
	if !ok {
		return nil, fmt.Errorf("%w: unknown screen category %q", service.ErrInvalidInput, category)
	}
	if err := s.ValidateFood(food); err != nil {
		return nil, err
	}

	discount := foodDiscounts[category]
	factor := decimal.NewFromInt(1).Sub(discount)

	quote := &Quote{
		Category:     category,
		TicketPrice:  ticket,
		FoodSubtotal: decimal.Zero,
		Discount:     discount,
		Lines:        []QuoteLine{},
	}
	// sorted so food orders are written in a stable order
	for _, item := range slices.Sorted(maps.Keys(food)) {
		qty := food[item]
		if qty <= 0 {
			continue
		}
		unit := s.menu[strings.ToLower(item)]
		price := unit.Mul(decimal.NewFromInt(int64(qty))).Mul(factor)
		quote.Lines = append(quote.Lines, QuoteLine{
			Item:     strings.ToLower(item),
			Quantity: qty,
			Price:    price,
		})
		quote.FoodSubtotal = quote.FoodSubtotal.Add(price)
	}
	quote.Total = quote.TicketPrice.Add(quote.FoodSubtotal)

	return quote, nil
}
