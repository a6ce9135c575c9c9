package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs-lzh/cinema-booking/internal/app"
	"github.com/qs-lzh/cinema-booking/internal/model"
	"github.com/qs-lzh/cinema-booking/internal/service"
	"github.com/qs-lzh/cinema-booking/internal/service/domain"
)

type BookingHandler struct {
	app *app.App
}

func NewBookingHandler(app *app.App) *BookingHandler {
	return &BookingHandler{
		app: app,
	}
}

type BookRequest struct {
	ScreenID  uint                 `json:"screen_id"`
	TheaterID uint                 `json:"theater_id"`
	Category  model.ScreenCategory `json:"category"`
	UserName  string               `json:"user_name" binding:"required"`
	Food      map[string]int       `json:"food"`
}

type QuoteRequest struct {
	Category model.ScreenCategory `json:"category" binding:"required"`
	Food     map[string]int       `json:"food"`
}

func (h *BookingHandler) HandleBook(ctx *gin.Context) {
	var req BookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	result, err := h.app.BookingWorkflow.Book(ctx.Request.Context(), domain.BookRequest{
		ScreenID:  req.ScreenID,
		TheaterID: req.TheaterID,
		Category:  req.Category,
		UserName:  req.UserName,
		Food:      req.Food,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	if result.Status == domain.BookStatusQueued {
		ctx.JSON(http.StatusAccepted, gin.H{
			"status":        result.Status,
			"message":       result.Message(),
			"waiting_entry": result.WaitingEntry,
		})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"status":      result.Status,
		"message":     result.Message(),
		"booking":     result.Booking,
		"food_orders": result.FoodOrders,
		"quote":       result.Quote,
	})
}

func (h *BookingHandler) HandleCancel(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := h.app.BookingWorkflow.Cancel(ctx.Request.Context(), id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	body := gin.H{
		"status":  result.Status,
		"message": result.Message(),
		"booking": result.Booking,
	}
	if result.Promoted != nil {
		body["promoted"] = result.Promoted
	}
	ctx.JSON(http.StatusOK, body)
}

func (h *BookingHandler) HandleListBookings(ctx *gin.Context) {
	bookings, err := h.app.BookingService.ListActiveBookings(ctx.Request.Context())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *BookingHandler) HandleGetBooking(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	booking, err := h.app.BookingService.GetBooking(ctx.Request.Context(), id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) HandleAvailability(ctx *gin.Context) {
	theaterID, err := strconv.ParseUint(ctx.Query("theater_id"), 10, 64)
	if err != nil {
		badRequest(ctx, errors.New("theater_id must be a positive integer"))
		return
	}
	category := model.ScreenCategory(ctx.Query("category"))
	if !category.Valid() {
		badRequest(ctx, errors.New("category must be one of GOLD, MAX, GENERAL"))
		return
	}

	availability, err := h.app.BookingService.GetAvailability(ctx.Request.Context(), uint(theaterID), category)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, availability)
}

func (h *BookingHandler) HandleQuote(ctx *gin.Context) {
	var req QuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	quote, err := h.app.PricingService.Quote(req.Category, req.Food)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, quote)
}

func (h *BookingHandler) HandleWaitingList(ctx *gin.Context) {
	var screenID *uint
	if raw := ctx.Query("screen_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(ctx, errors.New("screen_id must be a positive integer"))
			return
		}
		v := uint(id)
		screenID = &v
	}

	entries, err := h.app.WaitingListService.List(ctx.Request.Context(), screenID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if entries == nil {
		entries = []model.WaitingListEntry{}
	}
	ctx.JSON(http.StatusOK, gin.H{"entries": entries})
}

type CatalogHandler struct {
	app *app.App
}

func NewCatalogHandler(app *app.App) *CatalogHandler {
	return &CatalogHandler{
		app: app,
	}
}

func (h *CatalogHandler) HandleListTheaters(ctx *gin.Context) {
	theaters, err := h.app.CatalogService.ListTheaters(ctx.Request.Context())
	if err != nil {
		respondError(ctx, h.app.Logger, err)
		return
	}
	if theaters == nil {
		theaters = []model.Theater{}
	}
	ctx.JSON(http.StatusOK, gin.H{"theaters": theaters})
}

func (h *CatalogHandler) HandleListScreens(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	screens, err := h.app.CatalogService.ListScreensByTheater(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, h.app.Logger, err)
		return
	}
	if screens == nil {
		screens = []model.Screen{}
	}
	ctx.JSON(http.StatusOK, gin.H{"screens": screens})
}

func (h *CatalogHandler) HandleGetScreen(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	screen, err := h.app.CatalogService.GetScreen(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, h.app.Logger, err)
		return
	}
	availability, err := h.app.BookingService.GetScreenAvailability(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, h.app.Logger, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"screen":       screen,
		"availability": availability,
	})
}

func (h *BookingHandler) respondError(ctx *gin.Context, err error) {
	respondError(ctx, h.app.Logger, err)
}

func respondError(ctx *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidInput):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrWindowClosed):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":   "Too close to showtime",
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrAlreadyCancelled):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":   "Already cancelled",
			"message": "This ticket has already been cancelled",
		})
	default:
		logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.String("request_id", ctx.GetString(requestIDKey)),
			zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "Failed to process request, please try again later",
		})
	}
}

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":  "Invalid request format",
		"detail": err.Error(),
	})
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(ctx, errors.New(name+" must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}
