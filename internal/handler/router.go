package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/cinema-booking/internal/app"
)

func NewRouter(app *app.App) *gin.Engine {
	if app.Config.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestID(), AccessLog(app.Logger), Recovery(app.Logger))

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	catalog := NewCatalogHandler(app)
	r.GET("/theaters", catalog.HandleListTheaters)
	r.GET("/theaters/:id/screens", catalog.HandleListScreens)
	r.GET("/screens/:id", catalog.HandleGetScreen)

	booking := NewBookingHandler(app)
	r.GET("/availability", booking.HandleAvailability)
	r.POST("/quote", booking.HandleQuote)
	r.GET("/bookings", booking.HandleListBookings)
	r.GET("/bookings/:id", booking.HandleGetBooking)
	r.POST("/bookings", booking.HandleBook)
	r.POST("/bookings/:id/cancel", booking.HandleCancel)
	r.GET("/waiting-list", booking.HandleWaitingList)

	return r
}
