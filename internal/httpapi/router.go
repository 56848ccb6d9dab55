package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter собирает gin-роутер движка бронирования.
func NewRouter(h *Handler, exposeMetrics bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if exposeMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.createBooking)
		bookings.GET("/:id", h.getBooking)
		bookings.PUT("/:id/confirm", h.confirmBooking)
		bookings.PUT("/:id/cancel", h.cancelBooking)
		bookings.PUT("/:id/check-in", h.checkIn)
		bookings.PUT("/:id/check-out", h.checkOut)
		bookings.GET("/:id/events", h.bookingEvents)
	}

	accounts := r.Group("/accounts")
	{
		accounts.GET("/:id/bookings", h.listAccountBookings)
		accounts.GET("/:id/balance", h.getBalance)
		accounts.GET("/:id/transactions", h.listTransactions)
		accounts.POST("/:id/credit", h.credit)
	}

	resources := r.Group("/resources")
	{
		resources.GET("", h.listResources)
		resources.GET("/:id/bookings", h.listResourceBookings)
		resources.GET("/:id/availability", h.resourceAvailability)
	}

	return r
}
