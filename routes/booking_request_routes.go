package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/property-booking/controllers/booking_request_controller"
	middleware "github.com/joy095/property-booking/middlewares"
	"github.com/redis/go-redis/v9"
)

func RegisterBookingRequestRoutes(router *gin.Engine, ctrl *booking_request_controller.BookingRequestController, rdb *redis.Client) {
	router.POST("/booking-requests", middleware.CombinedRateLimiter(rdb, "booking_request", "10-1m", "100-1h"), ctrl.CreateBookingRequest)
	router.GET("/booking-requests/:id", middleware.NewRateLimiter(rdb, "60-1m", "booking_request_get"), ctrl.GetBookingRequest)
}
