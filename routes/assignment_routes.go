package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/property-booking/controllers/assignment_controller"
	middleware "github.com/joy095/property-booking/middlewares"
	"github.com/redis/go-redis/v9"
)

func RegisterAssignmentRoutes(router *gin.Engine, ctrl *assignment_controller.AssignmentController, rdb *redis.Client) {
	router.POST("/property-assignment", middleware.NewRateLimiter(rdb, "30-1m", "property_assignment"), ctrl.AssignProperty)
	router.POST("/bookings", middleware.NewRateLimiter(rdb, "30-1m", "direct_booking"), ctrl.CreateDirectBooking)
}
