package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/property-booking/controllers/admin_controller"
	"github.com/joy095/property-booking/middlewares/auth"
)

func RegisterAdminRoutes(router *gin.Engine, ctrl *admin_controller.AdminController, jwtSecret []byte) {
	admin := router.Group("/admin")
	admin.Use(auth.AdminMiddleware(jwtSecret))
	{
		admin.PUT("/bookings/:id/confirm", ctrl.ConfirmBooking)
		admin.GET("/bookings/:id", ctrl.GetBooking)
		admin.POST("/properties", ctrl.CreateProperty)
		admin.PATCH("/properties/:id/availability", ctrl.SetAvailability)
	}
}
