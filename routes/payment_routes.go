package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/property-booking/controllers/payment_controller"
	middleware "github.com/joy095/property-booking/middlewares"
	"github.com/redis/go-redis/v9"
)

// RegisterPaymentRoutes mounts session creation and one webhook endpoint per
// provider. Webhooks are not rate limited.
func RegisterPaymentRoutes(router *gin.Engine, ctrl *payment_controller.PaymentController, providers []string, rdb *redis.Client) {
	router.POST("/stripe/create-session", middleware.CombinedRateLimiter(rdb, "payment_session", "5-1m", "30-1h"), ctrl.CreateSession)

	for _, provider := range providers {
		router.POST("/"+provider+"/webhook", ctrl.Webhook(provider))
	}
}
