package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/property-booking/clients"
	"github.com/joy095/property-booking/config"
	"github.com/joy095/property-booking/config/db"
	redisconn "github.com/joy095/property-booking/config/redis"
	"github.com/joy095/property-booking/controllers/admin_controller"
	"github.com/joy095/property-booking/controllers/assignment_controller"
	"github.com/joy095/property-booking/controllers/booking_request_controller"
	"github.com/joy095/property-booking/controllers/payment_controller"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/middlewares/cors"
	logger_middleware "github.com/joy095/property-booking/middlewares/logger"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/models/identity_models"
	"github.com/joy095/property-booking/models/invoice_models"
	"github.com/joy095/property-booking/models/property_models"
	"github.com/joy095/property-booking/notify"
	"github.com/joy095/property-booking/routes"
	"github.com/joy095/property-booking/utils/lock"
	"github.com/joy095/property-booking/utils/validation"
	"github.com/redis/go-redis/v9"
)

func init() {
	logger.InitLoggers()
	config.LoadEnv()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	logger.Configure(cfg.LoggerOptions())
	gin.SetMode(cfg.GinMode)
	validation.Register()

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.ErrorLogger.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close(pool)

	if err := db.Migrate(ctx, pool); err != nil {
		logger.ErrorLogger.Fatalf("Database migration failed: %v", err)
	}

	rdb, err := redisconn.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.ErrorLogger.Fatalf("Redis connection failed: %v", err)
	}
	defer redisconn.Close(rdb)

	dispatcher, closeSinks := buildDispatcher(cfg)
	defer closeSinks()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger_middleware.GinLogger())
	r.Use(cors.CorsMiddleware(cfg.CORSAllowedOrigins))

	if err := registerRoutes(r, cfg, pool, rdb, dispatcher); err != nil {
		logger.ErrorLogger.Fatalf("Failed to register routes: %v", err)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok from property booking service"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoLogger.Infof("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.Fatalf("Server failed to listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.WarnLogger.Warnf("Pending notifications abandoned: %v", err)
	}

	logger.InfoLogger.Info("Server exited gracefully")
}

// buildDispatcher attaches every sink that is configured. A sink that fails
// to start is skipped; notifications never block the request path.
func buildDispatcher(cfg *config.Config) (*notify.Dispatcher, func()) {
	var sinks []notify.Sink
	var closers []func() error

	if cfg.CRMWebhookURL != "" {
		sinks = append(sinks, notify.NewCRMSink(clients.NewCRMClient(cfg.CRMWebhookURL, cfg.CRMWebhookSecret, cfg.NotifyTimeout)))
	}

	if cfg.AMQPURL != "" {
		sink, err := notify.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.ErrorLogger.Errorf("AMQP notifications disabled: %v", err)
		} else {
			sinks = append(sinks, sink)
			closers = append(closers, sink.Close)
		}
	}

	if cfg.SMTPHost != "" && cfg.AdminEmail != "" {
		sinks = append(sinks, notify.NewMailSink(notify.MailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.FromEmail,
			To:       cfg.AdminEmail,
		}))
	}

	if len(sinks) == 0 {
		logger.WarnLogger.Warn("No notification sinks configured; events will be dropped")
	}

	return notify.NewDispatcher(cfg.NotifyTimeout, sinks...), func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.ErrorLogger.Errorf("Error closing notification sink: %v", err)
			}
		}
	}
}

// paymentGateways returns the primary gateway and any secondary gateway whose
// credentials are present, so its webhooks are still verified.
func paymentGateways(cfg *config.Config) (clients.PaymentGateway, []clients.PaymentGateway) {
	var stripeGW, razorpayGW clients.PaymentGateway
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret != "" {
		stripeGW = clients.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" && cfg.RazorpayWebhookSecret != "" {
		razorpayGW = clients.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)
	}

	if cfg.PaymentProvider == clients.ProviderRazorpay {
		if stripeGW != nil {
			return razorpayGW, []clients.PaymentGateway{stripeGW}
		}
		return razorpayGW, nil
	}
	if razorpayGW != nil {
		return stripeGW, []clients.PaymentGateway{razorpayGW}
	}
	return stripeGW, nil
}

func registerRoutes(r *gin.Engine, cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, notifier notify.Publisher) error {
	bookings := booking_models.NewStore(pool)
	properties := property_models.NewStore(pool)
	identities := identity_models.NewStore(pool)
	invoices := invoice_models.NewStore(pool)

	var locker lock.Locker = lock.NewLocalLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, cfg.AssignLockTTL)
	}

	primary, extra := paymentGateways(cfg)
	if primary == nil {
		return errors.New("primary payment gateway is not configured")
	}

	paymentService := payment_controller.NewService(bookings, properties, invoices, primary, notifier, payment_controller.Options{
		SuccessURL:      cfg.PaymentSuccessURL,
		CancelURL:       cfg.PaymentCancelURL,
		DefaultCurrency: cfg.DefaultCurrency,
		Timeout:         cfg.PaymentTimeout,
	}, extra...)

	routes.RegisterBookingRequestRoutes(r,
		booking_request_controller.NewBookingRequestController(booking_request_controller.NewService(bookings, notifier)), rdb)
	routes.RegisterAssignmentRoutes(r,
		assignment_controller.NewAssignmentController(assignment_controller.NewService(bookings, properties, identities, locker, notifier)), rdb)
	routes.RegisterPaymentRoutes(r, payment_controller.NewPaymentController(paymentService), paymentService.Providers(), rdb)
	routes.RegisterAdminRoutes(r,
		admin_controller.NewAdminController(admin_controller.NewService(bookings, invoices, properties, notifier), cfg.DefaultCurrency),
		[]byte(cfg.JWTSecret))

	return nil
}
