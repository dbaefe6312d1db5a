package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"fabrix-backend/internal/config"
	"fabrix-backend/internal/database"
	"fabrix-backend/internal/handlers"
	"fabrix-backend/internal/middleware"
	"fabrix-backend/internal/notify"
	"fabrix-backend/internal/payments"
	"fabrix-backend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(cfg.DBName)
	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureCustomerIndexes(db); err != nil {
		log.Printf("customer index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsureRefreshTokenIndexes(db); err != nil {
		log.Printf("refresh token index warning: %v", err)
	}

	orders := store.NewOrderStore(db)
	intents := payments.NewIntentClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey, cfg.PaymentTimeout)

	var deduper payments.Deduper
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		deduper = payments.NewRedisDeduper(rdb)
		log.Println("webhook dedup backed by redis:", cfg.RedisAddr)
	} else {
		deduper = payments.NewMemoryDeduper()
		log.Println("webhook dedup running in-process")
	}

	targets := make([]notify.Dispatcher, 0, 2)
	if cfg.SMTPHost != "" {
		targets = append(targets, notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom))
	}
	if len(cfg.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.OrderTopic)
		defer writer.Close()
		targets = append(targets, notify.NewKafkaPublisher(writer))
	}
	var dispatcher notify.Dispatcher = notify.Noop{}
	if len(targets) > 0 {
		dispatcher = notify.NewMulti(targets...)
	}

	r := gin.Default()
	r.Use(middleware.Metrics())

	r.GET("/metrics", middleware.MetricsHandler())

	r.POST("/auth/register", handlers.Register(db))
	r.POST("/auth/login", handlers.Login(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL))
	r.POST("/auth/refresh", handlers.Refresh(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL))
	r.POST("/auth/logout", handlers.Logout(db))
	r.GET("/auth/me", middleware.UserAuth(cfg.JWTSecret), handlers.GetMe(db))

	r.POST("/admin/login", handlers.AdminLogin(db, cfg.JWTSecret, cfg.AccessTokenTTL))

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))

	// Guest checkout is allowed; a valid token attaches the order to the
	// account.
	r.POST("/orders", handlers.CreateOrder(db, orders, cfg.JWTSecret, cfg.TaxRate))
	r.GET("/orders/number/:orderNumber", handlers.GetOrderByNumber(orders))

	r.POST("/payments/create-intent", handlers.CreatePaymentIntent(orders, intents, cfg.Currency))
	r.POST("/payments/webhook", handlers.PaymentWebhook(orders, cfg.PaymentWebhookSecret, deduper, dispatcher))

	user := r.Group("/user")
	user.Use(middleware.UserAuth(cfg.JWTSecret))
	{
		user.GET("/orders", handlers.GetMyOrders(orders))
		user.GET("/orders/:id", handlers.GetOrder(orders))
		user.POST("/orders/:id/cancel", handlers.CancelOrder(orders))

		user.GET("/addresses", handlers.GetCustomerAddresses(db))
		user.POST("/addresses", handlers.CreateCustomerAddress(db))
		user.PUT("/addresses/:id", handlers.UpdateCustomerAddress(db))
		user.DELETE("/addresses/:id", handlers.DeleteCustomerAddress(db))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(cfg.JWTSecret))
	{
		admin.GET("/orders", handlers.ListOrders(orders))
		admin.GET("/orders/:id", handlers.GetOrder(orders))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(orders, dispatcher))
		admin.PUT("/orders/:id/pay", handlers.MarkOrderPaid(orders, dispatcher))

		admin.GET("/products", handlers.GetAllProducts(db))
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))
	}

	log.Println("listening on port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
