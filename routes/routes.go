package routes

import (
	"time"

	"taproom-backend/events"
	"taproom-backend/handlers"
	"taproom-backend/middleware"
	"taproom-backend/notify"
	"taproom-backend/services"
	"taproom-backend/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the process-wide clients the handlers share. Storage,
// Mailer and Events may be nil; the features that need them degrade.
type Dependencies struct {
	DB            *gorm.DB
	Storage       storage.Client
	Mailer        notify.Mailer
	Events        events.Publisher
	PublicBaseURL string
	// AuthLimiter guards the credential endpoints. When nil a limiter of
	// 10 requests per minute is created.
	AuthLimiter *middleware.RateLimiter
}

// SetupRoutes registers the route table and returns the auth rate limiter in
// use. The caller owns it and must Stop it on shutdown.
func SetupRoutes(r *gin.Engine, deps Dependencies) *middleware.RateLimiter {
	db := deps.DB
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}

	settings := services.NewSettingsService(db)
	orders := services.NewOrderService(db, deps.Events, deps.Mailer)
	redemptions := services.NewRedemptionService(db, deps.Events, deps.Mailer)
	bookings := services.NewBookingService(db, deps.Events, deps.Mailer)
	loyalty := services.NewLoyaltyService(db, deps.Events)

	authHandler := &handlers.AuthHandler{DB: db, Mailer: deps.Mailer, Settings: settings}
	userHandler := &handlers.UserHandler{DB: db}
	productHandler := &handlers.ProductHandler{DB: db, Settings: settings}
	orderHandler := &handlers.OrderHandler{Orders: orders, Settings: settings, PublicBaseURL: deps.PublicBaseURL}
	rewardHandler := &handlers.RewardHandler{DB: db, Redemptions: redemptions}
	serviceHandler := &handlers.ServiceHandler{DB: db, Bookings: bookings}
	staffHandler := &handlers.StaffHandler{DB: db}
	photoHandler := &handlers.PhotoHandler{DB: db, Storage: deps.Storage}
	uploadHandler := &handlers.UploadHandler{Storage: deps.Storage}
	configHandler := &handlers.ConfigHandler{Settings: settings}
	statsHandler := &handlers.StatsHandler{DB: db}
	loyaltyHandler := &handlers.LoyaltyHandler{Loyalty: loyalty}

	// 10 attempts per minute per client and route on credential endpoints.
	authLimiter := deps.AuthLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(10, time.Minute)
	}

	api := r.Group("/api")
	api.GET("/health", handlers.Health(db))

	// Public routes
	{
		auth := api.Group("/auth", authLimiter.Middleware())
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/categories", productHandler.GetCategories)
		api.GET("/products/:id", productHandler.GetProduct)
		api.GET("/rewards", rewardHandler.GetRewards)
		api.GET("/rewards/:id", rewardHandler.GetReward)
		api.GET("/services", serviceHandler.GetServices)
		api.GET("/services/:id", serviceHandler.GetService)
		api.GET("/staff", staffHandler.GetStaff)
		api.GET("/staff/:id", staffHandler.GetStaffMember)
		api.GET("/photos", photoHandler.GetPhotos)
		api.GET("/config", configHandler.GetPublicConfig)
	}

	// Authenticated routes
	protected := api.Group("", middleware.AuthMiddleware(), middleware.AccountMiddleware(db))
	{
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/profile", authHandler.UpdateProfile)
		protected.PUT("/auth/password", authHandler.ChangePassword)
		protected.POST("/auth/logout", authHandler.Logout)

		protected.POST("/orders", orderHandler.CreateOrder)
		protected.GET("/orders", orderHandler.GetMyOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)
		protected.GET("/orders/:id/history", orderHandler.GetOrderHistory)
		protected.POST("/orders/:id/cancel", orderHandler.CancelOrder)
		protected.GET("/orders/:id/receipt", orderHandler.GetReceipt)
		protected.GET("/orders/:id/qr", orderHandler.GetOrderQR)

		protected.POST("/rewards/:id/redeem", rewardHandler.Redeem)
		protected.GET("/redemptions", rewardHandler.GetMyRedemptions)
		protected.GET("/redemptions/:id/qr", rewardHandler.GetRedemptionQR)

		protected.POST("/services/:id/book", serviceHandler.BookService)
		protected.GET("/bookings", serviceHandler.GetMyBookings)
		protected.POST("/bookings/:id/cancel", serviceHandler.CancelBooking)

		protected.GET("/loyalty/status", loyaltyHandler.GetStatus)
		protected.GET("/loyalty/history", loyaltyHandler.GetHistory)
	}

	// Staff routes: the bar dashboard
	staff := api.Group("/admin", middleware.AuthMiddleware(), middleware.AccountMiddleware(db), middleware.StaffMiddleware())
	{
		staff.GET("/orders", orderHandler.GetOrders)
		staff.GET("/orders/transitions", orderHandler.GetOrderTransitions)
		staff.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)

		staff.GET("/redemptions", rewardHandler.GetRedemptions)
		staff.GET("/redemptions/code/:code", rewardHandler.LookupRedemption)
		staff.POST("/redemptions/:ref/use", rewardHandler.MarkRedemptionUsed)

		staff.GET("/bookings", serviceHandler.GetBookings)
		staff.PUT("/bookings/:id/status", serviceHandler.UpdateBookingStatus)
	}

	stats := api.Group("/stats", middleware.AuthMiddleware(), middleware.AccountMiddleware(db), middleware.StaffMiddleware())
	{
		stats.GET("/dashboard", statsHandler.GetDashboard)
		stats.GET("/top-products", statsHandler.GetTopProducts)
	}

	// Admin routes: catalog, accounts and configuration
	admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.AccountMiddleware(db), middleware.AdminMiddleware())
	{
		admin.GET("/products", productHandler.GetProductsPaginated)
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)

		admin.GET("/rewards", rewardHandler.GetRewards)
		admin.POST("/rewards", rewardHandler.CreateReward)
		admin.PUT("/rewards/:id", rewardHandler.UpdateReward)
		admin.DELETE("/rewards/:id", rewardHandler.DeleteReward)

		admin.POST("/services", serviceHandler.CreateService)
		admin.PUT("/services/:id", serviceHandler.UpdateService)
		admin.DELETE("/services/:id", serviceHandler.DeleteService)

		admin.POST("/staff", staffHandler.CreateStaff)
		admin.PUT("/staff/:id", staffHandler.UpdateStaff)
		admin.DELETE("/staff/:id", staffHandler.DeleteStaff)

		admin.POST("/photos", photoHandler.UploadPhoto)
		admin.PUT("/photos/:id", photoHandler.UpdatePhoto)
		admin.DELETE("/photos/:id", photoHandler.DeletePhoto)

		admin.GET("/config", configHandler.GetConfig)
		admin.PUT("/config", configHandler.UpdateConfig)

		admin.GET("/users", userHandler.ListUsers)
		admin.GET("/users/:id", userHandler.GetUser)
		admin.PUT("/users/:id", userHandler.UpdateUser)
		admin.GET("/users/:id/loyalty", loyaltyHandler.GetUserStatus)
		admin.GET("/users/:id/points", loyaltyHandler.GetUserHistory)
		admin.POST("/users/:id/points", loyaltyHandler.AdjustPoints)
	}
	api.POST("/upload/image", middleware.AuthMiddleware(), middleware.AccountMiddleware(db), middleware.AdminMiddleware(), uploadHandler.UploadImage)

	return authLimiter
}
