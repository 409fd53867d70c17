package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/cache"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/database"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/handlers"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	database.Connect()
	cache.Connect()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "online"}) })
	r.POST("/login", handlers.Login)

	// Only opens if we explicitly allow it in .env
	if os.Getenv("ALLOW_REGISTRATION") == "true" {
		r.POST("/register", handlers.Register)
		slog.Warn("registration route is OPEN; disable this in production")
	} else {
		slog.Info("registration route is disabled")
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/system/status", handlers.GetSystemStatus)

		api.GET("/products", handlers.GetProducts)
		api.POST("/products", handlers.AddProduct)
		api.PUT("/products/:id", handlers.UpdateProduct)
		api.DELETE("/products/:id", handlers.DeleteProduct)

		api.GET("/customers", handlers.GetCustomers)
		api.POST("/customers", handlers.AddCustomer)
		api.GET("/customers/search", handlers.SearchCustomers)
		api.GET("/customers/:id", handlers.GetCustomerDetail)

		api.GET("/bills", handlers.ListBills)
		api.POST("/bills", handlers.CreateBill)
		api.GET("/bills/:id", handlers.GetBill)
		api.DELETE("/bills/:id", handlers.DeleteBill)

		api.GET("/payments", handlers.ListPayments)
		api.POST("/payments", handlers.ReceivePayment)
		api.DELETE("/payments/:id", handlers.DeletePayment)

		api.GET("/reports/dashboard", handlers.GetDashboard)
		api.GET("/reports/lending", handlers.GetLendingReport)
		api.GET("/reports/lending/export", handlers.ExportLendingReport)
		api.GET("/reports/activity", handlers.GetActivityReport)

		// OWNER ONLY
		owner := api.Group("/")
		owner.Use(middleware.RequireRole("owner"))
		{
			owner.POST("/reports/recompute-balances", handlers.RecomputeAllBalances)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("server starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}
