// Package router assembles the echo server: global middleware, public routes
// and the tenant-scoped /api tree with its role requirements.
package router

import (
	"context"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/opticshop/optics/internal/handler"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/config"
	"github.com/opticshop/optics/prometheus"
)

// New builds the echo instance. ctx bounds background work such as the rate
// limiter's sweeper.
func New(ctx context.Context, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(middleware.RequestLogger)
	e.Use(middleware.HTTPMetrics)
	if len(cfg.Server.CORSOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowCredentials: true,
			AllowHeaders: []string{
				echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
				echo.HeaderAuthorization, middleware.HeaderTenantID,
			},
		}))
	}
	e.Use(middleware.LocaleMiddleware)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit)
		go limiter.Run(ctx)
		e.Use(limiter.Middleware())
	}

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.Handler()))
	e.GET("/i18n", handler.Translations)
	e.GET("/i18n/:locale", handler.Translations)

	auth := e.Group("/auth")
	auth.POST("/login", handler.Login)
	auth.POST("/logout", handler.Logout)

	// API routes - all require authentication
	api := e.Group("/api", middleware.AuthMiddleware, middleware.TenantMiddleware)
	api.GET("/me", handler.Me)
	api.GET("/roles", handler.ListRoles)

	// Tenant management - doesn't require tenant context
	api.GET("/tenants", handler.ListTenants)
	api.POST("/tenants", handler.CreateTenant, middleware.RequireSuperuser)
	api.POST("/tenants/select", handler.SelectTenant, middleware.RequireSuperuser)

	// Everything below acts on one tenant
	t := api.Group("", middleware.RequireTenantContext)

	admin := middleware.RequireRole(model.RoleAdmin)
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	clinical := middleware.RequireRole(model.RoleAdmin, model.RoleOptometrist)
	pos := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleCashier)

	t.GET("/settings", handler.GetSettings)
	t.PUT("/settings", handler.UpdateSettings, admin)

	users := t.Group("/users", admin)
	users.GET("", handler.ListUsers)
	users.POST("", handler.CreateUser)
	users.PUT("/:id", handler.UpdateUser)
	users.POST("/:id/deactivate", handler.DeactivateUser)

	customers := t.Group("/customers")
	customers.GET("", handler.ListCustomers)
	customers.GET("/:id", handler.GetCustomer)
	customers.GET("/:id/history", handler.CustomerHistory)
	customers.POST("", handler.CreateCustomer)
	customers.PUT("/:id", handler.UpdateCustomer)
	customers.DELETE("/:id", handler.DeleteCustomer, managers)

	products := t.Group("/products")
	products.GET("", handler.ListProducts)
	products.GET("/:id", handler.GetProduct)
	products.POST("", handler.CreateProduct, managers)
	products.PUT("/:id", handler.UpdateProduct, managers)
	products.DELETE("/:id", handler.DeleteProduct, managers)

	inventory := t.Group("/inventory")
	inventory.GET("", handler.ListInventory)
	inventory.GET("/:id", handler.GetInventoryItem)
	inventory.POST("", handler.CreateInventoryItem, managers)
	inventory.PUT("/:id", handler.UpdateInventoryItem, managers)
	inventory.DELETE("/:id", handler.DeleteInventoryItem, managers)
	inventory.POST("/:id/decrement", handler.DecrementInventory, managers)

	sales := t.Group("/sales")
	sales.GET("", handler.ListSales)
	sales.GET("/:id", handler.GetSale)
	sales.POST("/quote", handler.QuoteSale, pos)
	sales.POST("/checkout", handler.Checkout, pos)
	sales.PATCH("/:id/status", handler.UpdateSaleStatus, managers)

	prescriptions := t.Group("/prescriptions")
	prescriptions.GET("", handler.ListPrescriptions)
	prescriptions.GET("/:id", handler.GetPrescription)
	prescriptions.POST("", handler.CreatePrescription, clinical)
	prescriptions.PUT("/:id", handler.UpdatePrescription, clinical)
	prescriptions.DELETE("/:id", handler.DeletePrescription, clinical)

	records := t.Group("/medical-records", clinical)
	records.GET("", handler.ListMedicalRecords)
	records.GET("/:id", handler.GetMedicalRecord)
	records.POST("", handler.CreateMedicalRecord)
	records.PUT("/:id", handler.UpdateMedicalRecord)
	records.DELETE("/:id", handler.DeleteMedicalRecord)

	appointments := t.Group("/appointments")
	appointments.GET("", handler.ListAppointments)
	appointments.GET("/:id", handler.GetAppointment)
	appointments.POST("", handler.CreateAppointment)
	appointments.PUT("/:id", handler.UpdateAppointment)
	appointments.PATCH("/:id/status", handler.UpdateAppointmentStatus)
	appointments.DELETE("/:id", handler.DeleteAppointment)

	suppliers := t.Group("/suppliers", managers)
	suppliers.GET("", handler.ListSuppliers)
	suppliers.GET("/:id", handler.GetSupplier)
	suppliers.POST("", handler.CreateSupplier)
	suppliers.PUT("/:id", handler.UpdateSupplier)
	suppliers.DELETE("/:id", handler.DeleteSupplier)

	purchases := t.Group("/purchase-orders", managers)
	purchases.GET("", handler.ListPurchaseOrders)
	purchases.GET("/:id", handler.GetPurchaseOrder)
	purchases.POST("", handler.CreatePurchaseOrder)
	purchases.PATCH("/:id/status", handler.UpdatePurchaseOrderStatus)
	purchases.POST("/:id/receive", handler.ReceivePurchaseOrder)
	purchases.DELETE("/:id", handler.DeletePurchaseOrder)

	taxRates := t.Group("/tax-rates")
	taxRates.GET("", handler.ListTaxRates)
	taxRates.GET("/:id", handler.GetTaxRate)
	taxRates.POST("", handler.CreateTaxRate, admin)
	taxRates.PUT("/:id", handler.UpdateTaxRate, admin)
	taxRates.POST("/:id/default", handler.SetDefaultTaxRate, admin)
	taxRates.DELETE("/:id", handler.DeleteTaxRate, admin)

	reports := t.Group("/reports", managers)
	reports.GET("/sales-summary", handler.SalesSummary)
	reports.GET("/inventory", handler.InventoryReport)
	reports.GET("/top-products", handler.TopProducts)
	reports.GET("/appointments", handler.AppointmentReport)

	return e
}
