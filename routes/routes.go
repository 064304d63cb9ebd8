package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"homechef/configs"
	"homechef/controllers"
	"homechef/entity"
	"homechef/middlewares"
	"homechef/pkg/metrics"
	"homechef/services"
)

// Deps are the constructed services the routes hand to controllers.
type Deps struct {
	DB         *gorm.DB
	Config     *configs.Config
	Log        *zap.Logger
	Metrics    *metrics.ServerMetrics
	Orders     *services.OrderService
	Payments   *services.PaymentService
	Reconciler *services.PaymentReconciler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.Metrics(d.Metrics))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSOrigins))

	healthCtrl := controllers.NewHealthController(d.DB)
	orderCtrl := controllers.NewOrderController(d.Orders, d.Log)
	payCtrl := controllers.NewPaymentController(d.Payments, d.Reconciler, d.Orders, d.Log)

	r.GET("/health", healthCtrl.Health)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	// Provider callback, authenticated by its own signature
	r.POST("/payments/webhook", payCtrl.Webhook)

	secret := d.Config.JWTSecret
	customer := middlewares.AuthMiddleware(secret, entity.RoleCustomer)
	chef := middlewares.AuthMiddleware(secret, entity.RoleChef)
	anyone := middlewares.AuthMiddleware(secret, entity.RoleCustomer, entity.RoleChef, entity.RoleAdmin)

	// Orders
	o := r.Group("/orders")
	{
		o.POST("", customer, orderCtrl.Create)
		o.GET("/:id", anyone, orderCtrl.Detail)
		o.PUT("/:id/status", chef, orderCtrl.UpdateStatus)
		o.PUT("/:id/cancel", chef, orderCtrl.Cancel)
	}

	// Payments (customer)
	p := r.Group("/payments")
	{
		p.POST("/create-order", customer, payCtrl.CreateOrder)
		p.POST("/verify", customer, payCtrl.Verify)
		p.POST("/failure", customer, payCtrl.Failure)
		p.GET("/:orderId", anyone, payCtrl.Detail)
	}
}
