package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subflo/subflo/internal/api/rest/handlers"
	"github.com/subflo/subflo/internal/api/rest/middleware"
	"github.com/subflo/subflo/internal/metrics"
	"github.com/subflo/subflo/internal/service"
	"github.com/subflo/subflo/pkg/logger"
)

// Services bundles everything the router serves
type Services struct {
	Accounts      service.AccountService
	Subscriptions service.SubscriptionService
	Emails        service.EmailService
	Reports       service.ReportService
	Metrics       metrics.TrackerMetrics
}

// SetupRouter builds the gin engine with all routes and middleware
func SetupRouter(svc Services, registry *prometheus.Registry, log *logger.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Subscriptions, log)
	subscriptionHandler := handlers.NewSubscriptionHandler(svc.Subscriptions, log)
	emailHandler := handlers.NewEmailHandler(svc.Emails, log)
	reportHandler := handlers.NewReportHandler(svc.Reports, log)
	chartHandler := handlers.NewChartHandler(svc.Reports, svc.Metrics, log)

	v1 := r.Group("/api/v1")
	{
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/verify", accountHandler.VerifyAccount)
			accounts.POST("", accountHandler.CreateAccount)
			accounts.GET("/:id", accountHandler.GetAccount)
			accounts.GET("/:id/subscriptions/active", accountHandler.GetActiveSubscriptions)
			accounts.PUT("/:id/email-access", accountHandler.SetEmailAccess)
			accounts.DELETE("/:id", accountHandler.DeleteAccount)
		}

		subscriptions := v1.Group("/subscriptions")
		{
			subscriptions.GET("", subscriptionHandler.ListSubscriptions)
			subscriptions.POST("", subscriptionHandler.CreateSubscription)
			subscriptions.GET("/:id", subscriptionHandler.GetSubscription)
			subscriptions.POST("/:id/cancel", subscriptionHandler.CancelSubscription)
		}

		emails := v1.Group("/emails")
		{
			emails.GET("/:message_id", emailHandler.GetEmailMessage)
			emails.DELETE("/:message_id", emailHandler.DeleteEmailMessage)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/overview", reportHandler.GetOverview)
			reports.GET("/cost-by-payment-method", reportHandler.GetCostByPaymentMethod)
		}
	}

	charts := r.Group("/charts")
	{
		charts.GET("/platforms", chartHandler.PlatformDistribution)
		charts.GET("/monthly-counts", chartHandler.MonthlyCounts)
		charts.GET("/monthly-cost", chartHandler.MonthlyCost)
	}

	return r
}
