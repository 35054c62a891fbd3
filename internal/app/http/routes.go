package routes

import (
	"formdesk/config"
	"formdesk/database"
	adminapi "formdesk/internal/api/admin"
	authapi "formdesk/internal/api/auth"
	billingapi "formdesk/internal/api/billing"
	formsapi "formdesk/internal/api/forms"
	publicapi "formdesk/internal/api/public"
	usersapi "formdesk/internal/api/users"
	webhookapi "formdesk/internal/api/webhook"
	"formdesk/internal/app/http/middleware"
	"formdesk/internal/infra/paystack"
	"formdesk/internal/notify"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	gateway := paystack.NewClientWithBaseURL(config.PAYSTACK_SECRET_KEY, config.PAYSTACK_BASE_URL)
	mailer := notify.NewMailer(notify.Config{
		Host:     config.SMTP_HOST,
		Port:     config.SMTP_PORT,
		From:     config.SMTP_FROM,
		Password: config.SMTP_PASSWORD,
		BaseURL:  config.APP_URL,
	})
	router := settlement.NewRouter(database.DB, gateway, mailer, config.APP_URL)

	authapi.Mailer = mailer
	publicapi.Router = router
	billingapi.Router = router
	webhookapi.Router = router

	r.POST("/webhook/paystack", webhookapi.PaystackWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/plans", billingapi.ListPlans)
	public.GET("/verify", usersapi.VerifyEmail)
	public.POST("/resend-verification", authapi.ResendVerification)
	public.POST("/request-password-reset", authapi.RequestPasswordReset)
	public.POST("/reset-password", authapi.ResetPassword)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Attendee-facing form surface
	public.GET("/f/:code", publicapi.GetForm)
	public.POST("/f/:code/responses", publicapi.SubmitResponse)
	public.GET("/payments/verify/:reference", publicapi.VerifyFormPayment)
	public.GET("/billing/verify/:reference", publicapi.VerifySubscriptionPayment)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", usersapi.GetCurrentUser)
	auth.POST("/change-password", authapi.ChangePassword)

	auth.POST("/forms", formsapi.CreateForm)
	auth.GET("/forms", formsapi.ListForms)
	auth.GET("/forms/:id", formsapi.GetForm)
	auth.PUT("/forms/:id", formsapi.UpdateForm)
	auth.DELETE("/forms/:id", formsapi.DeleteForm)
	auth.POST("/forms/:id/open", formsapi.OpenForm)
	auth.POST("/forms/:id/close", formsapi.CloseForm)
	auth.GET("/forms/:id/responses", formsapi.ListResponses)
	auth.GET("/forms/:id/responses/export", middleware.RequirePaidPlan(), formsapi.ExportResponses)
	auth.POST("/forms/:id/responses/:rid/checkin", formsapi.ToggleCheckIn)

	auth.GET("/payments", billingapi.GetPaymentHistory)
	auth.GET("/payment-settings", billingapi.GetPaymentSettings)
	auth.PUT("/payment-settings", billingapi.UpsertPaymentSettings)
	auth.POST("/billing/upgrade", billingapi.UpgradePlan)
	auth.POST("/billing/cancel", billingapi.CancelSubscription)
	auth.GET("/billing/subscription", billingapi.GetSubscription)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/dashboard", adminapi.AdminDashboard)
	admin.GET("/users", adminapi.ListAllUsers)
	admin.GET("/payments", adminapi.ListAllPayments)
}
