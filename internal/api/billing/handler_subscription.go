package billing

import (
	"net/http"

	"formdesk/database"
	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/plans"
	"formdesk/internal/domain/users"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
)

// Router is wired at route registration.
var Router *settlement.Router

// GET /plans
func ListPlans(c *gin.Context) {
	type planDTO struct {
		Type          string `json:"type"`
		Name          string `json:"name"`
		Price         int64  `json:"price"`
		Interval      string `json:"interval,omitempty"`
		FormLimit     *int   `json:"form_limit,omitempty"`
		ResponseLimit *int   `json:"response_limit,omitempty"`
	}

	all := plans.All()
	out := make([]planDTO, 0, len(all))
	for _, p := range all {
		out = append(out, planDTO{
			Type:          p.Type,
			Name:          p.Name,
			Price:         p.Price,
			Interval:      p.Interval,
			FormLimit:     p.FormLimit,
			ResponseLimit: p.ResponseLimit,
		})
	}
	c.JSON(http.StatusOK, out)
}

// POST /billing/upgrade
func UpgradePlan(c *gin.Context) {
	var body struct {
		PlanType string `json:"plan_type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PlanType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid plan_type"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return
	}

	result, err := Router.UpgradePlan(c.Request.Context(), &user, body.PlanType)
	if err != nil {
		kind := settlement.KindOf(err)
		c.JSON(kind.HTTPStatus(), gin.H{"error": err.Error(), "reason": string(kind)})
		return
	}

	if result.Upgraded {
		c.JSON(http.StatusOK, gin.H{"message": "Plan changed", "upgraded": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authorization_url": result.AuthorizationURL,
		"reference":         result.Reference,
	})
}

// POST /billing/cancel
func CancelSubscription(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	sub, err := Router.CancelSubscription(userID)
	if err != nil {
		kind := settlement.KindOf(err)
		c.JSON(kind.HTTPStatus(), gin.H{"error": err.Error(), "reason": string(kind)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":              "Subscription will not renew",
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"end_date":             sub.EndDate,
	})
}

// GET /billing/subscription
func GetSubscription(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	plan, err := settlement.EffectivePlan(database.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve plan"})
		return
	}

	out := gin.H{"effective_plan": plan.Type}

	var sub billing.Subscription
	if err := database.DB.Where("user_id = ?", userID).First(&sub).Error; err == nil {
		out["subscription"] = gin.H{
			"plan_type":            sub.PlanType,
			"status":               sub.Status,
			"start_date":           sub.StartDate,
			"end_date":             sub.EndDate,
			"cancel_at_period_end": sub.CancelAtPeriodEnd,
		}
	}

	c.JSON(http.StatusOK, out)
}

// GET /payments — the organizer's transaction history plus plan purchases.
func GetPaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var transactions []billing.Transaction
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	var planPayments []billing.SubscriptionPayment
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&planPayments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions":  transactions,
		"plan_payments": planPayments,
	})
}
