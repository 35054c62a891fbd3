package admin

import (
	"net/http"
	"time"

	"formdesk/database"
	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/users"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
)

type AdminUser struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	Plan       string `json:"plan"`
}

type AdminTransaction struct {
	ID            uint       `json:"id"`
	Reference     string     `json:"reference"`
	CustomerEmail string     `json:"customer_email"`
	Amount        int64      `json:"amount"`
	Fee           int64      `json:"fee"`
	Status        string     `json:"status"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
}

type AdminStats struct {
	TotalUsers     int64            `json:"total_users"`
	TotalForms     int64            `json:"total_forms"`
	TotalResponses int64            `json:"total_responses"`
	FeeRevenue     int64            `json:"fee_revenue"`
	UsersPerPlan   map[string]int64 `json:"users_per_plan"`
}

func AdminDashboard(c *gin.Context) {
	var stats AdminStats

	database.DB.Table("users").Count(&stats.TotalUsers)
	database.DB.Table("forms").Count(&stats.TotalForms)
	database.DB.Table("responses").Count(&stats.TotalResponses)

	// Platform revenue is the fee slice of completed transactions plus
	// confirmed plan purchases.
	var txFees, planRevenue int64
	database.DB.Model(&billing.Transaction{}).
		Where("status = ?", billing.StatusCompleted).
		Select("COALESCE(SUM(fee), 0)").Scan(&txFees)
	database.DB.Model(&billing.SubscriptionPayment{}).
		Select("COALESCE(SUM(amount), 0)").Scan(&planRevenue)
	stats.FeeRevenue = txFees + planRevenue

	stats.UsersPerPlan = map[string]int64{}
	var rows []struct {
		PlanType string
		N        int64
	}
	database.DB.Model(&billing.Subscription{}).
		Select("plan_type, COUNT(*) AS n").
		Group("plan_type").
		Scan(&rows)
	for _, r := range rows {
		stats.UsersPerPlan[r.PlanType] = r.N
	}

	c.JSON(http.StatusOK, stats)
}

func ListAllUsers(c *gin.Context) {
	var all []users.User
	if err := database.DB.Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	out := make([]AdminUser, 0, len(all))
	for _, u := range all {
		plan, err := settlement.EffectivePlan(database.DB, u.ID)
		planType := "FREE"
		if err == nil {
			planType = plan.Type
		}
		out = append(out, AdminUser{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Role:       u.Role,
			IsVerified: u.IsVerified,
			Plan:       planType,
		})
	}

	c.JSON(http.StatusOK, out)
}

func ListAllPayments(c *gin.Context) {
	var transactions []billing.Transaction
	if err := database.DB.Order("created_at DESC").Limit(500).Find(&transactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	out := make([]AdminTransaction, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, AdminTransaction{
			ID:            t.ID,
			Reference:     t.Reference,
			CustomerEmail: t.CustomerEmail,
			Amount:        t.Amount,
			Fee:           t.Fee,
			Status:        t.Status,
			PaymentDate:   t.PaymentDate,
		})
	}

	c.JSON(http.StatusOK, out)
}
