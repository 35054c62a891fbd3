package users

import (
	"net/http"
	"time"

	"formdesk/database"
	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/users"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
)

type PlanDTO struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	FormLimit     *int   `json:"form_limit,omitempty"`
	ResponseLimit *int   `json:"response_limit,omitempty"`
}

type SubscriptionDTO struct {
	PlanType          string     `json:"plan_type"`
	Status            string     `json:"status"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}

type UsageDTO struct {
	Forms int64 `json:"forms"`
}

type MeResponse struct {
	ID           uint             `json:"id"`
	Email        string           `json:"email"`
	Name         string           `json:"name"`
	Role         string           `json:"role"`
	IsVerified   bool             `json:"is_verified"`
	Plan         PlanDTO          `json:"plan"`
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`
	Usage        UsageDTO         `json:"usage"`
	PayoutsReady bool             `json:"payouts_ready"`
}

func GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	plan, err := settlement.EffectivePlan(database.DB, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve plan"})
		return
	}

	var formCount int64
	database.DB.Model(&forms.Form{}).Where("user_id = ?", user.ID).Count(&formCount)

	var subDTO *SubscriptionDTO
	var sub billing.Subscription
	if err := database.DB.Where("user_id = ?", user.ID).First(&sub).Error; err == nil {
		subDTO = &SubscriptionDTO{
			PlanType:          sub.PlanType,
			Status:            sub.Status,
			StartDate:         sub.StartDate,
			EndDate:           sub.EndDate,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}
	}

	var settings billing.PaymentSettings
	payoutsReady := database.DB.Where("user_id = ?", user.ID).First(&settings).Error == nil

	c.JSON(http.StatusOK, MeResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		Plan: PlanDTO{
			Type:          plan.Type,
			Name:          plan.Name,
			Price:         plan.Price,
			FormLimit:     plan.FormLimit,
			ResponseLimit: plan.ResponseLimit,
		},
		Subscription: subDTO,
		Usage:        UsageDTO{Forms: formCount},
		PayoutsReady: payoutsReady,
	})
}

func VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	var t users.VerificationToken
	if err := database.DB.Where("token = ? AND type = ?", token, "email_verification").First(&t).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}
	if t.ExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	if err := database.DB.Model(&users.User{}).Where("id = ?", t.UserID).Update("is_verified", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		return
	}

	database.DB.Delete(&t)

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}
