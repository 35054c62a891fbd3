package billing

import (
	"net/http"

	"formdesk/database"
	"formdesk/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"
)

// GET /payment-settings
func GetPaymentSettings(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var settings billing.PaymentSettings
	if err := database.DB.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No payment settings yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bank_code":      settings.BankCode,
		"account_number": settings.AccountNumber,
		"account_name":   settings.AccountName,
		"payouts_ready":  settings.SubaccountCode != nil && *settings.SubaccountCode != "",
	})
}

type settingsInput struct {
	BankCode      string `json:"bank_code" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	AccountName   string `json:"account_name"`
}

// PUT /payment-settings — changing bank details clears the subaccount so the
// next paid submission provisions a fresh one.
func UpsertPaymentSettings(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input settingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := billing.PaymentSettings{
		UserID:        userID,
		BankCode:      input.BankCode,
		AccountNumber: input.AccountNumber,
		AccountName:   input.AccountName,
		SubaccountCode: nil,
	}
	err := database.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"bank_code", "account_number", "account_name", "subaccount_code", "updated_at",
		}),
	}).Create(&settings).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save payment settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment settings saved"})
}
