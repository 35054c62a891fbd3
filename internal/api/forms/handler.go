package forms

import (
	"net/http"
	"time"

	"formdesk/database"
	domain "formdesk/internal/domain/forms"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func mustUserID(c *gin.Context) (uint, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

func userFormQuery(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&domain.Form{}).Where("user_id = ?", userID)
}

type fieldInput struct {
	Label    string   `json:"label" binding:"required"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options"`
}

type createFormInput struct {
	Title            string       `json:"title" binding:"required"`
	Description      string       `json:"description"`
	CollectsPayments bool         `json:"collects_payments"`
	PaymentAmount    int64        `json:"payment_amount"`
	ClosesAt         *time.Time   `json:"closes_at"`
	Fields           []fieldInput `json:"fields"`
}

// POST /forms
func CreateForm(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var input createFormInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.CollectsPayments && input.PaymentAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A paid form needs a positive payment amount"})
		return
	}

	gate := settlement.NewResponseGate(database.DB)
	canCreate, err := gate.CanCreateForm(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check plan limits"})
		return
	}
	if !canCreate {
		c.JSON(http.StatusConflict, gin.H{"error": "Your plan's form limit has been reached. Upgrade to create more forms."})
		return
	}

	code, err := domain.GenerateCode(database.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to allocate a form code"})
		return
	}

	form := domain.Form{
		Code:             code,
		UserID:           userID,
		Title:            input.Title,
		Description:      input.Description,
		Status:           domain.StatusDraft,
		CollectsPayments: input.CollectsPayments,
		PaymentAmount:    input.PaymentAmount,
		PaymentCurrency:  "NGN",
		ClosesAt:         input.ClosesAt,
		Fields:           buildFields(input.Fields),
	}

	if err := database.DB.Create(&form).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create form"})
		return
	}

	c.JSON(http.StatusCreated, form)
}

func buildFields(inputs []fieldInput) []domain.FormField {
	fields := make([]domain.FormField, 0, len(inputs))
	for i, in := range inputs {
		fieldType := in.Type
		if fieldType == "" {
			fieldType = domain.FieldTypeText
		}
		var options datatypes.JSON
		if len(in.Options) > 0 {
			options, _ = marshalOptions(in.Options)
		}
		fields = append(fields, domain.FormField{
			Label:     in.Label,
			Type:      fieldType,
			Required:  in.Required,
			Options:   options,
			SortIndex: i,
		})
	}
	return fields
}

// GET /forms
func ListForms(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var out []domain.Form
	if err := database.DB.
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("sort_index ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load forms"})
		return
	}

	c.JSON(http.StatusOK, out)
}

// GET /forms/:id
func GetForm(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	form, ok := loadOwnedForm(c, userID)
	if !ok {
		return
	}

	var responseCount int64
	database.DB.Model(&domain.Response{}).Where("form_id = ?", form.ID).Count(&responseCount)

	c.JSON(http.StatusOK, gin.H{"form": form, "response_count": responseCount})
}

type updateFormInput struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	CollectsPayments *bool      `json:"collects_payments"`
	PaymentAmount    *int64     `json:"payment_amount"`
	ClosesAt         *time.Time `json:"closes_at"`
}

// PUT /forms/:id — the code is immutable; only editable attributes change.
func UpdateForm(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	form, ok := loadOwnedForm(c, userID)
	if !ok {
		return
	}

	var input updateFormInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.CollectsPayments != nil {
		updates["collects_payments"] = *input.CollectsPayments
	}
	if input.PaymentAmount != nil {
		if *input.PaymentAmount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment amount cannot be negative"})
			return
		}
		updates["payment_amount"] = *input.PaymentAmount
	}
	if input.ClosesAt != nil {
		updates["closes_at"] = *input.ClosesAt
	}

	if len(updates) > 0 {
		if err := database.DB.Model(form).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update form"})
			return
		}
	}

	c.JSON(http.StatusOK, form)
}

// DELETE /forms/:id
func DeleteForm(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	form, ok := loadOwnedForm(c, userID)
	if !ok {
		return
	}

	if err := database.DB.Delete(form).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete form"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Form deleted"})
}

// POST /forms/:id/open
func OpenForm(c *gin.Context) {
	setStatus(c, domain.StatusOpen, "Form is now accepting submissions")
}

// POST /forms/:id/close
func CloseForm(c *gin.Context) {
	setStatus(c, domain.StatusClosed, "Form closed")
}

func setStatus(c *gin.Context, status, message string) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	form, ok := loadOwnedForm(c, userID)
	if !ok {
		return
	}

	if err := database.DB.Model(form).Update("status", status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update form status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "status": status})
}

func loadOwnedForm(c *gin.Context, userID uint) (*domain.Form, bool) {
	var form domain.Form
	err := database.DB.
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("sort_index ASC") }).
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		First(&form).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return nil, false
	}
	return &form, true
}
