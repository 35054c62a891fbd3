// Package public serves the unauthenticated attendee-facing routes: form
// lookup by code, submission, and payment confirmation landings.
package public

import (
	"net/http"
	"time"

	"formdesk/database"
	"formdesk/internal/domain/forms"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
)

// Router is wired at route registration.
var Router *settlement.Router

type publicFieldDTO struct {
	ID       uint   `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Options  any    `json:"options,omitempty"`
}

// GET /f/:code
func GetForm(c *gin.Context) {
	code := c.Param("code")
	if !forms.ValidCode(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed form code"})
		return
	}

	var form forms.Form
	if err := database.DB.Preload("Fields").Where("code = ?", code).First(&form).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}
	if !form.IsOpen(time.Now()) {
		c.JSON(http.StatusGone, gin.H{"error": "This form is no longer accepting submissions"})
		return
	}

	fields := make([]publicFieldDTO, 0, len(form.Fields))
	for _, f := range form.Fields {
		dto := publicFieldDTO{ID: f.ID, Label: f.Label, Type: f.Type, Required: f.Required}
		if len(f.Options) > 0 {
			dto.Options = f.Options
		}
		fields = append(fields, dto)
	}

	out := gin.H{
		"code":        form.Code,
		"title":       form.Title,
		"description": form.Description,
		"fields":      fields,
	}
	if form.CollectsPayments {
		totals := settlement.ComputeTotal(form.PaymentAmount)
		out["payment"] = gin.H{
			"amount":   form.PaymentAmount,
			"fee":      totals.Fee,
			"total":    totals.Total,
			"currency": form.PaymentCurrency,
		}
	}

	c.JSON(http.StatusOK, out)
}

type submitInput struct {
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Answers map[string]string `json:"answers" binding:"required"`
}

// POST /f/:code/responses
func SubmitResponse(c *gin.Context) {
	var input submitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := Router.SubmitResponse(c.Request.Context(), c.Param("code"), settlement.SubmissionInput{
		Answers: input.Answers,
		Name:    input.Name,
		Email:   input.Email,
	})
	if err != nil {
		kind := settlement.KindOf(err)
		c.JSON(kind.HTTPStatus(), gin.H{"error": err.Error(), "reason": string(kind)})
		return
	}

	out := gin.H{"response_id": result.ResponseID}
	if result.PaymentRequired {
		out["payment_required"] = true
		if result.AuthorizationURL != "" {
			out["authorization_url"] = result.AuthorizationURL
			out["reference"] = result.Reference
		} else {
			// Response saved, payment could not be started.
			out["payment_error"] = result.PaymentError
		}
	}
	c.JSON(http.StatusCreated, out)
}

// GET /payments/verify/:reference — callback landing and client poll target
// for form payments.
func VerifyFormPayment(c *gin.Context) {
	outcome, err := Router.ConfirmFormPayment(c.Request.Context(), c.Param("reference"))
	if err != nil {
		kind := settlement.KindOf(err)
		c.JSON(kind.HTTPStatus(), gin.H{"error": err.Error(), "reason": string(kind)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   outcome.Success,
		"status":    outcome.Transaction.Status,
		"reference": outcome.Transaction.Reference,
		"amount":    outcome.Transaction.Amount,
		"paid_at":   outcome.Transaction.PaymentDate,
	})
}

// GET /billing/verify/:reference — same, for subscription purchases.
func VerifySubscriptionPayment(c *gin.Context) {
	outcome, err := Router.ConfirmSubscriptionPayment(c.Request.Context(), c.Param("reference"))
	if err != nil {
		kind := settlement.KindOf(err)
		c.JSON(kind.HTTPStatus(), gin.H{"error": err.Error(), "reason": string(kind)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   outcome.Success,
		"status":    outcome.Intent.Status,
		"plan_type": outcome.Intent.PlanType,
		"reference": outcome.Intent.Reference,
	})
}
