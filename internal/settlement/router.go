package settlement

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/users"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier dispatches settlement emails. Sends are fire-and-forget: failures
// are logged and never affect a settlement outcome.
type Notifier interface {
	PaymentReceived(tx *billing.Transaction) error
	ResponseReceived(ownerEmail, formTitle string) error
	PlanActivated(userEmail, planType string) error
}

// Router sequences gate checks, response persistence, and the ledgers, and
// exposes the public settlement entry points.
type Router struct {
	db            *gorm.DB
	gate          *ResponseGate
	transactions  *TransactionLedger
	subscriptions *SubscriptionLedger
	notifier      Notifier
}

func NewRouter(db *gorm.DB, gateway Gateway, notifier Notifier, appURL string) *Router {
	return &Router{
		db:            db,
		gate:          NewResponseGate(db),
		transactions:  NewTransactionLedger(db, gateway, appURL),
		subscriptions: NewSubscriptionLedger(db, gateway, appURL),
		notifier:      notifier,
	}
}

func (r *Router) Gate() *ResponseGate { return r.gate }

// SubmissionInput carries a public form submission.
type SubmissionInput struct {
	Answers map[string]string
	Name    string
	Email   string // optional; falls back to the form's email-typed answer
}

// SubmissionResult reports a persisted response and, for paid forms, the
// state of the payment that goes with it.
type SubmissionResult struct {
	ResponseID string

	PaymentRequired  bool
	AuthorizationURL string
	Reference        string

	// PaymentError is set when the response was persisted but the payment
	// could not be started. The response is kept; payment is still owed.
	PaymentError string
}

// SubmitResponse runs the gate, persists the response, and — only for forms
// that collect payments — creates and initializes a transaction. Response
// persistence always happens before transaction creation; a payment failure
// after that point is a soft failure, never a rollback.
func (r *Router) SubmitResponse(ctx context.Context, formCode string, in SubmissionInput) (*SubmissionResult, error) {
	if !forms.ValidCode(formCode) {
		return nil, NewError(KindValidation, "malformed form code")
	}

	var form forms.Form
	err := r.db.Preload("Fields").Where("code = ?", formCode).First(&form).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewError(KindNotFound, "unknown form code")
		}
		return nil, WrapError(KindInternal, "failed to load form", err)
	}
	if !form.IsOpen(time.Now()) {
		return nil, NewError(KindValidation, "form is not accepting submissions")
	}

	email := in.Email
	if email == "" {
		email = answerForFirstEmailField(&form, in.Answers)
	}

	dup, err := r.gate.IsDuplicate(&form, email)
	if err != nil {
		return nil, WrapError(KindInternal, "duplicate check failed", err)
	}
	if dup {
		return nil, NewError(KindDuplicateEmail, "this email has already registered")
	}

	ok, err := r.gate.CanAcceptResponse(&form)
	if err != nil {
		return nil, WrapError(KindInternal, "limit check failed", err)
	}
	if !ok {
		return nil, NewError(KindLimitReached, "this form has reached its response limit")
	}

	payload, err := json.Marshal(in.Answers)
	if err != nil {
		return nil, NewError(KindValidation, "malformed answers")
	}

	response := forms.Response{
		PublicID: uuid.NewString(),
		FormID:   form.ID,
		Answers:  datatypes.JSON(payload),
	}
	if err := r.db.Create(&response).Error; err != nil {
		return nil, WrapError(KindInternal, "failed to persist response", err)
	}

	r.dispatch(func() error {
		var owner users.User
		if err := r.db.First(&owner, form.UserID).Error; err != nil {
			return err
		}
		return r.notifier.ResponseReceived(owner.Email, form.Title)
	})

	result := &SubmissionResult{ResponseID: response.PublicID}
	if !form.CollectsPayments {
		return result, nil
	}

	result.PaymentRequired = true

	tx, err := r.transactions.Create(&form, &response, email, in.Name)
	if err != nil {
		log.Println("payment setup failed after response was saved:", err)
		result.PaymentError = string(KindOf(err))
		return result, nil
	}
	result.Reference = tx.Reference

	authURL, err := r.transactions.Initialize(ctx, tx, &form)
	if err != nil {
		log.Println("payment initialization failed after response was saved:", err)
		result.PaymentError = string(KindOf(err))
		return result, nil
	}
	result.AuthorizationURL = authURL
	return result, nil
}

// ConfirmFormPayment verifies a form payment by reference.
func (r *Router) ConfirmFormPayment(ctx context.Context, reference string) (*Outcome, error) {
	outcome, err := r.transactions.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if outcome.Success {
		tx := outcome.Transaction
		r.dispatch(func() error { return r.notifier.PaymentReceived(tx) })
	}
	return outcome, nil
}

// UpgradePlan starts a subscription purchase for the user.
func (r *Router) UpgradePlan(ctx context.Context, user *users.User, planType string) (*UpgradeResult, error) {
	result, err := r.subscriptions.InitiatePayment(ctx, user, planType)
	if err != nil {
		return nil, err
	}
	if result.Upgraded {
		email := user.Email
		r.dispatch(func() error { return r.notifier.PlanActivated(email, planType) })
	}
	return result, nil
}

// ConfirmSubscriptionPayment verifies a plan purchase by reference.
func (r *Router) ConfirmSubscriptionPayment(ctx context.Context, reference string) (*SubscriptionOutcome, error) {
	outcome, err := r.subscriptions.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	if outcome.Success {
		intent := outcome.Intent
		r.dispatch(func() error {
			var user users.User
			if err := r.db.First(&user, intent.UserID).Error; err != nil {
				return err
			}
			return r.notifier.PlanActivated(user.Email, intent.PlanType)
		})
	}
	return outcome, nil
}

// CancelSubscription flags the user's monthly plan to lapse at period end.
func (r *Router) CancelSubscription(userID uint) (*billing.Subscription, error) {
	return r.subscriptions.Cancel(userID)
}

func (r *Router) dispatch(send func() error) {
	if r.notifier == nil {
		return
	}
	go func() {
		if err := send(); err != nil {
			log.Println("notification send failed:", err)
		}
	}()
}

func answerForFirstEmailField(form *forms.Form, answers map[string]string) string {
	for _, id := range form.EmailFieldIDs() {
		if v, ok := answers[uintKey(id)]; ok && v != "" {
			return v
		}
	}
	return ""
}

func uintKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
