package settlement

import (
	"context"
	"errors"
	"time"

	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/plans"
	"formdesk/internal/domain/users"
	"formdesk/internal/infra/paystack"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionLedger mirrors TransactionLedger for plan purchases: a
// PaymentIntent rides the same PENDING→terminal lifecycle, and a confirmed
// payment upserts the user's Subscription row.
type SubscriptionLedger struct {
	db          *gorm.DB
	gateway     Gateway
	callbackURL string
}

func NewSubscriptionLedger(db *gorm.DB, gateway Gateway, callbackURL string) *SubscriptionLedger {
	return &SubscriptionLedger{db: db, gateway: gateway, callbackURL: callbackURL}
}

// UpgradeResult is what InitiatePayment hands back: either an immediate
// upgrade (free plans skip the gateway entirely) or an authorization URL.
type UpgradeResult struct {
	Upgraded         bool
	AuthorizationURL string
	Reference        string
}

// InitiatePayment starts a plan purchase. Zero-priced plans apply
// synchronously with no PaymentIntent and no gateway call.
func (l *SubscriptionLedger) InitiatePayment(ctx context.Context, user *users.User, planType string) (*UpgradeResult, error) {
	plan, ok := plans.ByType(planType)
	if !ok {
		return nil, NewError(KindValidation, "unknown plan type")
	}

	if plan.Price == 0 {
		if err := l.ApplyUpgrade(user.ID, plan.Type, 0, ""); err != nil {
			return nil, err
		}
		return &UpgradeResult{Upgraded: true}, nil
	}

	intent := &billing.PaymentIntent{
		UserID:    user.ID,
		PlanType:  plan.Type,
		Amount:    plan.Price,
		Currency:  "NGN",
		Reference: NewReference(),
		Status:    billing.StatusPending,
	}
	if err := l.db.Create(intent).Error; err != nil {
		return nil, WrapError(KindInternal, "failed to persist payment intent", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	data, err := l.gateway.Initialize(callCtx, paystack.InitializeRequest{
		Email:       user.Email,
		Amount:      intent.Amount * minorUnitsPerUnit,
		Reference:   intent.Reference,
		CallbackURL: l.callbackURL + "/account/billing",
		Metadata: map[string]interface{}{
			"user_id":   user.ID,
			"plan_type": plan.Type,
			"intent_id": intent.ID,
		},
	})
	if err != nil {
		l.failIntent(intent.Reference, gatewayMessage(err))
		if errors.Is(err, paystack.ErrUnavailable) {
			return nil, WrapError(KindGatewayUnavailable, "payment gateway unreachable", err)
		}
		return nil, WrapError(KindGatewayRejected, gatewayMessage(err), err)
	}

	return &UpgradeResult{AuthorizationURL: data.AuthorizationURL, Reference: intent.Reference}, nil
}

// SubscriptionOutcome is the result of verifying a plan purchase.
type SubscriptionOutcome struct {
	Success bool
	Intent  *billing.PaymentIntent
}

// VerifyPayment settles a payment intent. Terminal intents short-circuit
// with the cached outcome; the winner of the conditional-update race applies
// the upgrade exactly once.
func (l *SubscriptionLedger) VerifyPayment(ctx context.Context, reference string) (*SubscriptionOutcome, error) {
	var intent billing.PaymentIntent
	if err := l.db.Where("reference = ?", reference).First(&intent).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewError(KindNotFound, "unknown payment reference")
		}
		return nil, WrapError(KindInternal, "failed to load payment intent", err)
	}

	if intent.Terminal() {
		return &SubscriptionOutcome{Success: intent.Status == billing.StatusCompleted, Intent: &intent}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	data, err := l.gateway.Verify(callCtx, reference)
	if err != nil {
		if errors.Is(err, paystack.ErrUnavailable) {
			return nil, WrapError(KindGatewayUnavailable, "payment gateway unreachable, retry later", err)
		}
		l.failIntent(reference, gatewayMessage(err))
		return l.reload(reference)
	}

	if data.Status != "success" {
		l.failIntent(reference, "gateway reported status "+data.Status)
		return l.reload(reference)
	}

	now := time.Now()
	res := l.db.Model(&billing.PaymentIntent{}).
		Where("reference = ? AND status = ?", reference, billing.StatusPending).
		Updates(map[string]interface{}{"status": billing.StatusCompleted, "payment_date": &now})
	if res.Error != nil {
		return nil, WrapError(KindInternal, "failed to complete payment intent", res.Error)
	}
	if res.RowsAffected > 0 {
		// This caller won the race; apply the upgrade once.
		if err := l.ApplyUpgrade(intent.UserID, intent.PlanType, intent.Amount, intent.Reference); err != nil {
			return nil, err
		}
	}
	return l.reload(reference)
}

// ApplyUpgrade upserts the user's subscription and appends a history row.
// Safe to call at most once per confirmed payment — the idempotent verify
// above guards that, not this function.
func (l *SubscriptionLedger) ApplyUpgrade(userID uint, planType string, amount int64, reference string) error {
	now := time.Now()
	var endDate *time.Time
	if planType == plans.TypeMonthly {
		end := now.AddDate(0, 1, 0)
		endDate = &end
	}

	sub := billing.Subscription{
		UserID:            userID,
		PlanType:          planType,
		Status:            billing.SubscriptionActive,
		StartDate:         now,
		EndDate:           endDate,
		CancelAtPeriodEnd: false,
	}
	err := l.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_type", "status", "start_date", "end_date", "cancel_at_period_end", "updated_at",
		}),
	}).Create(&sub).Error
	if err != nil {
		return WrapError(KindInternal, "failed to upsert subscription", err)
	}

	history := billing.SubscriptionPayment{
		UserID:    userID,
		PlanType:  planType,
		Amount:    amount,
		Currency:  "NGN",
		Reference: reference,
	}
	if err := l.db.Create(&history).Error; err != nil {
		return WrapError(KindInternal, "failed to record subscription payment", err)
	}
	return nil
}

// Cancel flags a monthly subscription to lapse at period end. Coverage
// continues until the end date; nothing downgrades early.
func (l *SubscriptionLedger) Cancel(userID uint) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := l.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewError(KindNotFound, "no subscription to cancel")
		}
		return nil, WrapError(KindInternal, "failed to load subscription", err)
	}

	if sub.PlanType != plans.TypeMonthly {
		return nil, NewError(KindValidation, "only monthly subscriptions can be canceled")
	}

	if err := l.db.Model(&sub).Update("cancel_at_period_end", true).Error; err != nil {
		return nil, WrapError(KindInternal, "failed to cancel subscription", err)
	}
	sub.CancelAtPeriodEnd = true
	return &sub, nil
}

func (l *SubscriptionLedger) failIntent(reference, reason string) {
	l.db.Model(&billing.PaymentIntent{}).
		Where("reference = ? AND status = ?", reference, billing.StatusPending).
		Updates(map[string]interface{}{"status": billing.StatusFailed, "failure_reason": reason})
}

func (l *SubscriptionLedger) reload(reference string) (*SubscriptionOutcome, error) {
	var intent billing.PaymentIntent
	if err := l.db.Where("reference = ?", reference).First(&intent).Error; err != nil {
		return nil, WrapError(KindInternal, "failed to reload payment intent", err)
	}
	return &SubscriptionOutcome{Success: intent.Status == billing.StatusCompleted, Intent: &intent}, nil
}
