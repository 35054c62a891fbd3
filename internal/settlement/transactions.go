package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/forms"
	"formdesk/internal/infra/paystack"

	"gorm.io/gorm"
)

// Gateway is the narrow payment-gateway contract the ledgers depend on.
// Satisfied by paystack.Client; tests swap in fakes.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeData, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyData, error)
	CreateSubaccount(ctx context.Context, req paystack.SubaccountRequest) (string, error)
}

const (
	initializeTimeout = 15 * time.Second
	verifyTimeout     = 10 * time.Second

	// Amounts are held in whole currency units; the gateway wire format wants
	// minor units.
	minorUnitsPerUnit = 100
)

// NewReference mints a gateway reference. It is generated before any network
// call so retries of the same logical attempt reuse it instead of minting
// duplicates.
func NewReference() string {
	return fmt.Sprintf("EVT_%d_%d", time.Now().UnixMilli(), rand.Intn(1000000))
}

// TransactionLedger owns the Transaction lifecycle: creation, gateway
// initialization, and idempotent verification.
type TransactionLedger struct {
	db          *gorm.DB
	gateway     Gateway
	callbackURL string // base URL for post-payment redirects
}

func NewTransactionLedger(db *gorm.DB, gateway Gateway, callbackURL string) *TransactionLedger {
	return &TransactionLedger{db: db, gateway: gateway, callbackURL: callbackURL}
}

// Create persists a PENDING transaction for a response. The customer is
// charged base + fee; the organizer keeps base.
func (l *TransactionLedger) Create(form *forms.Form, response *forms.Response, customerEmail, customerName string) (*billing.Transaction, error) {
	if form.PaymentAmount <= 0 {
		return nil, NewError(KindValidation, "form has no payment amount")
	}

	totals := ComputeTotal(form.PaymentAmount)
	tx := &billing.Transaction{
		ResponseID:    response.ID,
		UserID:        form.UserID,
		Reference:     NewReference(),
		Amount:        totals.Total,
		Fee:           totals.Fee,
		NetAmount:     form.PaymentAmount,
		Currency:      form.PaymentCurrency,
		Status:        billing.StatusPending,
		CustomerEmail: customerEmail,
		CustomerName:  customerName,
	}
	if err := l.db.Create(tx).Error; err != nil {
		return nil, WrapError(KindInternal, "failed to persist transaction", err)
	}
	return tx, nil
}

// Initialize drives a PENDING transaction through gateway initialization and
// returns the hosted authorization URL. Any initialization failure is
// terminal: the transaction moves to FAILED and is never retried
// automatically.
func (l *TransactionLedger) Initialize(ctx context.Context, tx *billing.Transaction, form *forms.Form) (string, error) {
	subaccount, err := l.ensureSubaccount(ctx, form.UserID)
	if err != nil {
		l.markFailed(tx, err.Error())
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	data, err := l.gateway.Initialize(callCtx, paystack.InitializeRequest{
		Email:       tx.CustomerEmail,
		Amount:      tx.Amount * minorUnitsPerUnit,
		Reference:   tx.Reference,
		CallbackURL: fmt.Sprintf("%s/f/%s/paid", l.callbackURL, form.Code),
		Metadata: map[string]interface{}{
			"form_code":      form.Code,
			"response_id":    tx.ResponseID,
			"transaction_id": tx.ID,
		},
		Subaccount: subaccount,
	})
	if err != nil {
		l.markFailed(tx, err.Error())
		if errors.Is(err, paystack.ErrUnavailable) {
			return "", WrapError(KindGatewayUnavailable, "payment gateway unreachable", err)
		}
		return "", WrapError(KindGatewayRejected, gatewayMessage(err), err)
	}

	return data.AuthorizationURL, nil
}

// Outcome is the result of verifying a transaction.
type Outcome struct {
	Success     bool
	Transaction *billing.Transaction
}

// Verify settles a transaction by reference. Idempotent: terminal rows return
// their cached outcome without another gateway call. The PENDING→terminal
// transition is a single conditional update, so concurrent webhook and poll
// deliveries race safely — the loser re-reads the terminal row.
func (l *TransactionLedger) Verify(ctx context.Context, reference string) (*Outcome, error) {
	var tx billing.Transaction
	if err := l.db.Where("reference = ?", reference).First(&tx).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewError(KindNotFound, "unknown transaction reference")
		}
		return nil, WrapError(KindInternal, "failed to load transaction", err)
	}

	if tx.Terminal() {
		return &Outcome{Success: tx.Status == billing.StatusCompleted, Transaction: &tx}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	data, err := l.gateway.Verify(callCtx, reference)
	if err != nil {
		if errors.Is(err, paystack.ErrUnavailable) {
			// Leave the row PENDING; the next poll or webhook retries.
			return nil, WrapError(KindGatewayUnavailable, "payment gateway unreachable, retry later", err)
		}
		l.transition(reference, billing.StatusFailed, nil, gatewayMessage(err))
		return l.reload(reference)
	}

	if data.Status == "success" {
		now := time.Now()
		l.transition(reference, billing.StatusCompleted, &now, "")
	} else {
		l.transition(reference, billing.StatusFailed, nil, "gateway reported status "+data.Status)
	}
	return l.reload(reference)
}

// transition performs the conditional PENDING→terminal update. Zero rows
// affected means another caller won the race; that is fine.
func (l *TransactionLedger) transition(reference, status string, paymentDate *time.Time, reason string) {
	updates := map[string]interface{}{"status": status}
	if paymentDate != nil {
		updates["payment_date"] = paymentDate
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}
	l.db.Model(&billing.Transaction{}).
		Where("reference = ? AND status = ?", reference, billing.StatusPending).
		Updates(updates)
}

func (l *TransactionLedger) reload(reference string) (*Outcome, error) {
	var tx billing.Transaction
	if err := l.db.Where("reference = ?", reference).First(&tx).Error; err != nil {
		return nil, WrapError(KindInternal, "failed to reload transaction", err)
	}
	return &Outcome{Success: tx.Status == billing.StatusCompleted, Transaction: &tx}, nil
}

func (l *TransactionLedger) markFailed(tx *billing.Transaction, reason string) {
	l.transition(tx.Reference, billing.StatusFailed, nil, reason)
	tx.Status = billing.StatusFailed
}

// ensureSubaccount returns the organizer's gateway subaccount, creating it on
// first use. Already-present codes are reused, never re-created.
func (l *TransactionLedger) ensureSubaccount(ctx context.Context, userID uint) (string, error) {
	var settings billing.PaymentSettings
	if err := l.db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", NewError(KindPaymentSettingsMissing, "organizer has not completed payment setup")
		}
		return "", WrapError(KindInternal, "failed to load payment settings", err)
	}

	if settings.SubaccountCode != nil && *settings.SubaccountCode != "" {
		return *settings.SubaccountCode, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	code, err := l.gateway.CreateSubaccount(callCtx, paystack.SubaccountRequest{
		BusinessName:     settings.AccountName,
		BankCode:         settings.BankCode,
		AccountNumber:    settings.AccountNumber,
		PercentageCharge: float64(feeRatePercent),
	})
	if err != nil {
		if errors.Is(err, paystack.ErrUnavailable) {
			return "", WrapError(KindGatewayUnavailable, "payment gateway unreachable", err)
		}
		return "", WrapError(KindGatewayRejected, gatewayMessage(err), err)
	}

	if err := l.db.Model(&billing.PaymentSettings{}).
		Where("user_id = ?", userID).
		Update("subaccount_code", code).Error; err != nil {
		return "", WrapError(KindInternal, "failed to store subaccount code", err)
	}
	return code, nil
}

func gatewayMessage(err error) string {
	var apiErr *paystack.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
