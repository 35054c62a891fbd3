package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/users"
	"formdesk/internal/infra/paystack"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:settlement_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&users.User{},
		&forms.Form{},
		&forms.FormField{},
		&forms.Response{},
		&billing.PaymentSettings{},
		&billing.Transaction{},
		&billing.PaymentIntent{},
		&billing.Subscription{},
		&billing.SubscriptionPayment{},
	))
	return db
}

// fakeGateway counts calls so tests can assert idempotency: a cached verify
// must not reach the gateway again.
type fakeGateway struct {
	initCalls       int32
	verifyCalls     int32
	subaccountCalls int32

	initErr  error
	initData paystack.InitializeData

	verifyErr    error
	verifyStatus string

	subaccountErr  error
	subaccountCode string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		initData:       paystack.InitializeData{AuthorizationURL: "https://checkout.example/abc", AccessCode: "abc"},
		verifyStatus:   "success",
		subaccountCode: "ACCT_test123",
	}
}

func (f *fakeGateway) Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeData, error) {
	atomic.AddInt32(&f.initCalls, 1)
	if f.initErr != nil {
		return nil, f.initErr
	}
	data := f.initData
	data.Reference = req.Reference
	return &data, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*paystack.VerifyData, error) {
	atomic.AddInt32(&f.verifyCalls, 1)
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &paystack.VerifyData{Status: f.verifyStatus, PaidAt: "2026-01-15T10:30:00Z"}, nil
}

func (f *fakeGateway) CreateSubaccount(ctx context.Context, req paystack.SubaccountRequest) (string, error) {
	atomic.AddInt32(&f.subaccountCalls, 1)
	if f.subaccountErr != nil {
		return "", f.subaccountErr
	}
	return f.subaccountCode, nil
}

func createUser(t *testing.T, db *gorm.DB, email string) *users.User {
	t.Helper()
	user := &users.User{Name: "Ada", Email: email, Role: "user", IsVerified: true, AuthProvider: "local"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// createForm builds an open form with one email field and one text field.
func createForm(t *testing.T, db *gorm.DB, userID uint, amount int64) *forms.Form {
	t.Helper()
	form := &forms.Form{
		Code:             nextCode(),
		UserID:           userID,
		Title:            "Team Offsite",
		Status:           forms.StatusOpen,
		CollectsPayments: amount > 0,
		PaymentAmount:    amount,
		PaymentCurrency:  "NGN",
		Fields: []forms.FormField{
			{Label: "Email", Type: forms.FieldTypeEmail, Required: true, SortIndex: 0},
			{Label: "Full name", Type: forms.FieldTypeText, Required: true, SortIndex: 1},
		},
	}
	require.NoError(t, db.Create(form).Error)
	// reload so field IDs are populated
	require.NoError(t, db.Preload("Fields").First(form, form.ID).Error)
	return form
}

var codeSeq int64

func nextCode() string {
	return fmt.Sprintf("%04d", atomic.AddInt64(&codeSeq, 1)%10000)
}

func createResponse(t *testing.T, db *gorm.DB, form *forms.Form, answers map[string]string) *forms.Response {
	t.Helper()
	payload, err := json.Marshal(answers)
	require.NoError(t, err)
	response := &forms.Response{
		PublicID: uuid.NewString(),
		FormID:   form.ID,
		Answers:  datatypes.JSON(payload),
	}
	require.NoError(t, db.Create(response).Error)
	return response
}

func createSettings(t *testing.T, db *gorm.DB, userID uint, subaccount string) {
	t.Helper()
	settings := &billing.PaymentSettings{
		UserID:        userID,
		BankCode:      "058",
		AccountNumber: "0123456789",
		AccountName:   "Ada Events",
	}
	if subaccount != "" {
		settings.SubaccountCode = &subaccount
	}
	require.NoError(t, db.Create(settings).Error)
}

func apiError(status int, message string) error {
	return &paystack.APIError{StatusCode: status, Message: message}
}

func unavailableErr() error {
	return fmt.Errorf("request failed: %w", paystack.ErrUnavailable)
}

func emailFieldKey(form *forms.Form) string {
	ids := form.EmailFieldIDs()
	return fmt.Sprintf("%d", ids[0])
}
