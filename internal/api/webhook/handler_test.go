package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"formdesk/config"
	"formdesk/database"
	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/users"
	"formdesk/internal/infra/paystack"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "sk_test_webhook"

type stubGateway struct {
	verifyCalls  int32
	verifyStatus string
}

func (s *stubGateway) Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeData, error) {
	return &paystack.InitializeData{AuthorizationURL: "https://checkout.example/x", Reference: req.Reference}, nil
}

func (s *stubGateway) Verify(ctx context.Context, reference string) (*paystack.VerifyData, error) {
	atomic.AddInt32(&s.verifyCalls, 1)
	return &paystack.VerifyData{Status: s.verifyStatus}, nil
}

func (s *stubGateway) CreateSubaccount(ctx context.Context, req paystack.SubaccountRequest) (string, error) {
	return "ACCT_stub", nil
}

var webhookDBSeq int64

func setupWebhook(t *testing.T) (*gin.Engine, *stubGateway, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:webhook_test_%d?mode=memory&cache=shared", atomic.AddInt64(&webhookDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&users.User{}, &forms.Form{}, &forms.FormField{}, &forms.Response{},
		&billing.PaymentSettings{}, &billing.Transaction{},
		&billing.PaymentIntent{}, &billing.Subscription{}, &billing.SubscriptionPayment{},
	))

	gw := &stubGateway{verifyStatus: "success"}
	database.DB = db
	config.PAYSTACK_SECRET_KEY = testSecret
	Router = settlement.NewRouter(db, gw, nil, "https://app.example.com")

	engine := gin.New()
	engine.POST("/webhooks/paystack", PaystackWebhook)
	return engine, gw, db
}

func deliver(engine *gin.Engine, body []byte, signed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	if signed {
		mac := hmac.New(sha512.New, []byte(testSecret))
		mac.Write(body)
		req.Header.Set("x-paystack-signature", hex.EncodeToString(mac.Sum(nil)))
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestPaystackWebhookRejectsBadSignature(t *testing.T) {
	engine, gw, _ := setupWebhook(t)

	body := []byte(`{"event":"charge.success","data":{"reference":"EVT_1_1"}}`)

	w := deliver(engine, body, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", "bogus")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, gw.verifyCalls, "unverified events never reach the gateway")
}

func TestPaystackWebhookSettlesFormTransaction(t *testing.T) {
	engine, gw, db := setupWebhook(t)

	user := &users.User{Name: "Ada", Email: "owner@example.com", Role: "user", AuthProvider: "local"}
	require.NoError(t, db.Create(user).Error)
	tx := &billing.Transaction{
		UserID: user.ID, Reference: "EVT_1_1", Amount: 1020, Fee: 20, NetAmount: 1000,
		Currency: "NGN", Status: billing.StatusPending, CustomerEmail: "guest@example.com",
	}
	require.NoError(t, db.Create(tx).Error)

	body := []byte(`{"event":"charge.success","data":{"reference":"EVT_1_1","status":"success"}}`)
	w := deliver(engine, body, true)
	assert.Equal(t, http.StatusOK, w.Code)

	var stored billing.Transaction
	require.NoError(t, db.First(&stored, tx.ID).Error)
	assert.Equal(t, billing.StatusCompleted, stored.Status)

	// duplicate delivery: acknowledged, no second verification
	w = deliver(engine, body, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), gw.verifyCalls)
}

func TestPaystackWebhookSettlesSubscriptionIntent(t *testing.T) {
	engine, _, db := setupWebhook(t)

	user := &users.User{Name: "Ada", Email: "ada@example.com", Role: "user", AuthProvider: "local"}
	require.NoError(t, db.Create(user).Error)
	intent := &billing.PaymentIntent{
		UserID: user.ID, PlanType: "MONTHLY", Amount: 2000, Currency: "NGN",
		Reference: "EVT_2_2", Status: billing.StatusPending,
	}
	require.NoError(t, db.Create(intent).Error)

	body := []byte(`{"event":"charge.success","data":{"reference":"EVT_2_2","status":"success"}}`)
	w := deliver(engine, body, true)
	assert.Equal(t, http.StatusOK, w.Code)

	var sub billing.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, "MONTHLY", sub.PlanType)
	assert.Equal(t, billing.SubscriptionActive, sub.Status)
}

func TestPaystackWebhookIgnoresForeignAndUnknownEvents(t *testing.T) {
	engine, gw, _ := setupWebhook(t)

	// reference we never issued: acknowledge so Paystack stops retrying
	w := deliver(engine, []byte(`{"event":"charge.success","data":{"reference":"EVT_9_9"}}`), true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, gw.verifyCalls)

	// unrelated event type
	w = deliver(engine, []byte(`{"event":"transfer.success","data":{"reference":"EVT_9_9"}}`), true)
	assert.Equal(t, http.StatusOK, w.Code)

	// malformed body with a valid signature
	w = deliver(engine, []byte(`not json`), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
