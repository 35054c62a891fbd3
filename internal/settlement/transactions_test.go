package settlement

import (
	"context"
	"strings"
	"testing"

	"formdesk/internal/domain/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionCreate(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "owner@example.com")
	form := createForm(t, db, user.ID, 1000)
	response := createResponse(t, db, form, map[string]string{emailFieldKey(form): "payer@example.com"})

	ledger := NewTransactionLedger(db, newFakeGateway(), "https://app.example.com")

	tx, err := ledger.Create(form, response, "payer@example.com", "Payer")
	require.NoError(t, err)

	assert.Equal(t, int64(1020), tx.Amount, "customer pays base plus fee")
	assert.Equal(t, int64(20), tx.Fee)
	assert.Equal(t, int64(1000), tx.NetAmount, "organizer keeps the base amount")
	assert.Equal(t, billing.StatusPending, tx.Status)
	assert.True(t, strings.HasPrefix(tx.Reference, "EVT_"))

	t.Run("rejects free form", func(t *testing.T) {
		free := createForm(t, db, user.ID, 0)
		_, err := ledger.Create(free, response, "payer@example.com", "Payer")
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestTransactionInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("missing payment settings fails the transaction", func(t *testing.T) {
		db := newTestDB(t)
		user := createUser(t, db, "owner@example.com")
		form := createForm(t, db, user.ID, 1000)
		response := createResponse(t, db, form, nil)
		gw := newFakeGateway()
		ledger := NewTransactionLedger(db, gw, "https://app.example.com")

		tx, err := ledger.Create(form, response, "payer@example.com", "Payer")
		require.NoError(t, err)

		_, err = ledger.Initialize(ctx, tx, form)
		require.Error(t, err)
		assert.Equal(t, KindPaymentSettingsMissing, KindOf(err))
		assert.Zero(t, gw.initCalls, "no gateway call without settings")

		var stored billing.Transaction
		require.NoError(t, db.First(&stored, tx.ID).Error)
		assert.Equal(t, billing.StatusFailed, stored.Status)
	})

	t.Run("creates subaccount once and reuses it", func(t *testing.T) {
		db := newTestDB(t)
		user := createUser(t, db, "owner@example.com")
		form := createForm(t, db, user.ID, 1000)
		createSettings(t, db, user.ID, "")
		gw := newFakeGateway()
		ledger := NewTransactionLedger(db, gw, "https://app.example.com")

		for i := 0; i < 2; i++ {
			response := createResponse(t, db, form, nil)
			tx, err := ledger.Create(form, response, "payer@example.com", "Payer")
			require.NoError(t, err)

			url, err := ledger.Initialize(ctx, tx, form)
			require.NoError(t, err)
			assert.Equal(t, "https://checkout.example/abc", url)
		}

		assert.Equal(t, int32(1), gw.subaccountCalls, "second initialize reuses the stored code")

		var settings billing.PaymentSettings
		require.NoError(t, db.Where("user_id = ?", user.ID).First(&settings).Error)
		require.NotNil(t, settings.SubaccountCode)
		assert.Equal(t, "ACCT_test123", *settings.SubaccountCode)
	})

	t.Run("gateway rejection fails the transaction", func(t *testing.T) {
		db := newTestDB(t)
		user := createUser(t, db, "owner@example.com")
		form := createForm(t, db, user.ID, 1000)
		createSettings(t, db, user.ID, "ACCT_existing")
		gw := newFakeGateway()
		gw.initErr = apiError(400, "invalid email")
		ledger := NewTransactionLedger(db, gw, "https://app.example.com")

		response := createResponse(t, db, form, nil)
		tx, err := ledger.Create(form, response, "payer@example.com", "Payer")
		require.NoError(t, err)

		_, err = ledger.Initialize(ctx, tx, form)
		require.Error(t, err)
		assert.Equal(t, KindGatewayRejected, KindOf(err))

		var stored billing.Transaction
		require.NoError(t, db.First(&stored, tx.ID).Error)
		assert.Equal(t, billing.StatusFailed, stored.Status)
	})
}

func TestTransactionVerify(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, gw *fakeGateway) (*TransactionLedger, *billing.Transaction, func() billing.Transaction) {
		db := newTestDB(t)
		user := createUser(t, db, "owner@example.com")
		form := createForm(t, db, user.ID, 1000)
		response := createResponse(t, db, form, nil)
		ledger := NewTransactionLedger(db, gw, "https://app.example.com")
		tx, err := ledger.Create(form, response, "payer@example.com", "Payer")
		require.NoError(t, err)

		reload := func() billing.Transaction {
			var stored billing.Transaction
			require.NoError(t, db.First(&stored, tx.ID).Error)
			return stored
		}
		return ledger, tx, reload
	}

	t.Run("success completes and caches", func(t *testing.T) {
		gw := newFakeGateway()
		ledger, tx, reload := setup(t, gw)

		outcome, err := ledger.Verify(ctx, tx.Reference)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, billing.StatusCompleted, outcome.Transaction.Status)
		assert.NotNil(t, outcome.Transaction.PaymentDate)

		// second call must not reach the gateway and must agree
		again, err := ledger.Verify(ctx, tx.Reference)
		require.NoError(t, err)
		assert.True(t, again.Success)
		assert.Equal(t, int32(1), gw.verifyCalls)

		assert.Equal(t, billing.StatusCompleted, reload().Status)
	})

	t.Run("gateway failure status fails the row", func(t *testing.T) {
		gw := newFakeGateway()
		gw.verifyStatus = "abandoned"
		ledger, tx, reload := setup(t, gw)

		outcome, err := ledger.Verify(ctx, tx.Reference)
		require.NoError(t, err)
		assert.False(t, outcome.Success)

		stored := reload()
		assert.Equal(t, billing.StatusFailed, stored.Status)
		require.NotNil(t, stored.FailureReason)
		assert.Contains(t, *stored.FailureReason, "abandoned")
	})

	t.Run("terminal rows never move backwards", func(t *testing.T) {
		gw := newFakeGateway()
		ledger, tx, reload := setup(t, gw)

		_, err := ledger.Verify(ctx, tx.Reference)
		require.NoError(t, err)

		// even if the gateway would now report a failure, the cached outcome wins
		gw.verifyStatus = "failed"
		outcome, err := ledger.Verify(ctx, tx.Reference)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, billing.StatusCompleted, reload().Status)
		assert.Equal(t, int32(1), gw.verifyCalls)
	})

	t.Run("unreachable gateway leaves the row pending", func(t *testing.T) {
		gw := newFakeGateway()
		gw.verifyErr = unavailableErr()
		ledger, tx, reload := setup(t, gw)

		_, err := ledger.Verify(ctx, tx.Reference)
		require.Error(t, err)
		assert.Equal(t, KindGatewayUnavailable, KindOf(err))
		assert.Equal(t, billing.StatusPending, reload().Status)

		// once the gateway is back the same reference settles normally
		gw.verifyErr = nil
		outcome, err := ledger.Verify(ctx, tx.Reference)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
	})

	t.Run("unknown reference", func(t *testing.T) {
		gw := newFakeGateway()
		ledger, _, _ := setup(t, gw)

		_, err := ledger.Verify(ctx, "EVT_0_0")
		require.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}
