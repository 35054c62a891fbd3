package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(body []byte, key string) string {
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"EVT_1_1"}}`)
	const key = "sk_test_secret"

	assert.True(t, ValidSignature(body, sign(body, key), key))
	assert.False(t, ValidSignature(body, sign(body, "sk_other_key"), key), "wrong key")
	assert.False(t, ValidSignature([]byte(`{"tampered":true}`), sign(body, key), key), "tampered body")
	assert.False(t, ValidSignature(body, "", key), "missing header")
	assert.False(t, ValidSignature(body, "deadbeef", key), "truncated digest")
}

func TestParseWebhook(t *testing.T) {
	event, err := ParseWebhook([]byte(`{
		"event": "charge.success",
		"data": {"reference": "EVT_1738000000000_42", "status": "success", "amount": 102000}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "charge.success", event.Event)
	assert.Equal(t, "EVT_1738000000000_42", event.Data.Reference)
	assert.Equal(t, "success", event.Data.Status)
	assert.Equal(t, int64(102000), event.Data.Amount)

	_, err = ParseWebhook([]byte("not json"))
	assert.Error(t, err)
}
