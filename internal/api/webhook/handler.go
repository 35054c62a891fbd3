package webhook

import (
	"io"
	"log"
	"net/http"

	"formdesk/config"
	"formdesk/database"
	"formdesk/internal/domain/billing"
	"formdesk/internal/infra/paystack"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
)

// Router is wired at route registration.
var Router *settlement.Router

// PaystackWebhook verifies the HMAC signature and hands charge events to the
// settlement router. The reference decides whether the event belongs to a
// form transaction or a subscription intent; Verify's idempotency makes
// duplicate deliveries harmless.
func PaystackWebhook(c *gin.Context) {
	payload, err := readBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	signature := c.GetHeader("x-paystack-signature")
	if !paystack.ValidSignature(payload, signature, config.PAYSTACK_SECRET_KEY) {
		log.Println("❌ Paystack signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	event, err := paystack.ParseWebhook(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
		return
	}

	switch event.Event {
	case "charge.success", "charge.failed":
		if err := settleReference(c, event.Data.Reference); err != nil {
			// 5xx asks the gateway to retry; terminal-state idempotency makes
			// that safe.
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "received"})

	default:
		// Acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func settleReference(c *gin.Context, reference string) error {
	if reference == "" {
		return nil
	}

	ctx := c.Request.Context()

	var count int64
	database.DB.Model(&billing.Transaction{}).Where("reference = ?", reference).Count(&count)
	if count > 0 {
		_, err := Router.ConfirmFormPayment(ctx, reference)
		return ignoreNotFound(err)
	}

	_, err := Router.ConfirmSubscriptionPayment(ctx, reference)
	return ignoreNotFound(err)
}

// ignoreNotFound drops events for references we never issued so the gateway
// stops retrying them.
func ignoreNotFound(err error) error {
	if err == nil || settlement.KindOf(err) == settlement.KindNotFound {
		return nil
	}
	return err
}

func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
