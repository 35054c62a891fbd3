package middleware

import (
	"net/http"

	"formdesk/database"
	"formdesk/internal/domain/plans"
	"formdesk/internal/settlement"

	"github.com/gin-gonic/gin"
)

// RequirePaidPlan blocks routes reserved for paying organizers. Expired
// monthly coverage counts as FREE, so no background downgrade job is needed.
func RequirePaidPlan() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
			return
		}

		plan, err := settlement.EffectivePlan(database.DB, userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve plan"})
			return
		}

		if plan.Type == plans.TypeFree {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "This feature requires an active paid plan",
			})
			return
		}

		c.Next()
	}
}
