package settlement

import (
	"strings"
	"time"

	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/plans"

	"gorm.io/gorm"
)

// ResponseGate runs the pre-commit checks a submission must pass before a
// Response row is persisted or the gateway is contacted. Both checks are
// read-then-decide: two concurrent submissions can both pass, which is an
// accepted weaker guarantee for this domain.
type ResponseGate struct {
	db *gorm.DB
}

func NewResponseGate(db *gorm.DB) *ResponseGate {
	return &ResponseGate{db: db}
}

// EffectivePlan resolves a user's plan for gating. A MONTHLY subscription
// past its end date counts as FREE, so expired coverage degrades without a
// background sweep. Users without a subscription row are FREE.
func EffectivePlan(db *gorm.DB, userID uint) (plans.Plan, error) {
	var sub billing.Subscription
	err := db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return plans.Free(), nil
		}
		return plans.Plan{}, err
	}

	plan, ok := plans.ByType(sub.PlanType)
	if !ok || sub.Status != billing.SubscriptionActive {
		return plans.Free(), nil
	}
	if sub.EndDate != nil && time.Now().After(*sub.EndDate) {
		return plans.Free(), nil
	}
	return plan, nil
}

// IsDuplicate reports whether any existing response to the form carries the
// same email, compared case-insensitively, in any email-typed field. Forms
// without an email field cannot be checked and report false.
func (g *ResponseGate) IsDuplicate(form *forms.Form, email string) (bool, error) {
	emailFields := form.EmailFieldIDs()
	if len(emailFields) == 0 || strings.TrimSpace(email) == "" {
		return false, nil
	}

	wanted := normalizeEmail(email)

	var responses []forms.Response
	if err := g.db.Where("form_id = ?", form.ID).Find(&responses).Error; err != nil {
		return false, err
	}

	keys := make(map[uint]struct{}, len(emailFields))
	for _, id := range emailFields {
		keys[id] = struct{}{}
	}

	for i := range responses {
		answers, err := forms.DecodeAnswers(&responses[i])
		if err != nil {
			continue
		}
		for fieldID, value := range answers {
			id, ok := parseFieldID(fieldID)
			if !ok {
				continue
			}
			if _, isEmail := keys[id]; isEmail && normalizeEmail(value) == wanted {
				return true, nil
			}
		}
	}
	return false, nil
}

// CanAcceptResponse reports whether the form owner's plan still allows a new
// response on this form. A nil limit means unlimited; otherwise the current
// count must be strictly below the limit.
func (g *ResponseGate) CanAcceptResponse(form *forms.Form) (bool, error) {
	plan, err := EffectivePlan(g.db, form.UserID)
	if err != nil {
		return false, err
	}
	if plan.ResponseLimit == nil {
		return true, nil
	}

	var count int64
	if err := g.db.Model(&forms.Response{}).Where("form_id = ?", form.ID).Count(&count).Error; err != nil {
		return false, err
	}
	return count < int64(*plan.ResponseLimit), nil
}

// CanCreateForm applies the plan's form limit for a new form.
func (g *ResponseGate) CanCreateForm(userID uint) (bool, error) {
	plan, err := EffectivePlan(g.db, userID)
	if err != nil {
		return false, err
	}
	if plan.FormLimit == nil {
		return true, nil
	}

	var count int64
	if err := g.db.Model(&forms.Form{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count < int64(*plan.FormLimit), nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func parseFieldID(s string) (uint, bool) {
	var id uint
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		id = id*10 + uint(c-'0')
	}
	if s == "" {
		return 0, false
	}
	return id, true
}
