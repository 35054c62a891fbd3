package plans

import "strings"

// Plan type constants (single source of truth)
const (
	TypeFree     = "FREE"
	TypeMonthly  = "MONTHLY"
	TypeLifetime = "LIFETIME"
)

// Plan describes a subscription tier. Limits are per-account (forms) and
// per-form (responses); a nil limit means unlimited.
type Plan struct {
	Type          string
	Name          string
	Price         int64 // NGN, 0 for the free tier
	Interval      string
	FormLimit     *int
	ResponseLimit *int
}

func intPtr(n int) *int { return &n }

var catalog = []Plan{
	{
		Type:          TypeFree,
		Name:          "Free",
		Price:         0,
		Interval:      "",
		FormLimit:     intPtr(2),
		ResponseLimit: intPtr(50),
	},
	{
		Type:     TypeMonthly,
		Name:     "Pro Monthly",
		Price:    2000,
		Interval: "month",
	},
	{
		Type:     TypeLifetime,
		Name:     "Lifetime",
		Price:    25000,
		Interval: "once",
	},
}

// All returns the plan catalog in display order.
func All() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// ByType looks up a plan by its type constant, case-insensitively.
func ByType(planType string) (Plan, bool) {
	t := strings.ToUpper(strings.TrimSpace(planType))
	for _, p := range catalog {
		if p.Type == t {
			return p, true
		}
	}
	return Plan{}, false
}

// Free returns the free tier, the fallback for users without a subscription.
func Free() Plan {
	p, _ := ByType(TypeFree)
	return p
}
