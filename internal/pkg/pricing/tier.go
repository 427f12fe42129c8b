// Package pricing holds the USD-priced subscription tier catalog and the
// calculator that projects it into localized, discount-aware quotations.
package pricing

import "strings"

type BillingCycle string

const (
	Monthly   BillingCycle = "monthly"
	Quarterly BillingCycle = "quarterly"
	Yearly    BillingCycle = "yearly"
)

// ParseCycle maps free-form input to a cycle, defaulting to monthly.
func ParseCycle(s string) BillingCycle {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(s))) {
	case Yearly, "annual", "year":
		return Yearly
	case Quarterly, "quarter":
		return Quarterly
	default:
		return Monthly
	}
}

type BasePrice struct {
	Monthly   float64  `json:"monthly" validate:"gte=0"`
	Yearly    float64  `json:"yearly" validate:"gte=0"`
	Quarterly *float64 `json:"quarterly,omitempty" validate:"omitempty,gte=0"`
}

type Features struct {
	JobApplications   int   `json:"job_applications" validate:"gte=0"`
	CVUploads         int   `json:"cv_uploads" validate:"gte=0"`
	EmailAccounts     int   `json:"email_accounts" validate:"gte=0"`
	AIRequests        int   `json:"ai_requests" validate:"gte=0"`
	PrioritySupport   bool  `json:"priority_support"`
	AdvancedAnalytics bool  `json:"advanced_analytics"`
	CustomTemplates   bool  `json:"custom_templates"`
	APIAccess         *bool `json:"api_access,omitempty"`
	WhiteLabel        *bool `json:"white_label,omitempty"`
}

// Tier is a subscription plan priced in USD. Tiers are immutable once
// loaded into a Catalog; accessors hand out copies.
type Tier struct {
	ID             string    `json:"id" validate:"required,max=64"`
	Name           string    `json:"name" validate:"required,max=100"`
	Description    string    `json:"description" validate:"max=500"`
	BasePrice      BasePrice `json:"basePrice"`
	Features       Features  `json:"features"`
	IsPopular      bool      `json:"isPopular,omitempty"`
	IsEnterprise   bool      `json:"isEnterprise,omitempty"`
	YearlyDiscount *float64  `json:"yearlyDiscount,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Price returns the USD price for cycle and the cycle actually used. A
// tier without a quarterly price is quoted monthly.
func (t Tier) Price(cycle BillingCycle) (float64, BillingCycle) {
	switch cycle {
	case Yearly:
		return t.BasePrice.Yearly, Yearly
	case Quarterly:
		if t.BasePrice.Quarterly != nil {
			return *t.BasePrice.Quarterly, Quarterly
		}
	}
	return t.BasePrice.Monthly, Monthly
}

// IsFree reports whether the tier costs nothing.
func (t Tier) IsFree() bool {
	return t.ID == "free" || t.BasePrice.Monthly == 0
}

func (t Tier) clone() Tier {
	out := t
	out.BasePrice.Quarterly = cloneFloat(t.BasePrice.Quarterly)
	out.YearlyDiscount = cloneFloat(t.YearlyDiscount)
	out.Features.APIAccess = cloneBool(t.Features.APIAccess)
	out.Features.WhiteLabel = cloneBool(t.Features.WhiteLabel)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func ptrFloat(v float64) *float64 { return &v }
func ptrBool(v bool) *bool        { return &v }

// DefaultTiers is the compiled-in catalog.
func DefaultTiers() []Tier {
	return []Tier{
		{
			ID:          "free",
			Name:        "Free",
			Description: "Try automated applications with a single CV.",
			BasePrice:   BasePrice{Monthly: 0, Yearly: 0},
			Features: Features{
				JobApplications: 10,
				CVUploads:       1,
				EmailAccounts:   1,
				AIRequests:      10,
			},
		},
		{
			ID:          "basic",
			Name:        "Basic",
			Description: "For active job seekers applying every week.",
			BasePrice:   BasePrice{Monthly: 9.99, Yearly: 99.99, Quarterly: ptrFloat(26.99)},
			Features: Features{
				JobApplications: 50,
				CVUploads:       3,
				EmailAccounts:   2,
				AIRequests:      100,
				CustomTemplates: true,
			},
		},
		{
			ID:          "professional",
			Name:        "Professional",
			Description: "High-volume applications with analytics and priority support.",
			BasePrice:   BasePrice{Monthly: 29.99, Yearly: 299.99, Quarterly: ptrFloat(80.99)},
			Features: Features{
				JobApplications:   200,
				CVUploads:         10,
				EmailAccounts:     5,
				AIRequests:        500,
				PrioritySupport:   true,
				AdvancedAnalytics: true,
				CustomTemplates:   true,
				APIAccess:         ptrBool(false),
			},
			IsPopular:      true,
			YearlyDiscount: ptrFloat(17),
		},
		{
			ID:          "enterprise",
			Name:        "Enterprise",
			Description: "Teams and agencies running searches for many candidates.",
			BasePrice:   BasePrice{Monthly: 99.99, Yearly: 999.99, Quarterly: ptrFloat(269.99)},
			Features: Features{
				JobApplications:   1000,
				CVUploads:         50,
				EmailAccounts:     20,
				AIRequests:        5000,
				PrioritySupport:   true,
				AdvancedAnalytics: true,
				CustomTemplates:   true,
				APIAccess:         ptrBool(true),
				WhiteLabel:        ptrBool(true),
			},
			IsEnterprise:   true,
			YearlyDiscount: ptrFloat(17),
		},
	}
}
