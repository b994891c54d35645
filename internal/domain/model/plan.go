package model

import (
	"strings"
	"time"

	"pix-subscription/internal/domain"

	"github.com/shopspring/decimal"
)

// PlanType is the billing interval a user pays for.
type PlanType string

const (
	PlanMonthly    PlanType = "monthly"
	PlanQuarterly  PlanType = "quarterly"
	PlanSemiannual PlanType = "semiannual"
	PlanYearly     PlanType = "yearly"
)

// ParsePlanType normalises s and returns the matching plan type.
func ParsePlanType(s string) (PlanType, error) {
	p := PlanType(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", domain.ErrInvalidPlan
	}
	return p, nil
}

func (p PlanType) Valid() bool {
	switch p {
	case PlanMonthly, PlanQuarterly, PlanSemiannual, PlanYearly:
		return true
	}
	return false
}

// EndDate returns start advanced by the plan's calendar interval.
// Unknown types fall back to one month and report known=false.
// Month arithmetic follows time.AddDate, so Jan 31 + 1 month normalises to early March.
func (p PlanType) EndDate(start time.Time) (end time.Time, known bool) {
	switch p {
	case PlanMonthly:
		return start.AddDate(0, 1, 0), true
	case PlanQuarterly:
		return start.AddDate(0, 3, 0), true
	case PlanSemiannual:
		return start.AddDate(0, 6, 0), true
	case PlanYearly:
		return start.AddDate(1, 0, 0), true
	default:
		return start.AddDate(0, 1, 0), false
	}
}

// Plan is a purchasable price point for one plan type.
type Plan struct {
	ID        string
	Name      string
	Interval  PlanType
	Price     decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs an active plan.
func NewPlan(id, name string, interval PlanType, price decimal.Decimal) (*Plan, error) {
	if id == "" || name == "" || !interval.Valid() || !price.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:        id,
		Name:      name,
		Interval:  interval,
		Price:     price,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}, nil
}
