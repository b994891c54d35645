package model

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is a user's entitlement. A user may have several rows;
// the most recently created one is authoritative.
type Subscription struct {
	ID                 string
	UserID             string
	Status             SubscriptionStatus
	PlanType           PlanType
	StartDate          time.Time
	EndDate            time.Time
	CurrentPeriodEnd   time.Time
	BillingCustomerRef string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PixCustomerRef is the placeholder billing reference for users who only pay through PIX.
func PixCustomerRef(userID string) string { return "pix_" + userID }

// Renew activates s for plan over [start, end).
func (s *Subscription) Renew(plan PlanType, start, end time.Time) {
	s.Status = SubscriptionStatusActive
	s.PlanType = plan
	s.StartDate = start
	s.EndDate = end
	s.CurrentPeriodEnd = end
	s.UpdatedAt = start
}

func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && t.Before(s.EndDate)
}
