package model

// BillingProfile holds what the payment flow needs to know about a user.
type BillingProfile struct {
	UserID             string
	Email              string
	Phone              string
	FullName           string
	BillingCustomerRef *string // set when the user already has a billing customer
	PlanID             *string
}

func (b *BillingProfile) IsZero() bool { return b == nil || b.UserID == "" }

// CustomerRef returns the existing billing customer or the PIX placeholder.
func (b *BillingProfile) CustomerRef() string {
	if b != nil && b.BillingCustomerRef != nil && *b.BillingCustomerRef != "" {
		return *b.BillingCustomerRef
	}
	if b == nil {
		return ""
	}
	return PixCustomerRef(b.UserID)
}
