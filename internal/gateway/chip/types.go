package chip

// Request and response payloads for the CHIP gateway API. Amounts are minor
// units end to end; the gateway speaks cents natively.

// ClientRequest creates or updates a gateway client record.
type ClientRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// Client is the gateway's client record.
type Client struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// Product is one priced line inside a purchase.
type Product struct {
	Name string `json:"name"`
	// Price in minor units
	Price    int64 `json:"price"`
	Quantity int   `json:"quantity,omitempty"`
}

// PurchaseDetails carries the product lines and currency of a purchase.
type PurchaseDetails struct {
	Currency string    `json:"currency"`
	Products []Product `json:"products"`
	// Total in minor units, reported by the gateway
	Total int64 `json:"total,omitempty"`
}

// PurchaseRequest creates a one-off purchase.
type PurchaseRequest struct {
	ClientID  string            `json:"client_id"`
	BrandID   string            `json:"brand_id"`
	Purchase  PurchaseDetails   `json:"purchase"`
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Purchase is the gateway's purchase record.
type Purchase struct {
	ID        string          `json:"id"`
	ClientID  string          `json:"client_id"`
	Status    string          `json:"status"`
	Purchase  PurchaseDetails `json:"purchase"`
	Reference string          `json:"reference,omitempty"`
	// RefundableAmount in minor units, reported by the gateway
	RefundableAmount int64 `json:"refundable_amount,omitempty"`
	CreatedOn        int64 `json:"created_on,omitempty"`
}

// RefundRequest refunds a settled purchase, partially when Amount is set.
type RefundRequest struct {
	// Amount in minor units; zero refunds the full purchase
	Amount int64 `json:"amount,omitempty"`
}

// ChargeRequest charges a purchase using a stored recurring token.
type ChargeRequest struct {
	RecurringToken string `json:"recurring_token"`
}

// SubscriptionRequest creates a recurring billing agreement.
type SubscriptionRequest struct {
	ClientID string            `json:"client_id"`
	BrandID  string            `json:"brand_id"`
	PlanID   string            `json:"plan_id"`
	Quantity int               `json:"quantity,omitempty"`
	TrialEnd int64             `json:"trial_end,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Subscription is the gateway's recurring agreement record.
type Subscription struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	PlanID   string `json:"plan_id"`
	Status   string `json:"status"`
	Quantity int    `json:"quantity,omitempty"`
	// NextBillingDate as a unix timestamp, zero when cancelled immediately
	NextBillingDate int64 `json:"next_billing_date,omitempty"`
	CancelledAt     int64 `json:"cancelled_at,omitempty"`
}

// CancelSubscriptionRequest schedules or executes a cancellation.
type CancelSubscriptionRequest struct {
	// Immediate ends the agreement right away instead of at the period end
	Immediate bool `json:"immediate,omitempty"`
}

// UpdateSubscriptionRequest changes the quantity of a recurring agreement.
type UpdateSubscriptionRequest struct {
	Quantity int `json:"quantity"`
}
