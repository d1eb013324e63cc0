package models

import (
	"time"

	"gorm.io/datatypes"
)

type IntentStatus string

const (
	IntentStatusRequiresAction IntentStatus = "requires_action"
	IntentStatusProcessing     IntentStatus = "processing" // reserved, no transition reaches it yet
	IntentStatusSucceeded      IntentStatus = "succeeded"
	IntentStatusFailed         IntentStatus = "failed"
	IntentStatusCanceled       IntentStatus = "canceled" // reserved, no transition reaches it yet
)

// Terminal reports whether no further transition is expected from s.
func (s IntentStatus) Terminal() bool {
	switch s {
	case IntentStatusSucceeded, IntentStatusFailed, IntentStatusCanceled:
		return true
	}
	return false
}

// PaymentIntent tracks one STK push from initiation to its callback outcome.
type PaymentIntent struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	Amount             float64        `gorm:"not null" json:"amount"`
	Phone              string         `gorm:"size:20;not null" json:"phone"`
	AccountReference   string         `gorm:"size:64" json:"account_reference"`
	Description        string         `gorm:"type:text" json:"description"`
	Status             IntentStatus   `gorm:"size:20;not null;index" json:"status"`
	CheckoutRequestID  *string        `gorm:"size:64;index" json:"checkout_request_id,omitempty"`
	MerchantRequestID  *string        `gorm:"size:64" json:"merchant_request_id,omitempty"`
	MpesaReceiptNumber *string        `gorm:"size:32" json:"mpesa_receipt_number"`
	TransactionDate    *string        `gorm:"size:32" json:"transaction_date"`
	RawCallback        datatypes.JSON `json:"raw_callback,omitempty"`
	CreatedAt          time.Time      `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (p *PaymentIntent) Clone() *PaymentIntent {
	if p == nil {
		return nil
	}
	c := *p
	c.CheckoutRequestID = cloneString(p.CheckoutRequestID)
	c.MerchantRequestID = cloneString(p.MerchantRequestID)
	c.MpesaReceiptNumber = cloneString(p.MpesaReceiptNumber)
	c.TransactionDate = cloneString(p.TransactionDate)
	if p.RawCallback != nil {
		c.RawCallback = append(datatypes.JSON(nil), p.RawCallback...)
	}
	return &c
}

// PaymentIntentKey is a secondary lookup row (checkout request id or
// idempotency key) pointing at a payment intent.
type PaymentIntentKey struct {
	Kind     string `gorm:"primaryKey;size:32"`
	Key      string `gorm:"primaryKey;size:191"`
	IntentID string `gorm:"size:36;not null;index"`
}

func (PaymentIntentKey) TableName() string {
	return "payment_intent_keys"
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
