package payment

import (
	"context"
	"fmt"
)

// STKPushRequest is what the core hands to the push-payment initiator.
type STKPushRequest struct {
	PhoneNumber      string
	Amount           string
	CallbackURL      string
	TransactionDesc  string
	AccountReference string
	// TransactionType overrides the provider default (e.g. CustomerBuyGoodsOnline).
	TransactionType string
}

// STKPushResponse carries the two correlation ids the gateway assigns to an
// accepted push. The checkout request id comes back in the callback.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type Provider interface {
	InitiateSTKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
}

// APIError is a rejection reported by the gateway, either as a non-2xx reply
// or as a 200 reply with a non-zero ResponseCode.
type APIError struct {
	StatusCode int
	RequestID  string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("mpesa api %d: %s %s (request %s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("mpesa api %d: %s %s", e.StatusCode, e.Code, e.Message)
}
