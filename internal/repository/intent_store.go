package repository

import (
	"errors"

	"lipa/internal/models"
)

// ErrIntentNotFound is returned when an id or secondary key resolves to nothing.
var ErrIntentNotFound = errors.New("payment intent not found")

// IntentStore is the authoritative storage for payment intents plus the two
// secondary indexes used for callback correlation and idempotent creation.
//
// Index writes overwrite silently: the last registration of a key wins.
// Implementations hand out copies, so mutating a returned intent has no
// effect until it is passed back to Put.
type IntentStore interface {
	Put(intent *models.PaymentIntent) error
	GetByID(id string) (*models.PaymentIntent, error)
	IndexByCheckoutRequestID(checkoutRequestID, id string) error
	IndexByIdempotencyKey(key, id string) error
	ResolveCheckoutRequestID(checkoutRequestID string) (string, error)
	ResolveIdempotencyKey(key string) (string, error)
}
