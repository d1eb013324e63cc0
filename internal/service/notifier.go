package service

import "lipa/internal/models"

// IntentNotifier is told about every intent the reconciler writes back.
// Implementations must not block.
type IntentNotifier interface {
	IntentUpdated(intent *models.PaymentIntent)
}

type noopNotifier struct{}

func (noopNotifier) IntentUpdated(*models.PaymentIntent) {}
