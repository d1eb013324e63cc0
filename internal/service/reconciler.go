package service

import (
	"errors"
	"fmt"

	"lipa/internal/domain"
	"lipa/internal/models"
	"lipa/internal/repository"
	"lipa/pkg/payment"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ApplyCallback applies an STK callback to the intent it refers to and
// returns the updated intent.
//
// A payload that is not JSON, has no checkout request id, or names an unknown
// checkout request id is ignored: the result is (nil, nil). Missing result
// fields never fail the call; a callback without a result code marks the
// intent failed. The only error returned is a store failure.
//
// Replayed callbacks are applied again, including another description append.
// Callbacks are applied one at a time so concurrent deliveries never lose an
// update.
func (s *IntentService) ApplyCallback(raw []byte) (*models.PaymentIntent, error) {
	cb, err := payment.ParseSTKCallback(raw)
	if err != nil {
		s.logger.Warn("callback ignored: unreadable payload", zap.Error(err))
		return nil, nil
	}
	if cb.CheckoutRequestID == "" {
		s.logger.Warn("callback ignored: no checkout request id", zap.Stringer("shape", cb.Shape))
		return nil, nil
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	intent, err := s.byCheckoutRequestID(cb.CheckoutRequestID)
	if errors.Is(err, repository.ErrIntentNotFound) {
		s.logger.Warn("callback ignored: unknown checkout request id", zap.String("checkout_request_id", cb.CheckoutRequestID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.applyResult(intent, cb)
	intent.RawCallback = datatypes.JSON(append([]byte(nil), raw...))
	s.touch(intent)

	if err := s.store.Put(intent); err != nil {
		return nil, fmt.Errorf("save intent %s: %w", intent.ID, err)
	}

	fields := []zap.Field{
		zap.String("intent_id", intent.ID),
		zap.String("checkout_request_id", cb.CheckoutRequestID),
		zap.String("status", string(intent.Status)),
		zap.Stringer("shape", cb.Shape),
	}
	if cb.ResultCode != nil {
		fields = append(fields, zap.String("result_code", payment.FormatResultCode(*cb.ResultCode)))
	}
	if paid := cb.Lookup(domain.ItemAmount); paid != nil {
		fields = append(fields, zap.String("paid_amount", *paid))
	}
	if payer := cb.Lookup(domain.ItemPhoneNumber); payer != nil {
		fields = append(fields, zap.String("payer_phone", *payer))
	}
	s.logger.Info("callback applied", fields...)

	s.notifier.IntentUpdated(intent.Clone())
	return intent, nil
}

func (s *IntentService) byCheckoutRequestID(checkoutRequestID string) (*models.PaymentIntent, error) {
	id, err := s.store.ResolveCheckoutRequestID(checkoutRequestID)
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(id)
}

func (s *IntentService) applyResult(intent *models.PaymentIntent, cb *payment.STKCallback) {
	switch {
	case cb.ResultCode == nil:
		intent.Status = models.IntentStatusFailed
	case *cb.ResultCode == 0:
		intent.Status = models.IntentStatusSucceeded
		intent.MpesaReceiptNumber = cb.Lookup(domain.ItemMpesaReceiptNumber)
		intent.TransactionDate = cb.Lookup(domain.ItemTransactionDate)
	default:
		intent.Status = models.IntentStatusFailed
		if cb.ResultDesc != "" {
			intent.Description = fmt.Sprintf("%s | %s: %s", intent.Description, payment.FormatResultCode(*cb.ResultCode), cb.ResultDesc)
		}
	}
}
