package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lipa/internal/models"
	"lipa/internal/repository"
	"lipa/pkg/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CreateIntentParams struct {
	// Amount is a number or a numeric string.
	Amount           any
	Phone            string
	AccountReference string
	Description      string
	CallbackURL      string
	IdempotencyKey   string
	TransactionType  string
}

// IntentService creates payment intents and reconciles gateway callbacks
// against them.
type IntentService struct {
	store           repository.IntentStore
	provider        payment.Provider
	notifier        IntentNotifier
	logger          *zap.Logger
	now             func() time.Time
	newID           func() string
	initiateTimeout time.Duration
	inflight        singleflight.Group
	// applyMu serializes callback read-modify-write cycles.
	applyMu sync.Mutex
}

type Option func(*IntentService)

func WithNotifier(n IntentNotifier) Option {
	return func(s *IntentService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *IntentService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *IntentService) { s.newID = newID }
}

// WithInitiateTimeout bounds each call to the push-payment provider.
func WithInitiateTimeout(d time.Duration) Option {
	return func(s *IntentService) { s.initiateTimeout = d }
}

func NewIntentService(store repository.IntentStore, provider payment.Provider, logger *zap.Logger, opts ...Option) *IntentService {
	s := &IntentService{
		store:    store,
		provider: provider,
		notifier: noopNotifier{},
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIntent sends an STK push and records the resulting intent. A repeated
// idempotency key returns the intent recorded the first time without sending
// another push; concurrent calls with one key share a single push.
//
// The shared push is not cancelled with any one caller's ctx: it runs until it
// finishes or hits the initiate timeout, while each caller stops waiting as
// soon as its own ctx is done.
//
// Provider errors are returned as is and leave nothing behind in the store.
func (s *IntentService) CreateIntent(ctx context.Context, p CreateIntentParams) (*models.PaymentIntent, error) {
	if p.IdempotencyKey == "" {
		return s.create(ctx, p)
	}
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(p.IdempotencyKey, func() (any, error) {
		existing, err := s.byIdempotencyKey(p.IdempotencyKey)
		if err == nil {
			s.logger.Info("idempotent create, returning existing intent",
				zap.String("intent_id", existing.ID),
				zap.String("idempotency_key", p.IdempotencyKey),
			)
			return existing, nil
		}
		if !errors.Is(err, repository.ErrIntentNotFound) {
			return nil, err
		}
		return s.create(shared, p)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		intent := res.Val.(*models.PaymentIntent)
		if res.Shared {
			intent = intent.Clone()
		}
		return intent, nil
	}
}

func (s *IntentService) GetIntent(id string) (*models.PaymentIntent, error) {
	return s.store.GetByID(id)
}

func (s *IntentService) byIdempotencyKey(key string) (*models.PaymentIntent, error) {
	id, err := s.store.ResolveIdempotencyKey(key)
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(id)
}

func (s *IntentService) create(ctx context.Context, p CreateIntentParams) (*models.PaymentIntent, error) {
	if s.initiateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.initiateTimeout)
		defer cancel()
	}
	res, err := s.provider.InitiateSTKPush(ctx, payment.STKPushRequest{
		PhoneNumber:      p.Phone,
		Amount:           amountString(p.Amount),
		CallbackURL:      p.CallbackURL,
		TransactionDesc:  p.Description,
		AccountReference: p.AccountReference,
		TransactionType:  p.TransactionType,
	})
	if err != nil {
		s.logger.Warn("stk push failed, no intent created",
			zap.String("phone", p.Phone),
			zap.String("account_reference", p.AccountReference),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.now()
	intent := &models.PaymentIntent{
		ID:               s.newID(),
		Amount:           NormalizeAmount(p.Amount),
		Phone:            p.Phone,
		AccountReference: p.AccountReference,
		Description:      p.Description,
		Status:           models.IntentStatusRequiresAction,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if res.CheckoutRequestID != "" {
		checkoutID := res.CheckoutRequestID
		intent.CheckoutRequestID = &checkoutID
	}
	if res.MerchantRequestID != "" {
		merchantID := res.MerchantRequestID
		intent.MerchantRequestID = &merchantID
	}

	if err := s.store.Put(intent); err != nil {
		return nil, fmt.Errorf("save intent %s: %w", intent.ID, err)
	}
	if intent.CheckoutRequestID != nil {
		if err := s.store.IndexByCheckoutRequestID(*intent.CheckoutRequestID, intent.ID); err != nil {
			return nil, fmt.Errorf("index intent %s by checkout request id: %w", intent.ID, err)
		}
	}
	if p.IdempotencyKey != "" {
		if err := s.store.IndexByIdempotencyKey(p.IdempotencyKey, intent.ID); err != nil {
			return nil, fmt.Errorf("index intent %s by idempotency key: %w", intent.ID, err)
		}
	}

	s.logger.Info("payment intent created",
		zap.String("intent_id", intent.ID),
		zap.String("checkout_request_id", res.CheckoutRequestID),
		zap.String("merchant_request_id", res.MerchantRequestID),
	)
	return intent, nil
}

// touch advances UpdatedAt without ever moving it backwards.
func (s *IntentService) touch(intent *models.PaymentIntent) {
	now := s.now()
	if now.Before(intent.UpdatedAt) {
		now = intent.UpdatedAt
	}
	intent.UpdatedAt = now
}
