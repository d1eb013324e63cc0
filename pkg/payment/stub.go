package payment

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// StubProvider accepts every push without contacting a gateway. Useful for
// local development together with hand-posted callbacks.
type StubProvider struct {
	seq atomic.Uint64
}

func (s *StubProvider) InitiateSTKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.seq.Add(1)
	ts := time.Now().UnixNano()
	return &STKPushResponse{
		MerchantRequestID:   fmt.Sprintf("stub-%d-%d", ts, n),
		CheckoutRequestID:   fmt.Sprintf("ws_CO_stub_%d_%d", ts, n),
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}
