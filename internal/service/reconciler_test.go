package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipa/internal/models"
)

const successCallback = `{"Body":{"stkCallback":{
	"MerchantRequestID":"29115-1","CheckoutRequestID":"ws_CO_1","ResultCode":0,
	"ResultDesc":"The service request is processed successfully.",
	"CallbackMetadata":{"Item":[{"MpesaReceiptNumber":"ABC123"},{"TransactionDate":"20230926124530"}]}}}}`

const insufficientFundsCallback = `{"Body":{"stkCallback":{
	"MerchantRequestID":"29115-1","CheckoutRequestID":"ws_CO_1","ResultCode":1,"ResultDesc":"Insufficient funds"}}}`

const noCodeCallback = `{"Body":{"stkCallback":{"MerchantRequestID":"29115-1","CheckoutRequestID":"ws_CO_1","ResultDesc":"something odd"}}}`

type recordingNotifier struct {
	mu      sync.Mutex
	updates []*models.PaymentIntent
}

func (r *recordingNotifier) IntentUpdated(intent *models.PaymentIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, intent)
}

func createOne(t *testing.T, svc *IntentService) *models.PaymentIntent {
	t.Helper()
	intent, err := svc.CreateIntent(context.Background(), baseParams())
	require.NoError(t, err)
	require.Equal(t, "ws_CO_1", *intent.CheckoutRequestID)
	return intent
}

func TestApplyCallback_Success(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, _ := newTestService(t, &fakeProvider{}, WithNotifier(notifier))
	created := createOne(t, svc)

	updated, err := svc.ApplyCallback([]byte(successCallback))
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, models.IntentStatusSucceeded, updated.Status)
	require.NotNil(t, updated.MpesaReceiptNumber)
	assert.Equal(t, "ABC123", *updated.MpesaReceiptNumber)
	require.NotNil(t, updated.TransactionDate)
	assert.Equal(t, "20230926124530", *updated.TransactionDate)
	assert.JSONEq(t, successCallback, string(updated.RawCallback))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.Equal(t, "Order 1", updated.Description)

	stored, err := svc.GetIntent(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusSucceeded, stored.Status)

	require.Len(t, notifier.updates, 1)
	assert.Equal(t, models.IntentStatusSucceeded, notifier.updates[0].Status)
}

func TestApplyCallback_SuccessWithoutMetadata(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	createOne(t, svc)

	updated, err := svc.ApplyCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusSucceeded, updated.Status)
	assert.Nil(t, updated.MpesaReceiptNumber)
	assert.Nil(t, updated.TransactionDate)
}

func TestApplyCallback_DarajaNameValueItems(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	createOne(t, svc)

	raw := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0,"CallbackMetadata":{"Item":[
		{"Name":"Amount","Value":1.00},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},
		{"Name":"TransactionDate","Value":20191219102115}]}}}}`
	updated, err := svc.ApplyCallback([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "NLJ7RT61SV", *updated.MpesaReceiptNumber)
	assert.Equal(t, "20191219102115", *updated.TransactionDate)
}

func TestApplyCallback_FailureAppendsDescription(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	created := createOne(t, svc)

	updated, err := svc.ApplyCallback([]byte(insufficientFundsCallback))
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, updated.Status)
	assert.Equal(t, "Order 1 | 1: Insufficient funds", updated.Description)
	assert.Nil(t, updated.MpesaReceiptNumber)
	assert.NotEmpty(t, updated.RawCallback)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestApplyCallback_FailureWithoutDescription(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	createOne(t, svc)

	updated, err := svc.ApplyCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":1032,"ResultDesc":""}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, updated.Status)
	assert.Equal(t, "Order 1", updated.Description)
}

func TestApplyCallback_MissingResultCode(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	created := createOne(t, svc)

	updated, err := svc.ApplyCallback([]byte(noCodeCallback))
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, updated.Status)
	assert.Equal(t, created.Description, updated.Description)
	assert.JSONEq(t, noCodeCallback, string(updated.RawCallback))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestApplyCallback_StringResultCodeIsTreatedAsMissing(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	createOne(t, svc)

	updated, err := svc.ApplyCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":"0","ResultDesc":"ok"}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, updated.Status)
	assert.Equal(t, "Order 1", updated.Description)
}

func TestApplyCallback_UnknownCorrelationIsNoop(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, store := newTestService(t, &fakeProvider{}, WithNotifier(notifier))
	created := createOne(t, svc)

	for _, raw := range []string{
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_unknown","ResultCode":0}}}`,
		`{"Body":{"stkCallback":{"ResultCode":0}}}`,
		`{}`,
		`[]`,
		`not json at all`,
		``,
	} {
		updated, err := svc.ApplyCallback([]byte(raw))
		assert.NoError(t, err, raw)
		assert.Nil(t, updated, raw)
	}

	assert.Equal(t, 1, store.Len())
	stored, err := svc.GetIntent(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
	assert.Empty(t, notifier.updates)
}

func TestApplyCallback_CorrelatesExactIntent(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	first := createOne(t, svc)
	second, err := svc.CreateIntent(context.Background(), baseParams())
	require.NoError(t, err)
	require.Equal(t, "ws_CO_2", *second.CheckoutRequestID)

	updated, err := svc.ApplyCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_2","ResultCode":0}}}`))
	require.NoError(t, err)
	assert.Equal(t, second.ID, updated.ID)

	untouched, err := svc.GetIntent(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusRequiresAction, untouched.Status)
}

func TestApplyCallback_CorrelationIDsNeverChange(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	created := createOne(t, svc)

	// the payload's merchant id disagrees with the stored one
	raw := `{"Body":{"stkCallback":{"MerchantRequestID":"other","CheckoutRequestID":"ws_CO_1","ResultCode":0}}}`
	updated, err := svc.ApplyCallback([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, *created.CheckoutRequestID, *updated.CheckoutRequestID)
	assert.Equal(t, *created.MerchantRequestID, *updated.MerchantRequestID)
}

func TestApplyCallback_ReplayReappliesFailure(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	createOne(t, svc)

	first, err := svc.ApplyCallback([]byte(insufficientFundsCallback))
	require.NoError(t, err)
	second, err := svc.ApplyCallback([]byte(insufficientFundsCallback))
	require.NoError(t, err)

	assert.Equal(t, models.IntentStatusFailed, second.Status)
	assert.Equal(t, "Order 1 | 1: Insufficient funds | 1: Insufficient funds", second.Description)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestApplyCallback_UpdatedAtNeverMovesBack(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	created := createOne(t, svc)

	// a clock running behind the stored timestamp
	svc.now = func() time.Time { return created.UpdatedAt.Add(-time.Hour) }
	updated, err := svc.ApplyCallback([]byte(successCallback))
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func TestApplyCallback_FractionalResultCode(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	createOne(t, svc)

	updated, err := svc.ApplyCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":1.5,"ResultDesc":"weird"}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, updated.Status)
	assert.Equal(t, "Order 1 | 1.5: weird", updated.Description)
}

func TestApplyCallback_HugeResultCode(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	createOne(t, svc)

	updated, err := svc.ApplyCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":1e19,"ResultDesc":"big"}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, updated.Status)
	assert.Equal(t, "Order 1 | 10000000000000000000: big", updated.Description)
}

func TestApplyCallback_ConcurrentDeliveriesAllApply(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})
	created := createOne(t, svc)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyCallback([]byte(insufficientFundsCallback))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := svc.GetIntent(created.ID)
	require.NoError(t, err)
	assert.Equal(t, n, strings.Count(stored.Description, " | 1: Insufficient funds"))
}
