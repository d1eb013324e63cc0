package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const darajaSuccess = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1.00},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

const darajaCancelled = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 1032,
      "ResultDesc": "Request cancelled by user."
    }
  }
}`

func TestParseSTKCallback_Success(t *testing.T) {
	cb, err := ParseSTKCallback([]byte(darajaSuccess))
	require.NoError(t, err)

	assert.Equal(t, ShapeSuccess, cb.Shape)
	assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", cb.MerchantRequestID)
	require.NotNil(t, cb.ResultCode)
	assert.Equal(t, 0.0, *cb.ResultCode)
	require.Len(t, cb.Items, 4)

	receipt := cb.Lookup("MpesaReceiptNumber")
	require.NotNil(t, receipt)
	assert.Equal(t, "NLJ7RT61SV", *receipt)

	// numeric values keep their literal digits
	date := cb.Lookup("TransactionDate")
	require.NotNil(t, date)
	assert.Equal(t, "20191219102115", *date)
	assert.Nil(t, cb.Lookup("Balance"))
}

func TestParseSTKCallback_Error(t *testing.T) {
	cb, err := ParseSTKCallback([]byte(darajaCancelled))
	require.NoError(t, err)

	assert.Equal(t, ShapeError, cb.Shape)
	require.NotNil(t, cb.ResultCode)
	assert.Equal(t, 1032.0, *cb.ResultCode)
	assert.Equal(t, "Request cancelled by user.", cb.ResultDesc)
	assert.Empty(t, cb.Items)
	assert.Nil(t, cb.Lookup("MpesaReceiptNumber"))
}

func TestParseSTKCallback_FlatItems(t *testing.T) {
	raw := `{"Body":{"stkCallback":{"CheckoutRequestID":"c1","ResultCode":0,
		"CallbackMetadata":{"Item":[{"MpesaReceiptNumber":"ABC123"},{"TransactionDate":"20230926124530"},{"MpesaReceiptNumber":"LATER"}]}}}}`
	cb, err := ParseSTKCallback([]byte(raw))
	require.NoError(t, err)

	receipt := cb.Lookup("MpesaReceiptNumber")
	require.NotNil(t, receipt)
	assert.Equal(t, "ABC123", *receipt, "first match wins")
	date := cb.Lookup("TransactionDate")
	require.NotNil(t, date)
	assert.Equal(t, "20230926124530", *date)
}

func TestParseSTKCallback_Tolerance(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		checkout string
		code     *float64
		shape    CallbackShape
	}{
		{"empty object", `{}`, "", nil, ShapeUnknown},
		{"body not an object", `{"Body":"x"}`, "", nil, ShapeUnknown},
		{"no result code", `{"Body":{"stkCallback":{"CheckoutRequestID":"c2"}}}`, "c2", nil, ShapeUnknown},
		{"string result code", `{"Body":{"stkCallback":{"CheckoutRequestID":"c3","ResultCode":"0"}}}`, "c3", nil, ShapeError},
		{"fractional result code", `{"Body":{"stkCallback":{"CheckoutRequestID":"c4","ResultCode":1.5}}}`, "c4", floatPtr(1.5), ShapeError},
		{"huge result code", `{"Body":{"stkCallback":{"CheckoutRequestID":"c7","ResultCode":1e19}}}`, "c7", floatPtr(1e19), ShapeError},
		{"overflowing result code", `{"Body":{"stkCallback":{"CheckoutRequestID":"c8","ResultCode":1e400}}}`, "c8", nil, ShapeError},
		{"numeric checkout id", `{"Body":{"stkCallback":{"CheckoutRequestID":12,"ResultCode":0}}}`, "", floatPtr(0), ShapeError},
		{"metadata without items", `{"Body":{"stkCallback":{"CheckoutRequestID":"c5","ResultCode":0,"CallbackMetadata":{}}}}`, "c5", floatPtr(0), ShapeSuccess},
		{"items with junk entries", `{"Body":{"stkCallback":{"CheckoutRequestID":"c6","ResultCode":0,"CallbackMetadata":{"Item":[1,"x",null]}}}}`, "c6", floatPtr(0), ShapeSuccess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cb, err := ParseSTKCallback([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.checkout, cb.CheckoutRequestID)
			assert.Equal(t, tc.code, cb.ResultCode)
			assert.Equal(t, tc.shape, cb.Shape)
			assert.Nil(t, cb.Lookup("MpesaReceiptNumber"))
		})
	}
}

func TestParseSTKCallback_InvalidJSON(t *testing.T) {
	_, err := ParseSTKCallback([]byte(`not json`))
	assert.Error(t, err)
}

func TestLookup_NonScalarValue(t *testing.T) {
	cb := &STKCallback{Items: []CallbackItem{
		{"Name": "MpesaReceiptNumber", "Value": map[string]any{"nested": true}},
		{"Name": "MpesaReceiptNumber", "Value": "SECOND"},
	}}
	assert.Nil(t, cb.Lookup("MpesaReceiptNumber"))
}

func floatPtr(f float64) *float64 { return &f }

func TestFormatResultCode(t *testing.T) {
	assert.Equal(t, "0", FormatResultCode(0))
	assert.Equal(t, "1032", FormatResultCode(1032))
	assert.Equal(t, "1", FormatResultCode(1.0))
	assert.Equal(t, "1.5", FormatResultCode(1.5))
	assert.Equal(t, "10000000000000000000", FormatResultCode(1e19))
}
