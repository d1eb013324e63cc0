package domain

// Secondary index kinds for payment intents.
const (
	KeyKindCheckoutRequestID = "checkout_request_id"
	KeyKindIdempotencyKey    = "idempotency_key"
)

// Store drivers selectable from config.
const (
	StoreDriverMemory = "memory"
	StoreDriverBolt   = "bolt"
	StoreDriverMySQL  = "mysql"
)

// Callback metadata item names read on a successful STK callback.
const (
	ItemMpesaReceiptNumber = "MpesaReceiptNumber"
	ItemTransactionDate    = "TransactionDate"
	ItemAmount             = "Amount"
	ItemPhoneNumber        = "PhoneNumber"
)

const (
	TransactionTypePayBill  = "CustomerPayBillOnline"
	TransactionTypeBuyGoods = "CustomerBuyGoodsOnline"
)

// MpesaWebhookPath is appended to the public base URL when a create request
// carries no callback URL of its own.
const MpesaWebhookPath = "/api/v1/webhooks/mpesa"

// Push-payment providers selectable from config.
const (
	ProviderStub   = "stub"
	ProviderDaraja = "daraja"
)
