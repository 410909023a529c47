package gateway

// Tranzak webhook wire format. The payload is externally authored and
// untrusted; the webhook handler validates and classifies it before any
// reconciliation work happens.

// Webhook event types.
const (
	EventRequestCompleted = "REQUEST.COMPLETED"
	EventRefundCompleted  = "REFUND.COMPLETED"
)

// Gateway-reported payment statuses inside a REQUEST.COMPLETED resource.
const (
	PaymentStatusSuccessful       = "SUCCESSFUL"
	PaymentStatusCancelled        = "CANCELLED"
	PaymentStatusCancelledByPayer = "CANCELLED_BY_PAYER"
	PaymentStatusFailed           = "FAILED"
)

// WebhookResource describes one outcome for one gateway transaction.
type WebhookResource struct {
	Status            string  `json:"status"`
	TransactionID     string  `json:"transactionId"`
	TransactionTime   int64   `json:"transactionTime"`
	Amount            float64 `json:"amount"`
	CurrencyCode      string  `json:"currencyCode"`
	MchTransactionRef string  `json:"mchTransactionRef"`
	ErrorCode         int64   `json:"errorCode,omitempty"`
	ErrorMessage      string  `json:"errorMessage,omitempty"`
}

// WebhookPayload is the body of a gateway webhook callback.
type WebhookPayload struct {
	EventType string          `json:"eventType"`
	Resource  WebhookResource `json:"resource"`
	WebhookID string          `json:"webhookId"`
}
