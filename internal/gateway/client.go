package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/docta-care/service-payment/internal/domain"
	"go.uber.org/zap"
)

// ReasonCodeMutualAgreement is the Tranzak refund reason for a refund agreed
// between patient and doctor.
const ReasonCodeMutualAgreement = "0700"

// apiResponse is the success/failure envelope every Tranzak endpoint returns.
type apiResponse[T any] struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg,omitempty"`
	Data     T      `json:"data"`
}

// CreatePaymentRequestParams are the inputs to a hosted payment request.
type CreatePaymentRequestParams struct {
	Amount            float64 `json:"amount"`
	CurrencyCode      string  `json:"currencyCode"`
	Description       string  `json:"description"`
	MchTransactionRef string  `json:"mchTransactionRef"`
	ReturnURL         string  `json:"returnUrl"`
	CancelURL         string  `json:"cancelUrl"`
}

type paymentRequestData struct {
	Links struct {
		PaymentAuthURL string `json:"paymentAuthUrl"`
	} `json:"links"`
}

// CreateRefundParams are the inputs to a refund request.
type CreateRefundParams struct {
	ReasonCode            string `json:"reasonCode"`
	RefundedTransactionID string `json:"refundedTransactionId"`
	MerchantRefundNumber  string `json:"merchantRefundNumber"`
	Note                  string `json:"note"`
}

type refundData struct {
	Status string `json:"status"`
}

// Client issues outbound calls to the Tranzak payment API. It never mutates
// store state; callers persist failure markers themselves.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenCache
	logger     *zap.Logger
}

// NewClient creates a Tranzak API client backed by the given token cache.
func NewClient(baseURL string, tokens *TokenCache, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// CreatePaymentRequest creates a hosted payment request and returns the URL
// the payer must be redirected to.
func (c *Client) CreatePaymentRequest(ctx context.Context, params CreatePaymentRequestParams) (string, error) {
	var data paymentRequestData
	if err := c.post(ctx, "/xp021/v1/request/create", params, &data); err != nil {
		return "", err
	}
	if data.Links.PaymentAuthURL == "" {
		return "", domain.NewGatewayError("payment request response missing auth url")
	}
	return data.Links.PaymentAuthURL, nil
}

// CreateRefund asks the gateway to refund a previously captured transaction
// and returns the gateway-reported refund status.
func (c *Client) CreateRefund(ctx context.Context, params CreateRefundParams) (string, error) {
	var data refundData
	if err := c.post(ctx, "/xp021/v1/refund/create", params, &data); err != nil {
		return "", err
	}
	return data.Status, nil
}

// post sends an authenticated JSON POST and decodes the response envelope
// into out. A non-success envelope surfaces as ErrGateway.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewGatewayError(fmt.Sprintf("encode request for %s: %v", path, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.NewGatewayError(fmt.Sprintf("build request for %s: %v", path, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewGatewayError(fmt.Sprintf("call to %s failed: %v", path, err))
	}
	defer resp.Body.Close()

	envelope := apiResponse[json.RawMessage]{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.NewGatewayError(fmt.Sprintf("decode response from %s: %v", path, err))
	}

	if !envelope.Success {
		c.logger.Warn("gateway call rejected",
			zap.String("path", path),
			zap.String("error_msg", envelope.ErrorMsg),
		)
		return domain.NewGatewayError(fmt.Sprintf("gateway rejected call to %s", path))
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return domain.NewGatewayError(fmt.Sprintf("decode payload from %s: %v", path, err))
		}
	}
	return nil
}
