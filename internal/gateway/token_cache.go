package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	"go.uber.org/zap"
)

// requestTimeout bounds every outbound call to the Tranzak API.
const requestTimeout = 10 * time.Second

type tokenRequest struct {
	AppID  string `json:"appId"`
	AppKey string `json:"appKey"`
}

type tokenData struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// TokenCache obtains and caches the bearer credential for the Tranzak API.
// A single cache instance is shared by every outbound-call component; a
// stale-read-then-refresh race resolves as last writer wins.
type TokenCache struct {
	baseURL    string
	appID      string
	appKey     string
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenCache creates a TokenCache for the given Tranzak credentials.
func NewTokenCache(baseURL, appID, appKey string, logger *zap.Logger) *TokenCache {
	return &TokenCache{
		baseURL:    baseURL,
		appID:      appID,
		appKey:     appKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Token returns the cached bearer token, refreshing it from the token
// endpoint when missing or expired. Failed refreshes are never cached.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.token != "" && now.Before(c.expiry) {
		return c.token, nil
	}

	c.logger.Debug("refreshing gateway token")

	body, err := json.Marshal(tokenRequest{AppID: c.appID, AppKey: c.appKey})
	if err != nil {
		return "", domain.NewGatewayError(fmt.Sprintf("encode token request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", domain.NewGatewayError(fmt.Sprintf("build token request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewGatewayError(fmt.Sprintf("token issuance call failed: %v", err))
	}
	defer resp.Body.Close()

	var envelope apiResponse[tokenData]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", domain.NewGatewayError(fmt.Sprintf("decode token response: %v", err))
	}

	if !envelope.Success || envelope.Data.Token == "" {
		c.logger.Warn("gateway token issuance rejected",
			zap.String("error_msg", envelope.ErrorMsg),
		)
		return "", domain.NewGatewayError("token issuance rejected by gateway")
	}

	c.token = envelope.Data.Token
	c.expiry = now.Add(time.Duration(envelope.Data.ExpiresIn) * time.Second)

	return c.token, nil
}
