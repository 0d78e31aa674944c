package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/EZGGdotxyz/ezgg-service/internal/core"
)

// MemberWallet the smart-wallet identity the account service keeps per
// member and platform.
type MemberWallet struct {
	MemberID      int64  `json:"member_id"`
	Did           string `json:"did"`
	Platform      string `json:"platform"`
	WalletAddress string `json:"wallet_address"`
}

// MemberClient talks to the account service that owns member profiles and
// smart wallets. This service never writes member data.
type MemberClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewMemberClient creates a client for the account service.
func NewMemberClient(baseURL, apiKey string, timeout time.Duration) *MemberClient {
	return &MemberClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type memberWalletResponse struct {
	Code string        `json:"code"`
	Data *MemberWallet `json:"data"`
}

// GetWallet returns the member's wallet on the given platform, or nil when
// the account service has none recorded.
func (c *MemberClient) GetWallet(ctx context.Context, memberID int64, platform string) (*MemberWallet, error) {
	endpoint := fmt.Sprintf("%s/internal/members/%d/wallets/%s", c.baseURL, memberID, platform)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.UnavailableError("account service request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.UnavailableError("account service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.UnavailableError("failed to read wallet response: %v", err)
	}

	var wallet memberWalletResponse
	if err := json.Unmarshal(body, &wallet); err != nil {
		return nil, core.UnavailableError("failed to decode wallet response: %v", err)
	}
	return wallet.Data, nil
}
