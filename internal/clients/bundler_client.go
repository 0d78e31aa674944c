package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/metrics"
)

// UserOperation the ERC-4337 operation shape the bundler estimates. Gas
// fields are left zeroed; the bundler fills them in its response.
type UserOperation struct {
	Sender               string `json:"sender"`
	Nonce                string `json:"nonce"`
	InitCode             string `json:"initCode"`
	CallData             string `json:"callData"`
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	PaymasterAndData     string `json:"paymasterAndData"`
	Signature            string `json:"signature"`
}

// GasEstimate the three gas figures returned by eth_estimateUserOperationGas.
type GasEstimate struct {
	PreVerificationGas   *big.Int
	VerificationGasLimit *big.Int
	CallGasLimit         *big.Int
}

type bundlerRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type bundlerResponse struct {
	Result *struct {
		PreVerificationGas   string `json:"preVerificationGas"`
		VerificationGasLimit string `json:"verificationGasLimit"`
		CallGasLimit         string `json:"callGasLimit"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// BundlerClient talks to an ERC-4337 bundler RPC.
type BundlerClient struct {
	httpClient *http.Client
	entryPoint string
}

// NewBundlerClient creates a bundler client against the given entry point.
func NewBundlerClient(entryPoint string, timeout time.Duration) *BundlerClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BundlerClient{
		httpClient: &http.Client{Timeout: timeout},
		entryPoint: entryPoint,
	}
}

// EstimateUserOperationGas asks the chain's bundler to price the operation.
// chainName only labels metrics and logs.
func (c *BundlerClient) EstimateUserOperationGas(ctx context.Context, bundlerURL, chainName string, op *UserOperation) (*GasEstimate, error) {
	started := time.Now()
	defer func() {
		metrics.BundlerEstimateDuration.WithLabelValues(chainName).Observe(time.Since(started).Seconds())
	}()

	payload, err := json.Marshal(bundlerRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_estimateUserOperationGas",
		Params:  []interface{}{op, c.entryPoint},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundler request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, bundlerURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create bundler request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ChainRPCErrors.WithLabelValues(chainName, "eth_estimateUserOperationGas").Inc()
		return nil, core.UnavailableError("bundler request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ChainRPCErrors.WithLabelValues(chainName, "eth_estimateUserOperationGas").Inc()
		return nil, core.UnavailableError("bundler returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.UnavailableError("failed to read bundler response: %v", err)
	}

	var rpcResp bundlerResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, core.UnavailableError("failed to decode bundler response: %v", err)
	}
	if rpcResp.Error != nil {
		logrus.WithFields(logrus.Fields{
			"chain": chainName,
			"code":  rpcResp.Error.Code,
		}).Warn("bundler rejected gas estimation")
		return nil, core.UnavailableError("bundler error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return nil, core.UnavailableError("bundler response missing result")
	}

	estimate := &GasEstimate{}
	if estimate.PreVerificationGas, err = parseQuantity(rpcResp.Result.PreVerificationGas); err != nil {
		return nil, core.UnavailableError("bad preVerificationGas: %v", err)
	}
	if estimate.VerificationGasLimit, err = parseQuantity(rpcResp.Result.VerificationGasLimit); err != nil {
		return nil, core.UnavailableError("bad verificationGasLimit: %v", err)
	}
	if estimate.CallGasLimit, err = parseQuantity(rpcResp.Result.CallGasLimit); err != nil {
		return nil, core.UnavailableError("bad callGasLimit: %v", err)
	}
	return estimate, nil
}

// parseQuantity accepts both 0x-hex and plain decimal quantities; bundlers
// disagree on the encoding.
func parseQuantity(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return hexutil.DecodeBig(s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}
