package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/core"
)

const erc20MetadataABI = `[
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// TokenMetadata on-chain ERC-20 descriptor fields.
type TokenMetadata struct {
	Name     string
	Symbol   string
	Decimals int
}

// ChainClient reads chain state over JSON-RPC: gas price, ERC-20 metadata
// and balances. Connections are dialed lazily per RPC URL and reused.
type ChainClient struct {
	erc20 abi.ABI

	mu    sync.Mutex
	conns map[string]*ethclient.Client
}

// NewChainClient creates a ChainClient.
func NewChainClient() *ChainClient {
	parsed, err := abi.JSON(strings.NewReader(erc20MetadataABI))
	if err != nil {
		panic(fmt.Sprintf("invalid erc20 ABI: %v", err))
	}
	return &ChainClient{
		erc20: parsed,
		conns: make(map[string]*ethclient.Client),
	}
}

func (c *ChainClient) conn(rpcURL string) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.conns[rpcURL]; ok {
		return client, nil
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, core.UnavailableError("failed to dial chain rpc: %v", err)
	}
	c.conns[rpcURL] = client
	return client, nil
}

// SuggestGasPrice returns the node's suggested gas price in wei.
func (c *ChainClient) SuggestGasPrice(ctx context.Context, rpcURL string) (*big.Int, error) {
	client, err := c.conn(rpcURL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		logrus.WithError(err).WithField("rpc", rpcURL).Warn("gas price query failed")
		return nil, core.UnavailableError("failed to fetch gas price: %v", err)
	}
	return price, nil
}

func (c *ChainClient) call(ctx context.Context, client *ethclient.Client, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, core.UnavailableError("token %s call failed: %v", method, err)
	}
	values, err := c.erc20.Unpack(method, out)
	if err != nil {
		return nil, core.UnavailableError("failed to decode %s result: %v", method, err)
	}
	return values, nil
}

// FetchTokenMetadata reads name, symbol and decimals from the token contract.
func (c *ChainClient) FetchTokenMetadata(ctx context.Context, rpcURL string, token common.Address) (*TokenMetadata, error) {
	client, err := c.conn(rpcURL)
	if err != nil {
		return nil, err
	}

	nameOut, err := c.call(ctx, client, token, "name")
	if err != nil {
		return nil, err
	}
	symbolOut, err := c.call(ctx, client, token, "symbol")
	if err != nil {
		return nil, err
	}
	decimalsOut, err := c.call(ctx, client, token, "decimals")
	if err != nil {
		return nil, err
	}

	meta := &TokenMetadata{}
	var ok bool
	if meta.Name, ok = nameOut[0].(string); !ok {
		return nil, core.UnavailableError("unexpected name result type")
	}
	if meta.Symbol, ok = symbolOut[0].(string); !ok {
		return nil, core.UnavailableError("unexpected symbol result type")
	}
	decimals, ok := decimalsOut[0].(uint8)
	if !ok {
		return nil, core.UnavailableError("unexpected decimals result type")
	}
	meta.Decimals = int(decimals)
	return meta, nil
}

// BalanceOf returns the owner's token balance in smallest units.
func (c *ChainClient) BalanceOf(ctx context.Context, rpcURL string, token, owner common.Address) (*big.Int, error) {
	client, err := c.conn(rpcURL)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, client, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, core.UnavailableError("unexpected balanceOf result type")
	}
	return balance, nil
}

// Close closes all dialed connections.
func (c *ChainClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, client := range c.conns {
		client.Close()
		delete(c.conns, url)
	}
}
