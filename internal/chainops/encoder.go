// Package chainops builds the ordered chain-call operations a client submits
// in one smart-account batch, and the keccak256 commitment used by the
// escrow contract. It is the single source of truth for call ordering and
// argument shapes; it never decides amounts.
package chainops

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Operation one entry of a smart-account executeBatch call.
type Operation struct {
	Target   common.Address `json:"target"`
	Value    *big.Int       `json:"value"`
	CallData []byte         `json:"call_data"`
	// Method names the encoded function, for logging and ordering checks.
	Method string `json:"method"`
}

const erc20ABI = `[
	{"name":"approve","type":"function","inputs":[
		{"name":"spender","type":"address"},
		{"name":"amount","type":"uint256"}],
	"outputs":[{"name":"","type":"bool"}]}
]`

const tokenTransferABI = `[
	{"name":"payFee","type":"function","inputs":[
		{"name":"txCode","type":"string"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"transfer","type":"function","inputs":[
		{"name":"txCode","type":"string"},
		{"name":"receiver","type":"address"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const tokenLinkABI = `[
	{"name":"payFee","type":"function","inputs":[
		{"name":"txCode","type":"string"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"name":"deposit","type":"function","inputs":[
		{"name":"txCode","type":"string"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"otpHash","type":"string"}],"outputs":[]},
	{"name":"withdraw","type":"function","inputs":[
		{"name":"txCode","type":"string"},
		{"name":"receiver","type":"address"},
		{"name":"otp","type":"string"}],"outputs":[]}
]`

const simpleAccountABI = `[
	{"name":"executeBatch","type":"function","inputs":[
		{"name":"dest","type":"address[]"},
		{"name":"value","type":"uint256[]"},
		{"name":"func","type":"bytes[]"}],"outputs":[]}
]`

// Encoder builds call data for the business contracts. Safe for concurrent
// use; all ABIs are parsed once.
type Encoder struct {
	erc20    abi.ABI
	transfer abi.ABI
	link     abi.ABI
	account  abi.ABI
}

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// NewEncoder creates an Encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		erc20:    mustABI(erc20ABI),
		transfer: mustABI(tokenTransferABI),
		link:     mustABI(tokenLinkABI),
		account:  mustABI(simpleAccountABI),
	}
}

func (e *Encoder) pack(target common.Address, parsed abi.ABI, method string, args ...interface{}) (Operation, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return Operation{}, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	return Operation{Target: target, Value: big.NewInt(0), CallData: data, Method: method}, nil
}

// Approve encodes erc20 approve(spender, amount) on the token contract.
func (e *Encoder) Approve(token, spender common.Address, amount *big.Int) (Operation, error) {
	return e.pack(token, e.erc20, "approve", spender, amount)
}

// PayFee encodes payFee(txCode, token, fee) on a business contract.
func (e *Encoder) PayFee(contract common.Address, txCode string, token common.Address, fee *big.Int) (Operation, error) {
	return e.pack(contract, e.transfer, "payFee", txCode, token, fee)
}

// Transfer encodes transfer(txCode, receiver, token, amount) on the
// transfer contract.
func (e *Encoder) Transfer(contract common.Address, txCode string, receiver, token common.Address, amount *big.Int) (Operation, error) {
	return e.pack(contract, e.transfer, "transfer", txCode, receiver, token, amount)
}

// Deposit encodes deposit(txCode, token, amount, otpHash) on the link
// contract. otpHash is the keccak256 commitment, never the clear OTP.
func (e *Encoder) Deposit(contract common.Address, txCode string, token common.Address, amount *big.Int, otpHash string) (Operation, error) {
	return e.pack(contract, e.link, "deposit", txCode, token, amount, otpHash)
}

// Withdraw encodes withdraw(txCode, receiver, otp) on the link contract.
// The clear OTP is revealed on-chain here; this is the commit-reveal open.
func (e *Encoder) Withdraw(contract common.Address, txCode string, receiver common.Address, otp string) (Operation, error) {
	return e.pack(contract, e.link, "withdraw", txCode, receiver, otp)
}

// ExecuteBatch encodes simple-account executeBatch over the operations, in
// order. The encoder never reorders.
func (e *Encoder) ExecuteBatch(ops []Operation) ([]byte, error) {
	dest := make([]common.Address, len(ops))
	value := make([]*big.Int, len(ops))
	callData := make([][]byte, len(ops))
	for i, op := range ops {
		dest[i] = op.Target
		value[i] = op.Value
		callData[i] = op.CallData
	}
	data, err := e.account.Pack("executeBatch", dest, value, callData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode executeBatch: %w", err)
	}
	return data, nil
}

// BatchParams the inputs common to every batch builder. Amount and Fee are
// decided by the caller (the fee engine); the encoder only orders calls.
type BatchParams struct {
	TxCode      string
	BizContract common.Address
	Token       common.Address
	Amount      *big.Int
	Fee         *big.Int
}

// TransferBatch builds the SEND/REQUEST settlement batch:
// approve(principal+fee) -> payFee(fee) -> transfer(principal). The approval
// always precedes its consumers, and the fee always precedes the principal.
func (e *Encoder) TransferBatch(p BatchParams, receiver common.Address) ([]Operation, error) {
	approve, err := e.Approve(p.Token, p.BizContract, new(big.Int).Add(p.Amount, p.Fee))
	if err != nil {
		return nil, err
	}
	payFee, err := e.PayFee(p.BizContract, p.TxCode, p.Token, p.Fee)
	if err != nil {
		return nil, err
	}
	transfer, err := e.Transfer(p.BizContract, p.TxCode, receiver, p.Token, p.Amount)
	if err != nil {
		return nil, err
	}
	return []Operation{approve, payFee, transfer}, nil
}

// LinkDepositBatch builds the escrow creation leg:
// approve(principal+fee) -> payFee(fee) -> deposit(principal, otpHash).
func (e *Encoder) LinkDepositBatch(p BatchParams, otpHash string) ([]Operation, error) {
	approve, err := e.Approve(p.Token, p.BizContract, new(big.Int).Add(p.Amount, p.Fee))
	if err != nil {
		return nil, err
	}
	payFee, err := e.PayFee(p.BizContract, p.TxCode, p.Token, p.Fee)
	if err != nil {
		return nil, err
	}
	deposit, err := e.Deposit(p.BizContract, p.TxCode, p.Token, p.Amount, otpHash)
	if err != nil {
		return nil, err
	}
	return []Operation{approve, payFee, deposit}, nil
}

// LinkWithdrawBatch builds the escrow redemption leg: a lone withdraw(otp).
// Redemption only moves previously escrowed funds, so no approval step.
func (e *Encoder) LinkWithdrawBatch(contract common.Address, txCode string, receiver common.Address, otp string) ([]Operation, error) {
	withdraw, err := e.Withdraw(contract, txCode, receiver, otp)
	if err != nil {
		return nil, err
	}
	return []Operation{withdraw}, nil
}
