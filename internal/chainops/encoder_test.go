package chainops

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testToken    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testContract = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testReceiver = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func selector(t *testing.T, op Operation) string {
	t.Helper()
	require.GreaterOrEqual(t, len(op.CallData), 4)
	return hex.EncodeToString(op.CallData[:4])
}

func TestApproveSelector(t *testing.T) {
	e := NewEncoder()
	op, err := e.Approve(testToken, testContract, big.NewInt(100))
	require.NoError(t, err)
	// canonical erc20 approve(address,uint256)
	assert.Equal(t, "095ea7b3", selector(t, op))
	assert.Equal(t, testToken, op.Target)
	assert.Equal(t, int64(0), op.Value.Int64())
}

func TestTransferBatchOrdering(t *testing.T) {
	e := NewEncoder()
	ops, err := e.TransferBatch(BatchParams{
		TxCode:      "code-1",
		BizContract: testContract,
		Token:       testToken,
		Amount:      big.NewInt(1000),
		Fee:         big.NewInt(25),
	}, testReceiver)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, []string{"approve", "payFee", "transfer"},
		[]string{ops[0].Method, ops[1].Method, ops[2].Method})
	// approval on the token, the rest on the business contract
	assert.Equal(t, testToken, ops[0].Target)
	assert.Equal(t, testContract, ops[1].Target)
	assert.Equal(t, testContract, ops[2].Target)
}

func TestTransferBatchApprovesPrincipalPlusFee(t *testing.T) {
	e := NewEncoder()
	ops, err := e.TransferBatch(BatchParams{
		TxCode:      "code-2",
		BizContract: testContract,
		Token:       testToken,
		Amount:      big.NewInt(1000),
		Fee:         big.NewInt(25),
	}, testReceiver)
	require.NoError(t, err)

	// approve(spender, amount): amount is the last 32 bytes of the args
	amount := new(big.Int).SetBytes(ops[0].CallData[36:68])
	assert.Equal(t, int64(1025), amount.Int64())
}

func TestLinkDepositBatchOrdering(t *testing.T) {
	e := NewEncoder()
	ops, err := e.LinkDepositBatch(BatchParams{
		TxCode:      "code-3",
		BizContract: testContract,
		Token:       testToken,
		Amount:      big.NewInt(500),
		Fee:         big.NewInt(10),
	}, HashOTP("secret"))
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, []string{"approve", "payFee", "deposit"},
		[]string{ops[0].Method, ops[1].Method, ops[2].Method})
}

func TestLinkWithdrawBatchIsSingleCall(t *testing.T) {
	e := NewEncoder()
	ops, err := e.LinkWithdrawBatch(testContract, "code-4", testReceiver, "clear-otp")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "withdraw", ops[0].Method)
	assert.Equal(t, testContract, ops[0].Target)
}

func TestExecuteBatchEncodes(t *testing.T) {
	e := NewEncoder()
	ops, err := e.TransferBatch(BatchParams{
		TxCode:      "code-5",
		BizContract: testContract,
		Token:       testToken,
		Amount:      big.NewInt(1),
		Fee:         big.NewInt(1),
	}, testReceiver)
	require.NoError(t, err)

	data, err := e.ExecuteBatch(ops)
	require.NoError(t, err)
	// executeBatch(address[],uint256[],bytes[])
	assert.Equal(t, "47e1da2a", hex.EncodeToString(data[:4]))
}

func TestHashOTPVectors(t *testing.T) {
	// keccak256 over UTF-8 bytes, 0x-prefixed hex
	assert.Equal(t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		HashOTP(""))
	assert.Equal(t,
		"0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45",
		HashOTP("abc"))
}

func TestHashOTPDeterministic(t *testing.T) {
	assert.Equal(t, HashOTP("same-input"), HashOTP("same-input"))
	assert.NotEqual(t, HashOTP("a"), HashOTP("b"))
}
