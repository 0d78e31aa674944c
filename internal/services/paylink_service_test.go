package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EZGGdotxyz/ezgg-service/internal/chainops"
	"github.com/EZGGdotxyz/ezgg-service/internal/core"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

func newPayLinkTransaction(t *testing.T, f *ledgerFixture) *models.TransactionHistory {
	t.Helper()
	in := sendInput(0)
	in.TransactionType = models.TypePayLink
	in.CounterpartyMemberID = nil
	trans, err := f.svc.Create(context.Background(), 1, in)
	require.NoError(t, err)
	return trans
}

func TestCreatePayLinkIdempotent(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)

	first, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)
	assert.NotEmpty(t, first.OTPHash)
	assert.Len(t, first.OTPHash, 66) // 0x + 32-byte digest

	second, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)
	// repeated creation returns the same escrow and commitment
	assert.Equal(t, first.Link.ID, second.Link.ID)
	assert.Equal(t, first.OTPHash, second.OTPHash)
	assert.Len(t, f.linkRepo.links, 1)
}

func TestCreatePayLinkOwnerOnly(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)

	_, err := f.links.Create(context.Background(), 2, trans.TransactionCode)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindParameter))
}

func TestCreatePayLinkWrongType(t *testing.T) {
	f := newLedgerFixture(t)
	trans, err := f.svc.Create(context.Background(), 1, sendInput(2))
	require.NoError(t, err)

	_, err = f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindParameter))
}

func TestDepositOperationsCarryCommitment(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	view, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)

	ops, err := f.links.DepositOperations(context.Background(), 1, trans.TransactionCode, "1475000")
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, "approve", ops[0].Method)
	assert.Equal(t, "payFee", ops[1].Method)
	assert.Equal(t, "deposit", ops[2].Method)
	// the deposit call data carries the commitment, never the clear OTP
	assert.Contains(t, string(ops[2].CallData), view.OTPHash[2:66])
}

func TestRedeemBeforeFunding(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	_, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)

	_, err = f.links.RedeemOperations(context.Background(), 2, trans.TransactionCode)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConflict))
}

func fundPayLink(t *testing.T, f *ledgerFixture, trans *models.TransactionHistory) {
	t.Helper()
	_, err := f.svc.ReportHash(context.Background(), 1, trans.TransactionCode, "0xdeposit")
	require.NoError(t, err)
}

func TestRedeemRevealsOTPOnlyInWithdraw(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	view, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)
	fundPayLink(t, f, trans)

	ops, err := f.links.RedeemOperations(context.Background(), 2, trans.TransactionCode)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "withdraw", ops[0].Method)

	// the stored OTP hashes back to the advertised commitment
	stored := f.linkRepo.links[0].OTP
	assert.Equal(t, view.OTPHash, chainops.HashOTP(stored))
	assert.Contains(t, string(ops[0].CallData), stored)
}

func TestReportRedeemHashBindsReceiverAndAccepts(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	_, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)
	fundPayLink(t, f, trans)

	view, err := f.links.ReportRedeemHash(context.Background(), 2, trans.TransactionCode, "0xredeem")
	require.NoError(t, err)
	assert.Equal(t, "0xredeem", view.Link.TransactionHash)
	assert.Equal(t, models.StatusAccepted, view.Transaction.TransactionStatus)
	require.NotNil(t, view.Transaction.ReceiverMemberID)
	assert.Equal(t, int64(2), *view.Transaction.ReceiverMemberID)
	require.NotNil(t, view.Transaction.ReceiverDid)
	assert.Equal(t, "did:privy:bob", *view.Transaction.ReceiverDid)
	require.NotNil(t, view.Transaction.ReceiverWalletAddress)
	assert.Equal(t, "0x5555555555555555555555555555555555555555", *view.Transaction.ReceiverWalletAddress)
	// the deposit hash on the transaction is untouched
	assert.Equal(t, "0xdeposit", view.Transaction.TransactionHash)

	// owner got the redemption notification
	var found bool
	for _, n := range f.memberRepo.notifications {
		if n.Action != nil && *n.Action == NotifyActionPayLinkAccepted && n.ToMemberID == 1 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReportRedeemHashWriteOnce(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	_, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)
	fundPayLink(t, f, trans)

	_, err = f.links.ReportRedeemHash(context.Background(), 2, trans.TransactionCode, "0xredeem")
	require.NoError(t, err)

	// same hash: no-op
	again, err := f.links.ReportRedeemHash(context.Background(), 2, trans.TransactionCode, "0xredeem")
	require.NoError(t, err)
	assert.Equal(t, "0xredeem", again.Link.TransactionHash)

	// different hash: conflict
	_, err = f.links.ReportRedeemHash(context.Background(), 3, trans.TransactionCode, "0xother")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConflict))
}

func TestRedeemAfterRedemption(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	_, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)
	fundPayLink(t, f, trans)
	_, err = f.links.ReportRedeemHash(context.Background(), 2, trans.TransactionCode, "0xredeem")
	require.NoError(t, err)

	_, err = f.links.RedeemOperations(context.Background(), 3, trans.TransactionCode)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConflict))
}

func TestCancelPayLink(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	_, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)

	// only the owner cancels
	_, err = f.links.Cancel(context.Background(), 2, trans.TransactionCode)
	assert.True(t, core.IsKind(err, core.KindParameter))

	cancelled, err := f.links.Cancel(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, cancelled.TransactionStatus)

	// cancelled escrows cannot be redeemed or re-cancelled
	_, err = f.links.RedeemOperations(context.Background(), 2, trans.TransactionCode)
	require.Error(t, err)
	_, err = f.links.Cancel(context.Background(), 1, trans.TransactionCode)
	assert.True(t, core.IsKind(err, core.KindConflict))
}

func TestCancelRedeemedPayLink(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	_, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)
	fundPayLink(t, f, trans)
	_, err = f.links.ReportRedeemHash(context.Background(), 2, trans.TransactionCode, "0xredeem")
	require.NoError(t, err)

	_, err = f.links.Cancel(context.Background(), 1, trans.TransactionCode)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConflict))
}

func TestFindPayLinkNeverExposesOTP(t *testing.T) {
	f := newLedgerFixture(t)
	trans := newPayLinkTransaction(t, f)
	_, err := f.links.Create(context.Background(), 1, trans.TransactionCode)
	require.NoError(t, err)

	view, err := f.links.Find(context.Background(), trans.TransactionCode)
	require.NoError(t, err)
	assert.NotEmpty(t, view.OTPHash)
	assert.Equal(t, chainops.HashOTP(view.Link.OTP), view.OTPHash)
}
