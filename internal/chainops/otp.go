package chainops

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashOTP returns the keccak256 commitment of the clear OTP, 0x-prefixed.
// The digest is taken over the OTP's UTF-8 bytes so it matches what the
// escrow contract recomputes from the revealed string.
func HashOTP(otp string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(otp)))
}
