package core

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet matches the nanoid default alphabet: 64 URL-safe characters,
// so each character carries 6 bits of entropy.
const codeAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

const (
	// TransactionCodeLength opaque unguessable transaction code size.
	TransactionCodeLength = 32
	// OTPLength escrow one-time password size; 64 chars * 6 bits makes the
	// collision probability negligible.
	OTPLength = 64
)

// NewCode returns a cryptographically random string of n characters drawn
// from the nanoid alphabet.
func NewCode(n int) string {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; nothing sensible to return.
			panic(err)
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf)
}

// NewTransactionCode returns a fresh opaque transaction code.
func NewTransactionCode() string { return NewCode(TransactionCodeLength) }

// NewOTP returns a fresh escrow one-time password.
func NewOTP() string { return NewCode(OTPLength) }
