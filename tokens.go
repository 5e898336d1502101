package accounts

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"
)

const (
	// VerificationCodeTTL is the validity window for email verification codes.
	VerificationCodeTTL = 24 * time.Hour
	// ResetTokenTTL is the validity window for password reset tokens.
	ResetTokenTTL = time.Hour

	verificationCodeMin  = 100000
	verificationCodeSpan = 900000

	resetTokenBytes = 20
)

// NewVerificationCode returns a 6 digit numeric code and its expiry,
// 24 hours from now.
//
// Codes are drawn from the 100000-999999 range; a collision between two
// pending signups is possible and accepted.
func NewVerificationCode() (string, time.Time) {
	return verificationCodeAt(time.Now())
}

// NewResetToken returns a 160 bit random hex token and its expiry, one
// hour from now.
func NewResetToken() (string, time.Time) {
	return resetTokenAt(time.Now())
}

func verificationCodeAt(now time.Time) (string, time.Time) {
	n, err := rand.Int(rand.Reader, big.NewInt(verificationCodeSpan))
	if err != nil {
		panic("accounts: entropy source unavailable: " + err.Error())
	}

	code := verificationCodeMin + n.Int64()

	return strconv.FormatInt(code, 10), now.Add(VerificationCodeTTL)
}

func resetTokenAt(now time.Time) (string, time.Time) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		panic("accounts: entropy source unavailable: " + err.Error())
	}

	return hex.EncodeToString(raw), now.Add(ResetTokenTTL)
}
