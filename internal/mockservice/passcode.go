// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// PasscodePeriod is how long an issued passcode stays valid, not counting
// the one period of skew accepted on either side.
const PasscodePeriod = 5 * time.Minute

var passcodeOpts = totp.ValidateOpts{
	Period:    uint(PasscodePeriod / time.Second),
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Passcodes issues and checks six-digit time-based passcodes. Each
// identifier gets its own TOTP secret derived from the server secret, so
// nothing has to be stored between send-otp and verify-otp.
type Passcodes struct {
	key []byte
}

// NewPasscodes creates a generator keyed from secret.
func NewPasscodes(secret string) (*Passcodes, error) {
	key, err := deriveKey(secret, "passcode", 32)
	if err != nil {
		return nil, err
	}
	return &Passcodes{key: key}, nil
}

func (p *Passcodes) secretFor(email string) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(strings.ToLower(email)))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(mac.Sum(nil))
}

// Generate returns the passcode for email at t.
func (p *Passcodes) Generate(email string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(p.secretFor(email), t, passcodeOpts)
}

// Validate reports whether code is current for email at t.
func (p *Passcodes) Validate(email, code string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, p.secretFor(email), t, passcodeOpts)
	return err == nil && ok
}
