// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	c, err := NewTokenCodec("s3cret")
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	tok, err := c.Issue("a@x.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	got, err := c.Decode(tok)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != "a@x.com" {
		t.Errorf("Decode() = %q, want %q", got, "a@x.com")
	}

	again, _ := c.Issue("a@x.com")
	if again == tok {
		t.Error("tokens for the same email should differ (random nonce)")
	}
}

func TestTokenCodec_Rejects(t *testing.T) {
	c, _ := NewTokenCodec("s3cret")
	other, _ := NewTokenCodec("different")
	tok, _ := c.Issue("a@x.com")

	raw, _ := base64.RawURLEncoding.DecodeString(tok)
	raw[len(raw)/2] ^= 0xff
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	tests := map[string]string{
		"garbage":      "not-a-token!",
		"empty":        "",
		"short":        "AAAA",
		"tampered":     tampered,
		"other secret": "",
	}
	tests["other secret"], _ = other.Issue("a@x.com")

	for name, tok := range tests {
		if _, err := c.Decode(tok); err != ErrBadToken {
			t.Errorf("%s: Decode() error = %v, want ErrBadToken", name, err)
		}
	}
}

func TestIssueToken_DefaultSecret(t *testing.T) {
	tok, err := IssueToken("", " b@x.com ")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	c, _ := NewTokenCodec(DefaultSecret)
	if got, err := c.Decode(tok); err != nil || got != "b@x.com" {
		t.Errorf("Decode() = (%q, %v), want (b@x.com, nil)", got, err)
	}
}

func TestPasscodes(t *testing.T) {
	p, err := NewPasscodes("s3cret")
	if err != nil {
		t.Fatalf("NewPasscodes() error = %v", err)
	}
	now := time.Unix(1_700_000_000, 0)

	code, err := p.Generate("a@x.com", now)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("Generate() = %q, want six digits", code)
	}
	if !p.Validate("a@x.com", code, now) {
		t.Error("Validate() rejected a fresh code")
	}
	if !p.Validate("A@X.com", code, now.Add(PasscodePeriod)) {
		t.Error("Validate() should accept one period of skew and ignore case")
	}
	if p.Validate("a@x.com", code, now.Add(3*PasscodePeriod)) {
		t.Error("Validate() accepted an expired code")
	}
	if p.Validate("a@x.com", "12345", now) {
		t.Error("Validate() accepted a short code")
	}
}
