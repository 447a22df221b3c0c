// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrBadToken is returned for tokens that fail to decode or authenticate.
var ErrBadToken = errors.New("invalid or expired token")

// TokenCodec seals identifiers into opaque URL-safe tokens.
type TokenCodec struct {
	aead cipher.AEAD
}

// deriveKey expands secret into a key for purpose.
func deriveKey(secret, purpose string, size int) ([]byte, error) {
	key := make([]byte, size)
	r := hkdf.New(sha256.New, []byte(secret), []byte("proctor-mock"), []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}

// NewTokenCodec creates a codec keyed from secret.
func NewTokenCodec(secret string) (*TokenCodec, error) {
	key, err := deriveKey(secret, "email-token", chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	return &TokenCodec{aead: aead}, nil
}

// Issue seals email into a token.
func (c *TokenCodec) Issue(email string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(email)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("token nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(email), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens a token issued by Issue with the same secret.
func (c *TokenCodec) Decode(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil || len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrBadToken
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil || len(plain) == 0 {
		return "", ErrBadToken
	}
	return string(plain), nil
}

// IssueToken seals email with secret, or DefaultSecret when secret is empty.
// A mock server started with the same secret accepts the token.
func IssueToken(secret, email string) (string, error) {
	if secret == "" {
		secret = DefaultSecret
	}
	c, err := NewTokenCodec(secret)
	if err != nil {
		return "", err
	}
	return c.Issue(strings.TrimSpace(email))
}
