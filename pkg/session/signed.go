// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignedCodec implements Codec with HMAC-signed JWTs. The payload carries
// the same identity assertion as the legacy format (login + issue time)
// but is tamper-evident: a forged or altered token fails signature
// verification before any claim is trusted.
type SignedCodec struct {
	secret []byte
	issuer string
	maxAge time.Duration
	now    func() time.Time
}

// SignedOption configures a SignedCodec.
type SignedOption func(*SignedCodec)

// WithSignedClock overrides the codec's time source. Used in tests.
func WithSignedClock(now func() time.Time) SignedOption {
	return func(c *SignedCodec) {
		c.now = now
	}
}

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) SignedOption {
	return func(c *SignedCodec) {
		c.issuer = issuer
	}
}

// NewSignedCodec creates a codec signing tokens with HMAC-SHA256.
// The secret must be non-empty.
func NewSignedCodec(secret []byte, opts ...SignedOption) (*SignedCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}
	c := &SignedCodec{
		secret: secret,
		issuer: "findskills",
		maxAge: MaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue mints a signed token for the login.
func (c *SignedCodec) Issue(login string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   login,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies the signature and expiry, then returns the claims.
// Signature failures and structural problems surface as ErrMalformedToken;
// an expired token surfaces as ErrExpired.
func (c *SignedCodec) Decode(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformedToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrMalformedToken
	}

	return &Claims{
		Login:    claims.Subject,
		IssuedAt: claims.IssuedAt.Time,
	}, nil
}
