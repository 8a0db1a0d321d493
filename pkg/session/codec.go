// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package session encodes and decodes the bearer tokens carried in the
// session cookie. Two codecs are provided: the legacy unsigned format
// ("sess:" + base64(login) + ":" + unixMillis) and an HMAC-signed JWT
// format carrying the same identity and issue time.
package session

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// MaxAge is how long a session token stays valid after issuance.
const MaxAge = 7 * 24 * time.Hour

const legacyPrefix = "sess"

// Sentinel errors for token decoding.
var (
	// ErrMalformedToken is returned when a token's structure or encoding is invalid.
	ErrMalformedToken = errors.New("malformed session token")

	// ErrExpired is returned when a token's issue time is older than MaxAge.
	ErrExpired = errors.New("session token expired")
)

// Claims is the identity a decoded session token asserts.
type Claims struct {
	// Login is the opaque login string the token was issued for.
	Login string

	// IssuedAt is when the token was minted.
	IssuedAt time.Time
}

// Codec issues and decodes session tokens.
type Codec interface {
	// Issue produces a token embedding the login and the current time.
	Issue(login string) (string, error)

	// Decode validates a token and returns its claims. It fails with
	// ErrMalformedToken on structural problems and ErrExpired when the
	// token is older than MaxAge. A token aged exactly MaxAge is still
	// valid; only strictly older tokens expire.
	Decode(token string) (*Claims, error)
}

// LegacyCodec implements the unsigned concatenated token format. The token
// carries no signature: integrity relies entirely on cookie transport
// confidentiality. Prefer SignedCodec for new deployments.
type LegacyCodec struct {
	maxAge time.Duration
	now    func() time.Time
}

// LegacyOption configures a LegacyCodec.
type LegacyOption func(*LegacyCodec)

// WithClock overrides the codec's time source. Used in tests.
func WithClock(now func() time.Time) LegacyOption {
	return func(c *LegacyCodec) {
		c.now = now
	}
}

// NewLegacyCodec creates a codec for the unsigned token format.
func NewLegacyCodec(opts ...LegacyOption) *LegacyCodec {
	c := &LegacyCodec{
		maxAge: MaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue produces "sess:" + base64(login) + ":" + unixMillis.
func (c *LegacyCodec) Issue(login string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString([]byte(login))
	millis := c.now().UnixMilli()
	return legacyPrefix + ":" + encoded + ":" + strconv.FormatInt(millis, 10), nil
}

// Decode validates the token structure, decodes the login, and checks the
// issue time against MaxAge.
func (c *LegacyCodec) Decode(token string) (*Claims, error) {
	parts := strings.Split(token, ":")
	if len(parts) < 3 || parts[0] != legacyPrefix {
		return nil, ErrMalformedToken
	}

	loginBytes, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrMalformedToken
	}

	millis, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrMalformedToken
	}

	issuedAt := time.UnixMilli(millis)
	if c.now().Sub(issuedAt) > c.maxAge {
		return nil, ErrExpired
	}

	return &Claims{
		Login:    string(loginBytes),
		IssuedAt: issuedAt,
	}, nil
}
