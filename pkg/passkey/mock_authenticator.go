// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math/big"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// MockAuthenticator simulates a browser-side authenticator for tests. It
// holds a P-256 key pair and produces attestation and assertion responses
// that pass real verification against the coordinator.
type MockAuthenticator struct {
	// CredentialID identifies the credential this authenticator holds.
	CredentialID []byte

	// SignCount is the signature counter reported with each assertion.
	SignCount uint32

	// UserVerified controls the UV flag on produced responses.
	UserVerified bool

	aaguid     []byte
	privateKey *ecdsa.PrivateKey
	rpIDHash   []byte
}

// MockAuthenticatorOption configures a MockAuthenticator.
type MockAuthenticatorOption func(*MockAuthenticator)

// WithCredentialID sets a fixed credential ID instead of a random one.
func WithCredentialID(credentialID []byte) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.CredentialID = credentialID
	}
}

// WithSignCount sets the initial signature counter.
func WithSignCount(count uint32) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.SignCount = count
	}
}

// NewMockAuthenticator creates a mock authenticator scoped to an RP ID.
func NewMockAuthenticator(rpID string, opts ...MockAuthenticatorOption) (*MockAuthenticator, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	aaguid := make([]byte, 16)
	if _, err := rand.Read(aaguid); err != nil {
		return nil, err
	}

	credentialID := make([]byte, 32)
	if _, err := rand.Read(credentialID); err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(rpID))

	m := &MockAuthenticator{
		CredentialID: credentialID,
		UserVerified: true,
		aaguid:       aaguid,
		privateKey:   privateKey,
		rpIDHash:     rpIDHash[:],
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Attest produces a parsed registration response for the given challenge,
// as if the browser completed navigator.credentials.create.
func (m *MockAuthenticator) Attest(challenge []byte, origin string) (*protocol.ParsedCredentialCreationData, error) {
	authData, err := m.authenticatorData(true)
	if err != nil {
		return nil, err
	}
	clientDataJSON := m.clientDataJSON(challenge, origin, "webauthn.create")

	// "none" attestation carries an empty statement.
	attestationObject, err := webauthncbor.Marshal(map[string]interface{}{
		"authData": authData,
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
	})
	if err != nil {
		return nil, err
	}

	publicKey, err := m.cosePublicKey()
	if err != nil {
		return nil, err
	}

	credentialID := base64.RawURLEncoding.EncodeToString(m.CredentialID)
	return &protocol.ParsedCredentialCreationData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{
			ParsedCredential: protocol.ParsedCredential{
				ID:   credentialID,
				Type: "public-key",
			},
			RawID:                  m.CredentialID,
			ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
		},
		Response: protocol.ParsedAttestationResponse{
			CollectedClientData: protocol.CollectedClientData{
				Type:      "webauthn.create",
				Challenge: base64.RawURLEncoding.EncodeToString(challenge),
				Origin:    origin,
			},
			AttestationObject: protocol.AttestationObject{
				Format:       "none",
				AttStatement: map[string]interface{}{},
				AuthData: protocol.AuthenticatorData{
					RPIDHash: m.rpIDHash,
					Flags:    m.flags(true),
					Counter:  m.SignCount,
					AttData: protocol.AttestedCredentialData{
						AAGUID:              m.aaguid,
						CredentialID:        m.CredentialID,
						CredentialPublicKey: publicKey,
					},
				},
			},
			Transports: []protocol.AuthenticatorTransport{protocol.Internal},
		},
		Raw: protocol.CredentialCreationResponse{
			PublicKeyCredential: protocol.PublicKeyCredential{
				Credential: protocol.Credential{
					ID:   credentialID,
					Type: "public-key",
				},
				RawID:                  m.CredentialID,
				ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
			},
			AttestationResponse: protocol.AuthenticatorAttestationResponse{
				AuthenticatorResponse: protocol.AuthenticatorResponse{
					ClientDataJSON: clientDataJSON,
				},
				AttestationObject: attestationObject,
				Transports:        []string{"internal"},
			},
		},
	}, nil
}

// Assert produces a parsed authentication response for the given challenge.
// The signature counter is incremented first, matching real authenticator
// behavior. userHandle may be nil for non-discoverable assertions.
func (m *MockAuthenticator) Assert(challenge, userHandle []byte, origin string) (*protocol.ParsedCredentialAssertionData, error) {
	m.SignCount++

	authData, err := m.authenticatorData(false)
	if err != nil {
		return nil, err
	}
	clientDataJSON := m.clientDataJSON(challenge, origin, "webauthn.get")
	clientDataHash := sha256.Sum256(clientDataJSON)

	signature, err := m.sign(append(authData, clientDataHash[:]...))
	if err != nil {
		return nil, err
	}

	credentialID := base64.RawURLEncoding.EncodeToString(m.CredentialID)
	return &protocol.ParsedCredentialAssertionData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{
			ParsedCredential: protocol.ParsedCredential{
				ID:   credentialID,
				Type: "public-key",
			},
			RawID:                  m.CredentialID,
			ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
		},
		Response: protocol.ParsedAssertionResponse{
			CollectedClientData: protocol.CollectedClientData{
				Type:      "webauthn.get",
				Challenge: base64.RawURLEncoding.EncodeToString(challenge),
				Origin:    origin,
			},
			AuthenticatorData: protocol.AuthenticatorData{
				RPIDHash: m.rpIDHash,
				Flags:    m.flags(false),
				Counter:  m.SignCount,
			},
			Signature:  signature,
			UserHandle: userHandle,
		},
		Raw: protocol.CredentialAssertionResponse{
			PublicKeyCredential: protocol.PublicKeyCredential{
				Credential: protocol.Credential{
					ID:   credentialID,
					Type: "public-key",
				},
				RawID:                  m.CredentialID,
				ClientExtensionResults: protocol.AuthenticationExtensionsClientOutputs{},
			},
			AssertionResponse: protocol.AuthenticatorAssertionResponse{
				AuthenticatorResponse: protocol.AuthenticatorResponse{
					ClientDataJSON: clientDataJSON,
				},
				AuthenticatorData: authData,
				Signature:         signature,
				UserHandle:        userHandle,
			},
		},
	}, nil
}

// cosePublicKey returns the public key as a COSE EC2 key (ES256).
func (m *MockAuthenticator) cosePublicKey() ([]byte, error) {
	publicKey := m.privateKey.Public().(*ecdsa.PublicKey)
	return webauthncbor.Marshal(map[int]interface{}{
		1:  2,                          // kty: EC2
		3:  int(webauthncose.AlgES256), // alg
		-1: 1,                          // crv: P-256
		-2: publicKey.X.Bytes(),
		-3: publicKey.Y.Bytes(),
	})
}

func (m *MockAuthenticator) flags(attested bool) protocol.AuthenticatorFlags {
	flags := byte(0x01) // UP
	if m.UserVerified {
		flags |= 0x04 // UV
	}
	if attested {
		flags |= 0x40 // AT
	}
	return protocol.AuthenticatorFlags(flags)
}

// authenticatorData serializes the authenticator data structure; attested
// credential data is appended only for registration.
func (m *MockAuthenticator) authenticatorData(attested bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(m.rpIDHash)
	buf.WriteByte(byte(m.flags(attested)))

	counter := make([]byte, 4)
	binary.BigEndian.PutUint32(counter, m.SignCount)
	buf.Write(counter)

	if attested {
		buf.Write(m.aaguid)

		length := make([]byte, 2)
		binary.BigEndian.PutUint16(length, uint16(len(m.CredentialID)))
		buf.Write(length)
		buf.Write(m.CredentialID)

		publicKey, err := m.cosePublicKey()
		if err != nil {
			return nil, err
		}
		buf.Write(publicKey)
	}
	return buf.Bytes(), nil
}

func (m *MockAuthenticator) clientDataJSON(challenge []byte, origin, ceremonyType string) []byte {
	data, _ := json.Marshal(struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
		Origin    string `json:"origin"`
	}{
		Type:      ceremonyType,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	})
	return data
}

// sign produces an ASN.1 DER encoded ECDSA signature over data.
func (m *MockAuthenticator) sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, m.privateKey, hash[:])
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(struct {
		R, S *big.Int
	}{r, s})
}
