// Package security issues and validates learner access tokens and hashes recovery codes.
package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or signed for another issuer or audience.
	ErrInvalidToken = errors.New("invalid token")
)

// LearnerClaims holds JWT claims for a learner access token. Subject is the learner ID.
type LearnerClaims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"name,omitempty"`
}

// TokenProvider issues and validates learner JWTs using RS256, ES256 or EdDSA.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	method     jwt.SigningMethod
	issuer     string
	audience   string
	ttl        time.Duration
	nowF       func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with privateKey and verifies with publicKey.
// The algorithm follows the key type (see KeyAlg); both keys must agree on it or ErrInvalidKey is returned.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) (*TokenProvider, error) {
	if privateKey == nil {
		return nil, ErrInvalidKey
	}
	alg := KeyAlg(privateKey.Public())
	if alg == "" || KeyAlg(publicKey) != alg {
		return nil, ErrInvalidKey
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, ErrInvalidKey
	}
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		method:     method,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		nowF:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueAccess issues an access JWT for the learner. Returns the token and its expiration time.
func (p *TokenProvider) IssueAccess(learnerID, displayName string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.nowF()
	expiresAt = now.Add(p.ttl)
	claims := LearnerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   learnerID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DisplayName: displayName,
	}
	token, err = jwt.NewWithClaims(p.method, claims).SignedString(p.privateKey)
	return token, expiresAt, err
}

// ValidateAccess parses and validates the token (signature, algorithm, exp, iss, aud) and returns the learner ID.
func (p *TokenProvider) ValidateAccess(tokenString string) (learnerID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &LearnerClaims{}, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	},
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.nowF),
	)
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*LearnerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
