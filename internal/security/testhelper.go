package security

import "time"

// Issuer and audience of tokens from NewTestTokenProvider.
const (
	TestIssuer   = "jsacademy-test"
	TestAudience = "jsacademy-test-api"
)

// NewTestTokenProvider returns a learner TokenProvider signing with a fresh P-256 key, valid for an hour.
// For tests in other packages only.
func NewTestTokenProvider() (*TokenProvider, error) {
	signer, pub, err := GenerateEphemeralKeyPair()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, TestIssuer, TestAudience, time.Hour)
}
