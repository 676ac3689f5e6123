package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	verifier, err := NewVerifier(Config{Secret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)

	token, err := verifier.IssueToken("client-42")
	require.NoError(t, err)

	subject, err := verifier.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "client-42", subject)
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	issuer, err := NewVerifier(Config{Secret: "secret-a"})
	require.NoError(t, err)
	verifier, err := NewVerifier(Config{Secret: "secret-b"})
	require.NoError(t, err)

	token, err := issuer.IssueToken("client-42")
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	verifier, err := NewVerifier(Config{Secret: "test-secret", TokenTTL: time.Nanosecond})
	require.NoError(t, err)

	token, err := verifier.IssueToken("client-42")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = verifier.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	verifier, err := NewVerifier(Config{Secret: "test-secret"})
	require.NoError(t, err)

	_, err = verifier.VerifyToken("not.a.token")
	assert.Error(t, err)
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier(Config{})
	assert.Error(t, err)
}
