package lib

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-used-only-in-tests"

func TestIssueAndParseAPIToken(t *testing.T) {
	tokenStr, err := IssueAPIToken("svc:billing", "service", testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims, err := ParseAPIToken(tokenStr, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "svc:billing", claims.Sub)
	assert.Equal(t, "service", claims.Role)
	assert.True(t, claims.Exp.After(claims.Iat))
}

func TestParseAPITokenWrongSecret(t *testing.T) {
	tokenStr, err := IssueAPIToken("svc:billing", "service", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseAPIToken(tokenStr, "some-other-secret")
	assert.Error(t, err)
}

func TestParseAPITokenExpired(t *testing.T) {
	tokenStr, err := IssueAPIToken("svc:billing", "service", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAPIToken(tokenStr, testSecret)
	assert.Error(t, err)
}

func TestParseAPITokenGarbage(t *testing.T) {
	_, err := ParseAPIToken("not.a.token", testSecret)
	assert.Error(t, err)
}

func TestExtractClaims(t *testing.T) {
	tokenStr, err := IssueAPIToken("svc:billing", "service", testSecret, time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/proposals", nil)
	r.Header.Set("Authorization", "Bearer "+tokenStr)

	claims, err := ExtractClaims(r, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "svc:billing", claims.Sub)
}

func TestExtractClaimsMissingOrMalformedHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/proposals", nil)
	_, err := ExtractClaims(r, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	r.Header.Set("Authorization", "Token abc")
	_, err = ExtractClaims(r, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
