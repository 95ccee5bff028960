package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/logistics-billing/internal/model"
)

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(subject string, role model.Role) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestParseReturnsPrincipal(t *testing.T) {
	accountID := uuid.New()
	clientID := uint(42)
	claims := validClaims(accountID.String(), model.RoleClient)
	claims.ClientID = &clientID

	principal, err := NewParser("secret").Parse(sign(t, "secret", jwt.SigningMethodHS256, claims))
	require.NoError(t, err)

	assert.Equal(t, accountID, principal.AccountID)
	assert.True(t, principal.IsClient())
	require.NotNil(t, principal.ClientID)
	assert.Equal(t, uint(42), *principal.ClientID)
}

func TestParseRejectsBadTokens(t *testing.T) {
	parser := NewParser("secret")
	expired := validClaims(uuid.NewString(), model.RoleAdmin)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := validClaims(uuid.NewString(), model.RoleAdmin)
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"wrong secret": sign(t, "other", jwt.SigningMethodHS256, validClaims(uuid.NewString(), model.RoleAdmin)),
		"wrong method": sign(t, "secret", jwt.SigningMethodHS512, validClaims(uuid.NewString(), model.RoleAdmin)),
		"expired":      sign(t, "secret", jwt.SigningMethodHS256, expired),
		"no expiry":    sign(t, "secret", jwt.SigningMethodHS256, noExpiry),
		"bad subject":  sign(t, "secret", jwt.SigningMethodHS256, validClaims("driver-7", model.RoleAdmin)),
		"bad role":     sign(t, "secret", jwt.SigningMethodHS256, validClaims(uuid.NewString(), model.Role("DRIVER"))),
		"garbage":      "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parser.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
