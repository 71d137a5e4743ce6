package lib

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// APIClaims identifies the API caller on mutating proposal routes. This
// authenticates the proposing service, never the accepting party.
type APIClaims struct {
	Sub  string
	Role string
	Iat  time.Time
	Exp  time.Time
	Jti  uuid.UUID
}

// IssueAPIToken signs a token for a caller with the given role.
func IssueAPIToken(subject, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"jti":  uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAPIToken parses and validates an API token string and returns the claims
func ParseAPIToken(tokenStr string, secret string) (*APIClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrInvalidKey
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid sub claim")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid role claim")
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat claim")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp claim")
	}

	jtiStr, ok := claims["jti"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid jti claim")
	}

	jti, err := uuid.Parse(jtiStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in jti claim: %w", err)
	}

	return &APIClaims{
		Sub:  sub,
		Role: role,
		Iat:  time.Unix(int64(iat), 0),
		Exp:  time.Unix(int64(exp), 0),
		Jti:  jti,
	}, nil
}

// ExtractClaims reads the bearer token from the Authorization header and
// validates it.
func ExtractClaims(r *http.Request, secret string) (*APIClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrInvalidToken
	}
	tokenStr, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return nil, ErrInvalidToken
	}
	return ParseAPIToken(tokenStr, secret)
}
