package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "furnace"

var ErrInvalidToken = errors.New("invalid access token")

/**
 * Issue a short lived HS256 access token for the furnace server API
 * @param {string} secret - Shared secret (server.secret)
 * @param {string} subject - Caller, e.g. "cli"
 * @param {time.Duration} ttl - Validity
 * @returns {string} Signed token
 */
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

/**
 * Verify an access token
 * @param {string} secret - Shared secret (server.secret)
 * @param {string} token - Bearer token sent by the caller
 * @returns {string} Subject of the token
 * @returns {error} Returns ErrInvalidToken when the signature, issuer or expiry is wrong
 */
func VerifyToken(secret, token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.Subject, nil
}
