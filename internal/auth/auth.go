// Package auth signs and verifies the admin session token. The shared
// password only ever buys a short-lived HS256 token; the password itself is
// never echoed back or stored client-side.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const SessionTTL = 12 * time.Hour

// NewSessionToken issues an admin session token valid for SessionTTL.
func NewSessionToken(secret []byte, now time.Time) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("missing secret")
	}
	expiresAt := now.Add(SessionTTL)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	})
	tokString, err := tok.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error signing token: %w", err)
	}
	return tokString, expiresAt, nil
}

// VerifySessionToken checks an admin session token. Any "Bearer " prefix is
// ignored.
func VerifySessionToken(tokString string, secret []byte) error {
	tokString = strings.TrimPrefix(tokString, "Bearer ")
	if tokString == "" {
		return errors.New("missing token")
	}
	if len(secret) == 0 {
		return errors.New("missing secret")
	}
	tok, err := jwt.Parse(tokString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return fmt.Errorf("could not parse token: %w", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !tok.Valid || !ok {
		return errors.New("invalid token")
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return errors.New("invalid role")
	}
	return nil
}
