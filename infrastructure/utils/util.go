package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"tubequeue/domain/model"
	"tubequeue/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

const hostTokenIssuer = "tubequeue"

// ErrSecretNotConfigured is returned by both signing and parsing when no
// secret is set. Tokens are never verified against an empty key.
var ErrSecretNotConfigured = errors.New("secret key is not configured")

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// GenerateHostToken signs an HS256 host session token valid for ttl.
func GenerateHostToken(hostID, name string, ttl time.Duration, secretKey string) (string, time.Time, error) {
	if secretKey == "" {
		return "", time.Time{}, ErrSecretNotConfigured
	}
	now := GetCurrentTime()
	expiresAt := now.Add(ttl)
	claims := model.HostClaims{
		HostID: hostID,
		Name:   name,
		StandardClaims: jwt.StandardClaims{
			Issuer:    hostTokenIssuer,
			Subject:   hostID,
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseHostToken validates signature, algorithm and expiry.
func ParseHostToken(tokenString, secretKey string) (*model.HostClaims, error) {
	if secretKey == "" {
		return nil, ErrSecretNotConfigured
	}
	var claims model.HostClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.HostID == "" {
		return nil, errors.New("invalid host token")
	}
	return &claims, nil
}

// RandomState returns a URL-safe random string for OAuth state.
func RandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
