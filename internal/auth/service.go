// Package auth guards the admin surface of the API: triggering runs
// and reading run history. There are no user accounts; a single
// operator secret (plain or bcrypt-hashed) exchanges for a short-lived
// JWT.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidSecret = errors.New("invalid admin secret")
	ErrNotConfigured = errors.New("admin auth not configured")

	jwtSecretOnce    sync.Once
	jwtSecretRuntime []byte
	jwtSecretErr     error
)

const tokenTTL = 24 * time.Hour

func jwtSecretFromEnv() ([]byte, error) {
	jwtSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
		if secret != "" {
			jwtSecretRuntime = []byte(secret)
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			jwtSecretErr = fmt.Errorf("failed to generate JWT fallback secret: %w", err)
			return
		}

		jwtSecretRuntime = []byte(base64.RawURLEncoding.EncodeToString(buf))
		log.Print("JWT_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if jwtSecretErr != nil {
		return nil, jwtSecretErr
	}
	if len(jwtSecretRuntime) == 0 {
		return nil, errors.New("JWT secret unavailable")
	}

	return jwtSecretRuntime, nil
}

// VerifyAdminSecret checks a presented secret against the environment.
// ADMIN_SECRET_HASH (bcrypt) wins over plain ADMIN_SECRET when both are
// set.
func VerifyAdminSecret(presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return ErrInvalidSecret
	}

	if hash := strings.TrimSpace(os.Getenv("ADMIN_SECRET_HASH")); hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)); err != nil {
			return ErrInvalidSecret
		}
		return nil
	}

	if plain := strings.TrimSpace(os.Getenv("ADMIN_SECRET")); plain != "" {
		if subtle.ConstantTimeCompare([]byte(plain), []byte(presented)) != 1 {
			return ErrInvalidSecret
		}
		return nil
	}

	return ErrNotConfigured
}

// IssueToken signs a short-lived admin JWT after the secret has been
// verified.
func IssueToken() (string, error) {
	secretKey, err := jwtSecretFromEnv()
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"sub": "admin",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ParseToken validates an admin JWT and returns its subject.
func ParseToken(tokenString string) (string, error) {
	secretKey, err := jwtSecretFromEnv()
	if err != nil {
		return "", err
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	return claims.GetSubject()
}
