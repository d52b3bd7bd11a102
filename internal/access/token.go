// Package access authenticates HTTP callers with scoped signed tokens or a
// static admin token. Only the Argon2id hash of the static token is ever
// configured.
package access

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed token hash")

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashToken generates a salted Argon2id hash of the token, encoded as
// base64(salt)$base64(hash).
func HashToken(token string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(token), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(hash), nil
}

// VerifyToken compares a token with an encoded hash from HashToken.
func VerifyToken(token, encoded string) (bool, error) {
	salt, hash, err := decode(encoded)
	if err != nil {
		return false, err
	}

	comparison := argon2.IDKey([]byte(token), salt, argonTime, argonMemory, argonThreads, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, comparison) == 1, nil
}

func decode(encoded string) ([]byte, []byte, error) {
	saltPart, hashPart, ok := strings.Cut(encoded, "$")
	if !ok {
		return nil, nil, ErrMalformedHash
	}

	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	hash, err := base64.StdEncoding.DecodeString(hashPart)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode hash: %w", err)
	}
	if len(salt) == 0 || len(hash) == 0 {
		return nil, nil, ErrMalformedHash
	}

	return salt, hash, nil
}
