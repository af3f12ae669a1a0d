// Package roomsecret hashes room keys and verifies supplied keys against them.
package roomsecret

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 2
)

var ErrEmptySecret = errors.New("roomsecret: secret must not be empty")

// Hash derives an argon2id hash of secret under a fresh random salt.
func Hash(secret string) (hash, salt []byte, err error) {
	if secret == "" {
		return nil, nil, ErrEmptySecret
	}
	salt = make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("roomsecret: generate salt: %w", err)
	}
	return derive(secret, salt), salt, nil
}

// Verify reports whether supplied hashes to the stored hash. The comparison
// takes the same time wherever the first differing byte is.
func Verify(supplied string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	candidate := derive(supplied, salt)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

func derive(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, keyLen)
}
