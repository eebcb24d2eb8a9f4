// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password hashes and compares credentials.
package password

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmpty is returned when hashing an empty password.
var ErrEmpty = errors.New("password must not be empty")

// Hasher turns plaintext credentials into salted one-way hashes.
type Hasher interface {
	Hash(plain string) (string, error)
	// Compare reports whether plain matches hash. Malformed hashes never match.
	Compare(plain, hash string) bool
}

// New returns the hasher named by kind ("bcrypt" or "argon2id").
func New(kind string, bcryptCost int) (Hasher, error) {
	switch kind {
	case "bcrypt", "":
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
		}
		return BcryptHasher{Cost: bcryptCost}, nil
	case "argon2id":
		return Argon2idHasher{Params: argon2id.DefaultParams}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", kind)
	}
}

// BcryptHasher hashes with bcrypt at a fixed cost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Argon2idHasher hashes with argon2id in PHC string format.
type Argon2idHasher struct {
	Params *argon2id.Params
}

func (h Argon2idHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	hash, err := argon2id.CreateHash(plain, h.Params)
	if err != nil {
		return "", fmt.Errorf("argon2id: %w", err)
	}
	return hash, nil
}

func (h Argon2idHasher) Compare(plain, hash string) bool {
	ok, err := argon2id.ComparePasswordAndHash(plain, hash)
	return err == nil && ok
}
