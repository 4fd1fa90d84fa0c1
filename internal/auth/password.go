package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/spec-kit/account-portal/internal/config"
)

const (
	AlgorithmPBKDF2 = "pbkdf2"
	AlgorithmBcrypt = "bcrypt"

	saltLength            = 16
	saltChars             = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	legacyPBKDF2Iteration = 150000

	// BcryptMaxPasswordBytes is the longest input bcrypt accepts.
	BcryptMaxPasswordBytes = 72
)

// ErrPasswordTooLong is returned by BcryptHasher.Hash for inputs over BcryptMaxPasswordBytes.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher turns plaintext passwords into salted digests and checks them.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// NewHasher returns the hasher selected by cfg. Both implementations verify either digest format.
func NewHasher(cfg config.AuthConfig) (Hasher, error) {
	switch cfg.HashAlgorithm {
	case AlgorithmPBKDF2, "":
		return NewPBKDF2Hasher(cfg.PBKDF2Iterations), nil
	case AlgorithmBcrypt:
		return NewBcryptHasher(cfg.BcryptCost), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", cfg.HashAlgorithm)
	}
}

// PBKDF2Hasher writes digests as pbkdf2:sha256:<iterations>$<salt>$<hex>.
type PBKDF2Hasher struct {
	iterations int
}

func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	return &PBKDF2Hasher{iterations: iterations}
}

func (h *PBKDF2Hasher) Hash(plaintext string) (string, error) {
	salt, err := randomSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(plaintext), []byte(salt), h.iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", h.iterations, salt, hex.EncodeToString(key)), nil
}

func (h *PBKDF2Hasher) Verify(plaintext, digest string) bool {
	return verifyDigest(plaintext, digest)
}

// BcryptHasher writes standard $2a$ digests.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

// Hash hashes a plaintext password with the configured cost.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > BcryptMaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return verifyDigest(plaintext, digest)
}

func verifyDigest(plaintext, digest string) bool {
	if isBcrypt(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	}

	spec, err := parsePBKDF2(digest)
	if err != nil {
		return false
	}
	key := pbkdf2.Key([]byte(plaintext), []byte(spec.salt), spec.iterations, len(spec.key), spec.newHash)
	return subtle.ConstantTimeCompare(key, spec.key) == 1
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

type pbkdf2Spec struct {
	newHash    func() hash.Hash
	iterations int
	salt       string
	key        []byte
}

var errMalformedDigest = errors.New("malformed password digest")

// parsePBKDF2 accepts pbkdf2:<sha256|sha512>[:<iterations>]$<salt>$<hex>.
func parsePBKDF2(digest string) (*pbkdf2Spec, error) {
	parts := strings.SplitN(digest, "$", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, errMalformedDigest
	}

	method := strings.Split(parts[0], ":")
	if len(method) < 2 || len(method) > 3 || method[0] != "pbkdf2" {
		return nil, errMalformedDigest
	}

	spec := &pbkdf2Spec{iterations: legacyPBKDF2Iteration, salt: parts[1]}
	switch method[1] {
	case "sha256":
		spec.newHash = sha256.New
	case "sha512":
		spec.newHash = sha512.New
	default:
		return nil, errMalformedDigest
	}

	if len(method) == 3 {
		n, err := strconv.Atoi(method[2])
		if err != nil || n <= 0 {
			return nil, errMalformedDigest
		}
		spec.iterations = n
	}

	key, err := hex.DecodeString(parts[2])
	if err != nil || len(key) == 0 {
		return nil, errMalformedDigest
	}
	spec.key = key
	return spec, nil
}

func randomSalt(n int) (string, error) {
	limit := big.NewInt(int64(len(saltChars)))
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(saltChars[idx.Int64()])
	}
	return sb.String(), nil
}
