package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	PBKDF2Scheme   = "pbkdf2-sha256"
	PBKDF2Rounds   = 100_000
	PBKDF2SaltSize = 16
	PBKDF2KeySize  = 32

	// Upper bound on rounds accepted from a stored hash, so a corrupt row
	// cannot stall a login.
	maxPBKDF2Rounds = 10_000_000
)

// PasswordHasher produces and checks self-describing password hashes:
//
//	$pbkdf2-sha256$<rounds>$<salt>$<checksum>
//
// salt and checksum use the adapted base64 alphabet ("." for "+", no
// padding), so hashes written by passlib verify unchanged.
type PasswordHasher struct {
	rounds int
}

func NewPasswordHasher(rounds int) *PasswordHasher {
	if rounds <= 0 {
		rounds = PBKDF2Rounds
	}
	return &PasswordHasher{rounds: rounds}
}

var defaultHasher = NewPasswordHasher(PBKDF2Rounds)

func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

func CheckPassword(hashedPassword string, password string) bool {
	return defaultHasher.Check(hashedPassword, password)
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, PBKDF2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.rounds, PBKDF2KeySize, sha256.New)

	return fmt.Sprintf("$%s$%d$%s$%s", PBKDF2Scheme, h.rounds, ab64Encode(salt), ab64Encode(key)), nil
}

// Check reports whether password matches hashedPassword. It never errors:
// unknown schemes and corrupt hashes simply do not match.
func (h *PasswordHasher) Check(hashedPassword string, password string) bool {
	switch {
	case strings.HasPrefix(hashedPassword, "$"+PBKDF2Scheme+"$"):
		return checkPBKDF2(hashedPassword, password)
	case strings.HasPrefix(hashedPassword, "$2a$"),
		strings.HasPrefix(hashedPassword, "$2b$"),
		strings.HasPrefix(hashedPassword, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
	default:
		return false
	}
}

func checkPBKDF2(hashedPassword, password string) bool {
	// "", scheme, rounds, salt, checksum
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 5 {
		return false
	}

	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds <= 0 || rounds > maxPBKDF2Rounds {
		return false
	}
	salt, err := ab64Decode(parts[3])
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := ab64Decode(parts[4])
	if err != nil || len(expected) == 0 {
		return false
	}

	key := pbkdf2.Key([]byte(password), salt, rounds, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

func ab64Encode(b []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
}

func ab64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
