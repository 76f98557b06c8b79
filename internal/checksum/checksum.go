// Package checksum computes and verifies package digests.
package checksum

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
)

// Algorithm represents a checksum hash algorithm.
type Algorithm string

const (
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
)

// Digest is a lowercase hex encoded hash value.
type Digest string

// Parse parses a checksum value in format "algorithm:hash".
func Parse(value string) (Algorithm, Digest, error) {
	alg, hashValue, ok := strings.Cut(value, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid checksum format: expected 'algorithm:hash', got %q", value)
	}

	algorithm := Algorithm(alg)
	switch algorithm {
	case AlgorithmSHA256, AlgorithmSHA512:
	default:
		return "", "", fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
	if !isHexString(hashValue) {
		return "", "", fmt.Errorf("invalid %s digest %q", algorithm, hashValue)
	}
	return algorithm, Digest(strings.ToLower(hashValue)), nil
}

// ExtractHash returns the digest part of "algorithm:hash", or empty.
func ExtractHash(value string) Digest {
	if value == "" {
		return ""
	}
	_, d, err := Parse(value)
	if err != nil {
		return ""
	}
	return d
}

// NewHash returns a new hash.Hash for the given algorithm.
func NewHash(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// Calculate calculates the checksum of a file using the given algorithm.
func Calculate(filePath string, algorithm Algorithm) (Digest, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return CalculateFromReader(f, algorithm)
}

// CalculateFromReader calculates the checksum from a reader using the given algorithm.
func CalculateFromReader(r io.Reader, algorithm Algorithm) (Digest, error) {
	h, err := NewHash(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// Verify verifies the checksum of a file.
func Verify(filePath string, algorithm Algorithm, expected Digest) error {
	actual, err := Calculate(filePath, algorithm)
	if err != nil {
		return err
	}
	if !strings.EqualFold(string(actual), string(expected)) {
		return fbErrors.NewChecksumError(filePath, string(expected), string(actual))
	}
	return nil
}

// DetectAlgorithm detects the hash algorithm from the hash length.
func DetectAlgorithm(hashValue string) Algorithm {
	switch len(hashValue) {
	case 64:
		return AlgorithmSHA256
	case 128:
		return AlgorithmSHA512
	default:
		return ""
	}
}

// isHexString checks if a string contains only hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
	}
	return len(s) > 0
}
