package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrChecksumMismatch is returned when a downloaded file's digest differs
// from the package list.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ChecksumError carries both digests of a failed verification.
type ChecksumError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s: expected sha256 %s, got %s", e.Path, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// SHA256File returns the lowercase hex SHA-256 digest of a file.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySHA256 checks path against an expected hex digest. Hex case and
// surrounding whitespace are ignored.
func VerifySHA256(path, expected string) error {
	actual, err := SHA256File(path)
	if err != nil {
		return err
	}
	want := strings.ToLower(strings.TrimSpace(expected))
	if actual != want {
		return &ChecksumError{Path: path, Expected: want, Actual: actual}
	}
	return nil
}
