package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Check names the verification that failed.
type Check string

const (
	CheckSHA256   Check = "sha256"
	CheckOpenPGP  Check = "openpgp"
	CheckSigstore Check = "sigstore"
)

// IntegrityError reports a file that failed verification. The file has
// already been removed when this error is returned.
type IntegrityError struct {
	Check    Check
	Path     string
	Expected string // SHA-256 checks only
	Actual   string // SHA-256 checks only
	Err      error
}

func (e *IntegrityError) Error() string {
	if e.Check == CheckSHA256 && e.Err == nil {
		return fmt.Sprintf("sha256 mismatch for %s:\nactual:   %s\nexpected: %s", e.Path, e.Actual, e.Expected)
	}
	return fmt.Sprintf("%s verification failed for %s: %v", e.Check, e.Path, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Verifier handles cryptographic verification of downloaded archives
type Verifier struct{}

// NewVerifier creates a new verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyDigest streams path through SHA-256 and compares the result with
// expectedHex, ignoring case.
func (v *Verifier) VerifyDigest(path, expectedHex string) error {
	expected := strings.TrimSpace(expectedHex)
	if expected == "" {
		return v.reject(&IntegrityError{Check: CheckSHA256, Path: path, Err: errors.New("no expected digest")})
	}

	actual, err := calculateSHA256(path)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	if !strings.EqualFold(actual, expected) {
		return v.reject(&IntegrityError{
			Check:    CheckSHA256,
			Path:     path,
			Expected: strings.ToLower(expected),
			Actual:   actual,
		})
	}
	return nil
}

// VerifySignature checks the detached signature at sigPath over path using
// the public keys in keyringPath. Armored and binary forms are accepted for
// both the keyring and the signature.
func (v *Verifier) VerifySignature(path, sigPath, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	if err := checkDetached(keyring, path, sigPath); err != nil {
		return v.reject(&IntegrityError{Check: CheckOpenPGP, Path: path, Err: err})
	}
	return nil
}

func checkDetached(keyring openpgp.EntityList, path, sigPath string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	sigFile, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	// Try armored first
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, file, sigFile, nil)
	if err != nil {
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			return serr
		}
		if _, serr := sigFile.Seek(0, io.SeekStart); serr != nil {
			return serr
		}
		_, err = openpgp.CheckDetachedSignature(keyring, file, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

// loadKeyring reads an armored or binary public keyring.
func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		// Try reading as non-armored keyring
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return nil, serr
		}
		keyring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}

// reject removes the rejected file and returns err.
func (v *Verifier) reject(err *IntegrityError) error {
	if rmErr := os.Remove(err.Path); rmErr != nil && !os.IsNotExist(rmErr) {
		return errors.Join(err, fmt.Errorf("remove rejected file: %w", rmErr))
	}
	return err
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
