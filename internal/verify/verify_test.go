package verify

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestVerifyDigest(t *testing.T) {
	archive := []byte("include/aic.h lib/libaic.a")
	digest := digestOf(archive)

	flipped := bytes.Clone(archive)
	flipped[3] ^= 0x01

	tests := []struct {
		name     string
		content  []byte
		expected string
		wantErr  bool
	}{
		{
			name:     "identical bytes",
			content:  archive,
			expected: digest,
		},
		{
			name:     "uppercase digest",
			content:  archive,
			expected: strings.ToUpper(digest),
		},
		{
			name:     "single flipped bit",
			content:  flipped,
			expected: digest,
			wantErr:  true,
		},
		{
			name:     "empty expected digest",
			content:  archive,
			expected: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "sdk.tar.gz", tt.content)

			err := NewVerifier().VerifyDigest(path, tt.expected)

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("VerifyDigest() error = %v", err)
				}
				if _, err := os.Stat(path); err != nil {
					t.Errorf("verified file should remain: %v", err)
				}
				return
			}

			var ie *IntegrityError
			if !errors.As(err, &ie) {
				t.Fatalf("error = %v, want *IntegrityError", err)
			}
			if ie.Path != path || ie.Check != CheckSHA256 {
				t.Errorf("IntegrityError = %+v", ie)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("rejected file should be deleted, stat err = %v", err)
			}
		})
	}
}

func TestVerifyDigest_ReportsDigests(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sdk.tar.gz", []byte("actual"))
	expected := digestOf([]byte("expected"))

	err := NewVerifier().VerifyDigest(path, strings.ToUpper(expected))

	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want *IntegrityError", err)
	}
	if ie.Expected != expected {
		t.Errorf("Expected = %s, want %s", ie.Expected, expected)
	}
	if ie.Actual != digestOf([]byte("actual")) {
		t.Errorf("Actual = %s", ie.Actual)
	}
	if !strings.Contains(err.Error(), "sha256 mismatch") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestVerifyDigest_MissingFile(t *testing.T) {
	err := NewVerifier().VerifyDigest(filepath.Join(t.TempDir(), "nope"), digestOf(nil))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestCalculateSHA256(t *testing.T) {
	path := writeFile(t, t.TempDir(), "f", []byte("test content"))
	got, err := calculateSHA256(path)
	if err != nil {
		t.Fatal(err)
	}
	// echo -n "test content" | sha256sum
	want := "6ae8a75555209fd6c44157c0aed8016e763ff435a19cf186f76863140143ff72"
	if got != want {
		t.Errorf("calculateSHA256() = %s, want %s", got, want)
	}
}

// signingFixture holds a generated key pair and its serialized public key.
type signingFixture struct {
	entity  *openpgp.Entity
	armored []byte
	binary  []byte
}

func newSigningFixture(t *testing.T, name string) *signingFixture {
	t.Helper()

	entity, err := openpgp.NewEntity(name, "release signing", name+"@example.com", nil)
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}

	var bin bytes.Buffer
	if err := entity.Serialize(&bin); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	var arm bytes.Buffer
	w, err := armor.Encode(&arm, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	return &signingFixture{entity: entity, armored: arm.Bytes(), binary: bin.Bytes()}
}

func (f *signingFixture) sign(t *testing.T, data []byte, armored bool) []byte {
	t.Helper()
	var sig bytes.Buffer
	var err error
	if armored {
		err = openpgp.ArmoredDetachSign(&sig, f.entity, bytes.NewReader(data), nil)
	} else {
		err = openpgp.DetachSign(&sig, f.entity, bytes.NewReader(data), nil)
	}
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig.Bytes()
}

func TestVerifySignature(t *testing.T) {
	release := newSigningFixture(t, "release")
	other := newSigningFixture(t, "mallory")
	archive := []byte("sdk archive payload")

	tests := []struct {
		name          string
		keyring       []byte
		sig           []byte
		content       []byte
		wantIntegrity bool
	}{
		{
			name:    "armored signature, armored keyring",
			keyring: release.armored,
			sig:     release.sign(t, archive, true),
			content: archive,
		},
		{
			name:    "binary signature, binary keyring",
			keyring: release.binary,
			sig:     release.sign(t, archive, false),
			content: archive,
		},
		{
			name:          "tampered archive",
			keyring:       release.armored,
			sig:           release.sign(t, archive, true),
			content:       append(bytes.Clone(archive), '!'),
			wantIntegrity: true,
		},
		{
			name:          "signed by unknown key",
			keyring:       release.armored,
			sig:           other.sign(t, archive, true),
			content:       archive,
			wantIntegrity: true,
		},
		{
			name:          "garbage signature",
			keyring:       release.armored,
			sig:           []byte("not a signature"),
			content:       archive,
			wantIntegrity: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "sdk.tar.gz", tt.content)
			sigPath := writeFile(t, dir, "sdk.tar.gz.asc", tt.sig)
			keyringPath := writeFile(t, dir, "release.gpg", tt.keyring)

			err := NewVerifier().VerifySignature(path, sigPath, keyringPath)

			if !tt.wantIntegrity {
				if err != nil {
					t.Fatalf("VerifySignature() error = %v", err)
				}
				return
			}

			var ie *IntegrityError
			if !errors.As(err, &ie) || ie.Check != CheckOpenPGP {
				t.Fatalf("error = %v, want openpgp *IntegrityError", err)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("rejected archive should be deleted")
			}
		})
	}
}

func TestVerifySignature_BadKeyring(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sdk.tar.gz", []byte("data"))
	sigPath := writeFile(t, dir, "sdk.tar.gz.asc", []byte("sig"))

	tests := []struct {
		name    string
		keyring string
	}{
		{"missing keyring", filepath.Join(dir, "missing.gpg")},
		{"garbage keyring", writeFile(t, dir, "bad.gpg", []byte("not a key"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewVerifier().VerifySignature(path, sigPath, tt.keyring)
			if err == nil {
				t.Fatal("expected error")
			}
			var ie *IntegrityError
			if errors.As(err, &ie) {
				t.Errorf("keyring problems are configuration errors, got %v", err)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("archive should survive a keyring error: %v", err)
			}
		})
	}
}
