package verify

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sigstore/sigstore-go/pkg/bundle"
	"github.com/sigstore/sigstore-go/pkg/root"
	sgverify "github.com/sigstore/sigstore-go/pkg/verify"
)

// BundlePolicy describes the signer a Sigstore bundle must come from.
type BundlePolicy struct {
	// Issuer is the exact OIDC issuer of the signing certificate.
	Issuer string
	// Identity is a regular expression for the certificate SAN.
	Identity string
	// TrustedRoot is a trusted_root.json path. Empty fetches the public
	// good instance root over TUF.
	TrustedRoot string
}

// VerifyBundle checks the Sigstore bundle at bundlePath over path. The
// bundle must sign the file's SHA-256 digest.
func (v *Verifier) VerifyBundle(path, bundlePath string, policy BundlePolicy) error {
	sum, err := calculateSHA256(path)
	if err != nil {
		return fmt.Errorf("hash archive: %w", err)
	}
	digest, err := hex.DecodeString(sum)
	if err != nil {
		return fmt.Errorf("hash archive: %w", err)
	}
	return v.verifyBundleDigest(path, digest, bundlePath, policy)
}

// verifyBundleDigest checks the bundle against a precomputed SHA-256 digest
// of path.
func (v *Verifier) verifyBundleDigest(path string, digest []byte, bundlePath string, policy BundlePolicy) error {
	if policy.Issuer == "" || policy.Identity == "" {
		return errors.New("bundle policy needs an issuer and an identity")
	}

	identity, err := sgverify.NewShortCertificateIdentity(policy.Issuer, "", "", policy.Identity)
	if err != nil {
		return fmt.Errorf("certificate identity: %w", err)
	}

	b, err := bundle.LoadJSONFromPath(bundlePath)
	if err != nil {
		return v.reject(&IntegrityError{Check: CheckSigstore, Path: path, Err: fmt.Errorf("load bundle: %w", err)})
	}

	trusted, err := loadTrustedRoot(policy.TrustedRoot)
	if err != nil {
		return fmt.Errorf("load trusted root: %w", err)
	}

	verifier, err := sgverify.NewVerifier(trusted,
		sgverify.WithSignedCertificateTimestamps(1),
		sgverify.WithTransparencyLog(1),
		sgverify.WithObserverTimestamps(1),
	)
	if err != nil {
		return fmt.Errorf("create bundle verifier: %w", err)
	}

	_, err = verifier.Verify(b, sgverify.NewPolicy(
		sgverify.WithArtifactDigest("sha256", digest),
		sgverify.WithCertificateIdentity(identity),
	))
	if err != nil {
		return v.reject(&IntegrityError{Check: CheckSigstore, Path: path, Err: err})
	}
	return nil
}

func loadTrustedRoot(path string) (*root.TrustedRoot, error) {
	if path == "" {
		return root.FetchTrustedRoot()
	}
	return root.NewTrustedRootFromPath(path)
}
