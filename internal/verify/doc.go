// Package verify checks a downloaded archive before it is extracted.
//
// VerifyDigest compares the streamed SHA-256 of the file with the digest on
// record. VerifySignature checks an OpenPGP detached signature against a
// public keyring, and VerifyBundle checks a Sigstore bundle against a
// certificate identity policy. Every failed check deletes the archive and
// returns an *IntegrityError, so a rejected file can never reach extraction.
package verify
