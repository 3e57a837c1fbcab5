// Package extract unpacks a verified SDK archive into a destination
// directory.
//
// ForArchive selects a strategy from the archive filename. Gzipped tarballs
// are streamed in-process with guards against entries or symlinks that
// would land outside the destination. Zip archives are handed to the host's
// native tool (Expand-Archive on Windows, unzip elsewhere) through a Runner,
// which tests replace with a fake.
//
// All failures are reported as *ExtractionError. A failed extraction may
// leave a partially populated destination behind; callers that need an
// all-or-nothing result extract into a staging directory and rename it.
package extract
