// Package fetch streams a release archive to disk.
//
// The HTTP client never follows redirects on its own. A 301 or 302 response
// is resolved against its Location header and a fresh request is issued, up
// to Options.MaxRedirects hops. Every hop runs under its own timeout. Any
// status other than 200, a dropped connection, or a body shorter than its
// Content-Length is reported as a *TransportError, and the partially written
// file is removed before the error is returned.
//
// URLs with the s3:// scheme are read through an S3Client, which lets a
// private mirror stand in for the public release host.
//
// Progress events are delivered on an optional channel. Sends never block,
// so a slow or absent reader only loses events.
package fetch
